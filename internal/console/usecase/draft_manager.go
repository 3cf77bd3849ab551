package usecase

import (
	"context"
	"sync"

	"cowork-console/internal/console/domain/model"
	"cowork-console/internal/shared/errors"
	"cowork-console/internal/shared/logger"
)

// DraftManager owns the live editing sessions of the console. One session
// corresponds to one open edit modal; sessions are addressed by the
// identifier the session mints at load time.
type DraftManager struct {
	schemas  SchemaRegistry
	uploader UploadUsecase
	sync     SyncUsecase
	log      logger.Logger

	mu       sync.Mutex
	sessions map[string]*DraftSession
}

// NewDraftManager creates the session registry.
func NewDraftManager(schemas SchemaRegistry, uploader UploadUsecase, syncUC SyncUsecase, log logger.Logger) *DraftManager {
	return &DraftManager{
		schemas:  schemas,
		uploader: uploader,
		sync:     syncUC,
		log:      log.WithComponent("draft-manager"),
		sessions: make(map[string]*DraftSession),
	}
}

// Open starts an editing session on a collection. A non-empty itemID loads
// that record for editing; otherwise the draft starts from schema defaults.
func (m *DraftManager) Open(ctx context.Context, collection, itemID string) (*DraftSession, error) {
	schema, ok := m.schemas.Lookup(collection)
	if !ok {
		return nil, errors.ErrCollectionUnknown
	}
	if schema.ReadOnly {
		return nil, errors.ErrReadOnlyCollection
	}

	var existing *model.Item
	if itemID != "" {
		items, err := m.sync.Snapshot(ctx, collection)
		if err != nil {
			return nil, err
		}
		for i := range items {
			if items[i].ID == itemID {
				existing = &items[i]
				break
			}
		}
		if existing == nil {
			return nil, errors.ErrItemNotFound
		}
	}

	session := NewDraftSession(schema, m.uploader, m.sync, m.log)
	session.Load(existing)

	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()

	m.log.Debugf("opened session %s on %s", session.ID(), collection)
	return session, nil
}

// Get returns the live session with the given identifier.
func (m *DraftManager) Get(id string) (*DraftSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Submit validates and persists the session's draft. The session is released
// on success; on any failure it stays registered so the edit can continue.
func (m *DraftManager) Submit(ctx context.Context, id string) (model.Item, error) {
	session, ok := m.Get(id)
	if !ok {
		return model.Item{}, errors.NewNotFoundError("draft session")
	}

	item, err := session.Submit(ctx)
	if err != nil {
		return model.Item{}, err
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return item, nil
}

// Close discards a session. Closing an unknown identifier is a no-op.
func (m *DraftManager) Close(id string) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		session.Close()
	}
}
