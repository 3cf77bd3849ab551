package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"cowork-console/internal/console/domain/model"
	"cowork-console/internal/console/domain/repository"
	"cowork-console/internal/shared/errors"
	"cowork-console/internal/shared/logger"

	"github.com/google/uuid"
)

// SnapshotFunc receives the complete current item set of a collection. It is
// invoked once on subscribe and again after every change; it never receives
// a diff.
type SnapshotFunc func(items []model.Item)

// CancelFunc detaches a subscriber. After it returns no further snapshot is
// delivered to that subscriber, including deliveries already scheduled.
type CancelFunc func()

// SyncUsecase keeps any number of observers consistent with the remote
// collections and owns the write path to them.
type SyncUsecase interface {
	// Subscribe registers a live observer on one collection. The observer is
	// called immediately with the current full set, then on every change.
	Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (CancelFunc, error)

	// Snapshot returns the current full item set of a collection.
	Snapshot(ctx context.Context, collection string) ([]model.Item, error)

	// Upsert creates or fully replaces an item and returns its identifier.
	// An empty identifier mints a fresh one.
	Upsert(ctx context.Context, collection string, item model.Item) (string, error)

	// Remove deletes an item; a missing identifier is a no-op, not an error.
	Remove(ctx context.Context, collection string, id string) error

	// EventsSince replays journaled change events after a sequence number.
	EventsSince(ctx context.Context, collection string, afterSequence int64) ([]model.ChangeEvent, error)
}

type subscriber struct {
	fn SnapshotFunc

	// closed is checked at delivery time so that a cancelled subscriber
	// never observes a snapshot, even one computed before cancellation.
	closed atomic.Bool
}

func (s *subscriber) deliver(items []model.Item) {
	if s.closed.Load() {
		return
	}
	s.fn(items)
}

type syncUsecase struct {
	repo     repository.ItemRepository
	journal  repository.EventJournal
	schemas  SchemaRegistry
	log      logger.Logger
	sequence atomic.Int64

	mu          sync.RWMutex
	subscribers map[string]map[string]*subscriber

	// deliveryMu serializes snapshot computation and fan-out per change so
	// subscribers observe a total order of deliveries.
	deliveryMu sync.Mutex
}

// NewSyncUsecase creates the collection synchronizer. journal may be nil;
// change events are then kept out of the replay log but fan-out still works.
func NewSyncUsecase(repo repository.ItemRepository, journal repository.EventJournal, schemas SchemaRegistry, log logger.Logger) SyncUsecase {
	uc := &syncUsecase{
		repo:        repo,
		journal:     journal,
		schemas:     schemas,
		log:         log.WithComponent("sync"),
		subscribers: make(map[string]map[string]*subscriber),
	}

	if journal != nil {
		// Resume numbering from the journal tail so sequences handed to
		// EventsSince callers stay monotonic across restarts.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if seq, err := journal.LatestSequence(ctx); err != nil {
			uc.log.Warnf("could not read journal tail, sequence numbering restarts at 0: %v", err)
		} else {
			uc.sequence.Store(seq)
		}
	}
	return uc
}

func (uc *syncUsecase) Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (CancelFunc, error) {
	if _, ok := uc.schemas.Lookup(collection); !ok {
		return nil, errors.ErrCollectionUnknown
	}

	sub := &subscriber{fn: fn}
	id := uuid.NewString()

	uc.mu.Lock()
	if _, ok := uc.subscribers[collection]; !ok {
		uc.subscribers[collection] = make(map[string]*subscriber)
	}
	uc.subscribers[collection][id] = sub
	uc.mu.Unlock()

	cancel := func() {
		sub.closed.Store(true)
		uc.mu.Lock()
		if subs, ok := uc.subscribers[collection]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(uc.subscribers, collection)
			}
		}
		uc.mu.Unlock()
		uc.log.Debugf("subscriber %s detached from %s", id, collection)
	}

	// Initial full snapshot, delivered before any change fan-out so the
	// subscriber starts from the current set.
	uc.deliveryMu.Lock()
	defer uc.deliveryMu.Unlock()

	items, err := uc.repo.List(ctx, collection)
	if err != nil {
		cancel()
		return nil, errors.WrapError(err, "listing collection for initial snapshot")
	}
	sub.deliver(cloneItems(items))

	uc.log.Infof("subscriber %s attached to %s (%d items)", id, collection, len(items))
	return cancel, nil
}

func (uc *syncUsecase) Snapshot(ctx context.Context, collection string) ([]model.Item, error) {
	if _, ok := uc.schemas.Lookup(collection); !ok {
		return nil, errors.ErrCollectionUnknown
	}
	items, err := uc.repo.List(ctx, collection)
	if err != nil {
		return nil, errors.WrapError(err, "listing collection")
	}
	return cloneItems(items), nil
}

func (uc *syncUsecase) Upsert(ctx context.Context, collection string, item model.Item) (string, error) {
	schema, ok := uc.schemas.Lookup(collection)
	if !ok {
		return "", errors.ErrCollectionUnknown
	}
	if schema.ReadOnly {
		return "", errors.ErrReadOnlyCollection
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreateTime.IsZero() {
		item.CreateTime = now
	}
	item.UpdateTime = now

	id, created, err := uc.repo.Upsert(ctx, collection, item)
	if err != nil {
		return "", errors.WrapError(err, "upserting item")
	}

	eventType := model.EventTypeUpdated
	if created {
		eventType = model.EventTypeCreated
	}
	uc.publish(ctx, model.ChangeEvent{
		Type:       eventType,
		Collection: collection,
		ItemID:     id,
		Data:       item.Clone().Fields,
		Timestamp:  now,
		Sequence:   uc.sequence.Add(1),
	})

	return id, nil
}

func (uc *syncUsecase) Remove(ctx context.Context, collection string, id string) error {
	schema, ok := uc.schemas.Lookup(collection)
	if !ok {
		return errors.ErrCollectionUnknown
	}
	if schema.ReadOnly {
		return errors.ErrReadOnlyCollection
	}

	removed, err := uc.repo.Delete(ctx, collection, id)
	if err != nil {
		return errors.WrapError(err, "deleting item")
	}
	if !removed {
		// Missing identifier: document-store delete semantics, not an error.
		uc.log.Debugf("remove of missing item %s in %s ignored", id, collection)
		return nil
	}

	uc.publish(ctx, model.ChangeEvent{
		Type:       model.EventTypeDeleted,
		Collection: collection,
		ItemID:     id,
		Timestamp:  time.Now().UTC(),
		Sequence:   uc.sequence.Add(1),
	})
	return nil
}

func (uc *syncUsecase) EventsSince(ctx context.Context, collection string, afterSequence int64) ([]model.ChangeEvent, error) {
	if _, ok := uc.schemas.Lookup(collection); !ok {
		return nil, errors.ErrCollectionUnknown
	}
	if uc.journal == nil {
		return nil, nil
	}
	return uc.journal.EventsSince(ctx, collection, afterSequence)
}

// publish journals the event and fans the new full snapshot out to every
// live subscriber of the collection.
func (uc *syncUsecase) publish(ctx context.Context, event model.ChangeEvent) {
	if uc.journal != nil {
		if err := uc.journal.Append(ctx, event); err != nil {
			// Journal failures do not fail the write; the snapshot fan-out
			// below still reflects the change.
			uc.log.WithContext(ctx).Errorf("journal append failed for %s: %v", event.Collection, err)
		}
	}

	uc.deliveryMu.Lock()
	defer uc.deliveryMu.Unlock()

	uc.mu.RLock()
	subs := make([]*subscriber, 0, len(uc.subscribers[event.Collection]))
	for _, s := range uc.subscribers[event.Collection] {
		subs = append(subs, s)
	}
	uc.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	items, err := uc.repo.List(ctx, event.Collection)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("snapshot fan-out for %s failed: %v", event.Collection, err)
		return
	}

	for _, s := range subs {
		s.deliver(cloneItems(items))
	}
	uc.log.Debugf("delivered %s snapshot to %d subscribers after %s", event.Collection, len(subs), event.Type)
}

func cloneItems(items []model.Item) []model.Item {
	out := make([]model.Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
