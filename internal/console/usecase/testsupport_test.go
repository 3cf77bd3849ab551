package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"

	"cowork-console/internal/console/domain/model"
	"cowork-console/internal/shared/logger"
)

// mockLogger implements the logger interface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(args ...interface{})                              {}
func (m *mockLogger) Info(args ...interface{})                               {}
func (m *mockLogger) Warn(args ...interface{})                               {}
func (m *mockLogger) Error(args ...interface{})                              {}
func (m *mockLogger) Fatal(args ...interface{})                              {}
func (m *mockLogger) Debugf(format string, args ...interface{})              {}
func (m *mockLogger) Infof(format string, args ...interface{})               {}
func (m *mockLogger) Warnf(format string, args ...interface{})               {}
func (m *mockLogger) Errorf(format string, args ...interface{})              {}
func (m *mockLogger) Fatalf(format string, args ...interface{})              {}
func (m *mockLogger) WithFields(fields map[string]interface{}) logger.Logger { return m }
func (m *mockLogger) WithContext(ctx context.Context) logger.Logger          { return m }
func (m *mockLogger) WithComponent(component string) logger.Logger           { return m }

// fakeItemRepo is an in-memory ItemRepository preserving insertion order.
type fakeItemRepo struct {
	mu    sync.Mutex
	items map[string][]model.Item

	listErr   error
	upsertErr error
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[string][]model.Item)}
}

func (r *fakeItemRepo) List(ctx context.Context, collection string) ([]model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]model.Item, len(r.items[collection]))
	copy(out, r.items[collection])
	return out, nil
}

func (r *fakeItemRepo) Upsert(ctx context.Context, collection string, item model.Item) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return "", false, r.upsertErr
	}
	for i, existing := range r.items[collection] {
		if existing.ID == item.ID {
			r.items[collection][i] = item
			return item.ID, false, nil
		}
	}
	r.items[collection] = append(r.items[collection], item)
	return item.ID, true, nil
}

func (r *fakeItemRepo) Delete(ctx context.Context, collection string, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.items[collection] {
		if existing.ID == id {
			r.items[collection] = append(r.items[collection][:i], r.items[collection][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// fakeJournal records appended events in memory.
type fakeJournal struct {
	mu        sync.Mutex
	events    []model.ChangeEvent
	appendErr error
	latest    int64
	latestErr error
}

func (j *fakeJournal) Append(ctx context.Context, event model.ChangeEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.appendErr != nil {
		return j.appendErr
	}
	j.events = append(j.events, event)
	return nil
}

func (j *fakeJournal) EventsSince(ctx context.Context, collection string, afterSequence int64) ([]model.ChangeEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]model.ChangeEvent, 0, len(j.events))
	for _, e := range j.events {
		if e.Collection == collection && e.Sequence > afterSequence {
			out = append(out, e)
		}
	}
	return out, nil
}

func (j *fakeJournal) LatestSequence(ctx context.Context) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.latest, j.latestErr
}

func (j *fakeJournal) recorded() []model.ChangeEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]model.ChangeEvent, len(j.events))
	copy(out, j.events)
	return out
}

// fakeBlobStore returns deterministic URLs and can fail or block per file
// name.
type fakeBlobStore struct {
	mu      sync.Mutex
	stored  []string
	failOn  map[string]bool
	blockOn map[string]chan struct{}
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		failOn:  make(map[string]bool),
		blockOn: make(map[string]chan struct{}),
	}
}

func (s *fakeBlobStore) Put(ctx context.Context, kind model.MediaKind, filename, contentType string, body io.Reader) (string, error) {
	s.mu.Lock()
	gate := s.blockOn[filename]
	fail := s.failOn[filename]
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fail {
		return "", fmt.Errorf("simulated storage outage for %s", filename)
	}

	url := fmt.Sprintf("%s/1700000000000_%s", kind.Namespace(), filename)
	s.mu.Lock()
	s.stored = append(s.stored, url)
	s.mu.Unlock()
	return url, nil
}

func (s *fakeBlobStore) storedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stored)
}
