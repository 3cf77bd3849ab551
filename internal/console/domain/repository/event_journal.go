package repository

import (
	"context"

	"cowork-console/internal/console/domain/model"
)

// EventJournal persists the change history of collections so that other
// instances (or a reconnecting client) can replay what happened after a
// known sequence number. Appends are best effort from the synchronizer's
// point of view: a journal failure is logged, not surfaced to the writer.
type EventJournal interface {
	Append(ctx context.Context, event model.ChangeEvent) error
	EventsSince(ctx context.Context, collection string, afterSequence int64) ([]model.ChangeEvent, error)

	// LatestSequence returns the highest sequence number in the journal
	// across all collections, 0 when the journal is empty. The synchronizer
	// resumes numbering from it so sequences stay monotonic across restarts.
	LatestSequence(ctx context.Context) (int64, error)
}
