package audit

import (
	"context"
	"time"
)

// TrailStore persists completed trails. Implementations must tolerate
// concurrent appends and reads without locking the whole store; a trail
// completed concurrently with a historical-accuracy read may or may not be
// included.
type TrailStore interface {
	// Save inserts or replaces the trail by ID.
	Save(ctx context.Context, trail *Trail) error

	// Get returns the trail, or an error when unknown.
	Get(ctx context.Context, id string) (*Trail, error)

	// OutcomesByRole returns the recorded outcomes of a role's past trails,
	// feeding the historical-accuracy component.
	OutcomesByRole(ctx context.Context, role string) ([]Outcome, error)

	// Purge deletes trails created before cutoff that have no recorded
	// outcome, returning the number removed. Trails with outcomes are
	// retained as training data.
	Purge(ctx context.Context, cutoff time.Time) (int, error)

	Close() error
}
