// Package eventstore keeps the history of publish runs as an append-only log of
// events in SQLite, and projects it into per-run summaries.
package eventstore

import (
	"context"
	"time"
)

// Store persists and retrieves events.
type Store interface {
	// Append adds an event to the log.
	Append(ctx context.Context, runID, eventType string, payload []byte, metadata map[string]string) error

	// GetByRunID returns the events of one run in append order.
	GetByRunID(ctx context.Context, runID string) ([]Event, error)

	// GetRange returns the events recorded between start and end, inclusive.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	Close() error
}

// Record appends e to s.
func Record(ctx context.Context, s Store, e Event) error {
	return s.Append(ctx, e.RunID(), e.Type(), e.Payload(), e.Metadata())
}
