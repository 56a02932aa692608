package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys of work that has already been claimed,
// such as one billing run per tenant and period.
type IdempotencyStore interface {
	// MarkProcessed claims a key for ttl.
	// Returns true if the key was newly claimed, false if it was already held.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key is currently claimed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release drops a claim so the work can be retried
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
