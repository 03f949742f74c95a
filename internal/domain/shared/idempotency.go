package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed message IDs (webhook deliveries,
// one-shot jobs) so that redelivery does not repeat side effects.
type IdempotencyStore interface {
	// MarkProcessed marks id as processed for ttl.
	// Returns true if the id was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error)
	// Forget removes the mark, allowing a failed message to be retried.
	Forget(ctx context.Context, id string) error
}
