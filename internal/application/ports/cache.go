package ports

import (
	"context"

	"github.com/google/uuid"
)

// IdempotencyCache maps transfer reference ids to transaction ids. It fronts
// the unique index on the transactions table: a miss here is always followed
// by a database lookup, so cache unavailability degrades latency, never
// correctness. Entries expire on the TTL configured at the adapter.
type IdempotencyCache interface {
	// Get returns the cached transaction id for a reference, and whether the
	// key was present.
	Get(ctx context.Context, referenceID string) (uuid.UUID, bool, error)

	// Set stores a reference to transaction mapping.
	Set(ctx context.Context, referenceID string, transactionID uuid.UUID) error

	// Invalidate removes a mapping.
	Invalidate(ctx context.Context, referenceID string) error
}
