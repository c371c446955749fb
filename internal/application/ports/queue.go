package ports

import (
	"context"

	"github.com/centralpay/paycore/internal/domain/entities"
)

// WebhookQueue hands verified webhook events to the async processing
// pipeline. Enqueue is called after the event row is committed, so a crash
// between the two leaves a PENDING row the requeue sweep picks up later.
//
// The queue deduplicates by event id, which makes re-enqueueing an already
// queued event harmless.
type WebhookQueue interface {
	Enqueue(ctx context.Context, event *entities.WebhookEvent) error
}
