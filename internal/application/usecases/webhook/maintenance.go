package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/centralpay/paycore/internal/application/ports"
)

const (
	// PENDING events younger than this are presumed in flight; older ones
	// lost their enqueue and get swept back onto the queue.
	pendingGrace = 5 * time.Minute

	// requeueBatchSize bounds one sweep so the job never floods the queue.
	requeueBatchSize = 100
)

// MaintenanceUseCase is the scheduled housekeeping for stored webhook
// events: purging PROCESSED rows past retention and re-enqueueing PENDING
// rows whose queue handoff was lost. FAILED rows are kept indefinitely.
type MaintenanceUseCase struct {
	eventRepo ports.WebhookEventRepository
	queue     ports.WebhookQueue
	logger    *slog.Logger
	retention time.Duration
}

// NewMaintenanceUseCase creates the use case. retention bounds how long
// PROCESSED events stay queryable.
func NewMaintenanceUseCase(
	eventRepo ports.WebhookEventRepository,
	queue ports.WebhookQueue,
	logger *slog.Logger,
	retention time.Duration,
) *MaintenanceUseCase {
	return &MaintenanceUseCase{
		eventRepo: eventRepo,
		queue:     queue,
		logger:    logger,
		retention: retention,
	}
}

// PurgeProcessed deletes PROCESSED events older than the retention window
// and reports how many rows went away.
func (uc *MaintenanceUseCase) PurgeProcessed(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-uc.retention)
	deleted, err := uc.eventRepo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge processed webhook events: %w", err)
	}
	if deleted > 0 {
		uc.logger.InfoContext(ctx, "purged processed webhook events",
			"deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

// RequeueStalePending re-enqueues PENDING events older than the grace
// window. Queue-side dedup by event id makes sweeping an already queued
// event harmless.
func (uc *MaintenanceUseCase) RequeueStalePending(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-pendingGrace)
	events, err := uc.eventRepo.FindPendingOlderThan(ctx, cutoff, requeueBatchSize)
	if err != nil {
		return 0, fmt.Errorf("find stale webhook events: %w", err)
	}

	requeued := 0
	for _, event := range events {
		if err := uc.queue.Enqueue(ctx, event); err != nil {
			uc.logger.WarnContext(ctx, "requeue webhook event",
				"event_id", event.EventID(), "error", err)
			continue
		}
		requeued++
	}
	if requeued > 0 {
		uc.logger.InfoContext(ctx, "requeued stale webhook events", "count", requeued)
	}
	return requeued, nil
}
