package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/entities"
	domainErrors "github.com/centralpay/paycore/internal/domain/errors"
)

var _ ports.WebhookEventRepository = (*WebhookEventRepository)(nil)

// WebhookEventRepository implements ports.WebhookEventRepository.
//
// The table doubles as an outbox for the queue: ingest commits the row
// first and enqueues second, so a PENDING row older than the grace
// period means the enqueue was lost and the maintenance sweep replays
// it. Queue-side dedup by event_id keeps the replay harmless.
type WebhookEventRepository struct {
	pool *pgxpool.Pool
}

func NewWebhookEventRepository(pool *pgxpool.Pool) *WebhookEventRepository {
	return &WebhookEventRepository{pool: pool}
}

func (r *WebhookEventRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const webhookEventColumns = `id, event_id, event_type, payload, signature, status, retry_count, error_message, created_at, processed_at, updated_at`

// Save inserts or updates an event by ID. A second insert with the same
// event_id loses to the unique index and surfaces as a duplicate.
func (r *WebhookEventRepository) Save(ctx context.Context, event *entities.WebhookEvent) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO webhook_events (id, event_id, event_type, payload, signature, status, retry_count, error_message, created_at, processed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			retry_count = EXCLUDED.retry_count,
			error_message = EXCLUDED.error_message,
			processed_at = EXCLUDED.processed_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := q.Exec(ctx, query,
		event.ID(),
		event.EventID(),
		event.EventType(),
		event.Payload(),
		event.Signature(),
		string(event.Status()),
		event.RetryCount(),
		event.ErrorMessage(),
		event.CreatedAt(),
		event.ProcessedAt(),
		event.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err, "webhook_events_event_id") {
			return domainErrors.NewDuplicateTransaction(event.EventID())
		}
		return fmt.Errorf("save webhook event: %w", err)
	}

	return nil
}

func scanWebhookEvent(scanner interface{ Scan(dest ...any) error }) (*entities.WebhookEvent, error) {
	var (
		id                   uuid.UUID
		eventID, eventType   string
		payload              []byte
		signature, status    string
		retryCount           int
		errorMessage         string
		createdAt, updatedAt time.Time
		processedAt          *time.Time
	)

	err := scanner.Scan(
		&id,
		&eventID,
		&eventType,
		&payload,
		&signature,
		&status,
		&retryCount,
		&errorMessage,
		&createdAt,
		&processedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	return entities.ReconstructWebhookEvent(
		id,
		eventID, eventType,
		payload,
		signature,
		entities.WebhookEventStatus(status),
		retryCount,
		errorMessage,
		createdAt,
		processedAt,
		updatedAt,
	), nil
}

// FindByEventID loads an event by the gateway's event id.
func (r *WebhookEventRepository) FindByEventID(ctx context.Context, eventID string) (*entities.WebhookEvent, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + webhookEventColumns + ` FROM webhook_events WHERE event_id = $1`

	event, err := scanWebhookEvent(q.QueryRow(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NewNotFound("webhook event")
		}
		return nil, fmt.Errorf("find webhook event by event id: %w", err)
	}

	return event, nil
}

// FindPendingOlderThan returns PENDING events created before the cutoff,
// oldest first. Feeds the requeue sweep.
func (r *WebhookEventRepository) FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*entities.WebhookEvent, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT ` + webhookEventColumns + `
		FROM webhook_events
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := q.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("find pending webhook events: %w", err)
	}
	defer rows.Close()

	var events []*entities.WebhookEvent
	for rows.Next() {
		event, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook event row: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook event rows: %w", err)
	}

	return events, nil
}

// DeleteProcessedBefore purges PROCESSED events received before the cutoff.
// FAILED rows are kept for manual review.
func (r *WebhookEventRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	q := r.getQuerier(ctx)

	query := `DELETE FROM webhook_events WHERE status = 'PROCESSED' AND created_at < $1`

	result, err := q.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete processed webhook events: %w", err)
	}

	return result.RowsAffected(), nil
}
