package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/domain/errors"
)

// WebhookEventStatus represents the processing state of a stored webhook.
type WebhookEventStatus string

const (
	WebhookEventStatusPending    WebhookEventStatus = "PENDING"
	WebhookEventStatusProcessing WebhookEventStatus = "PROCESSING"
	WebhookEventStatusProcessed  WebhookEventStatus = "PROCESSED"
	WebhookEventStatusFailed     WebhookEventStatus = "FAILED"
)

// IsValid checks if the webhook event status is known.
func (s WebhookEventStatus) IsValid() bool {
	switch s {
	case WebhookEventStatusPending, WebhookEventStatusProcessing,
		WebhookEventStatusProcessed, WebhookEventStatusFailed:
		return true
	default:
		return false
	}
}

// WebhookEvent is a gateway notification persisted before any processing.
// The eventID comes from the gateway payload and deduplicates replays. The
// raw payload bytes are kept verbatim; signature verification already ran
// against them at ingest.
//
// PROCESSED is terminal. FAILED events stay queryable forever and may move
// back to PROCESSING on redelivery until the retry budget runs out.
type WebhookEvent struct {
	id           uuid.UUID
	eventID      string
	eventType    string
	payload      []byte
	signature    string
	status       WebhookEventStatus
	retryCount   int
	errorMessage string
	createdAt    time.Time
	processedAt  *time.Time
	updatedAt    time.Time
}

// NewWebhookEvent creates a PENDING webhook event from a verified request.
func NewWebhookEvent(eventID, eventType string, payload []byte, signature string) (*WebhookEvent, error) {
	if eventID == "" {
		return nil, errors.ValidationError{
			Field:   "eventID",
			Message: "event id is required",
		}
	}
	if eventType == "" {
		return nil, errors.ValidationError{
			Field:   "eventType",
			Message: "event type is required",
		}
	}
	if len(payload) == 0 {
		return nil, errors.ValidationError{
			Field:   "payload",
			Message: "payload is required",
		}
	}

	now := time.Now()
	return &WebhookEvent{
		id:        uuid.New(),
		eventID:   eventID,
		eventType: eventType,
		payload:   payload,
		signature: signature,
		status:    WebhookEventStatusPending,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructWebhookEvent rebuilds a WebhookEvent from stored data.
func ReconstructWebhookEvent(
	id uuid.UUID,
	eventID, eventType string,
	payload []byte,
	signature string,
	status WebhookEventStatus,
	retryCount int,
	errorMessage string,
	createdAt time.Time,
	processedAt *time.Time,
	updatedAt time.Time,
) *WebhookEvent {
	return &WebhookEvent{
		id:           id,
		eventID:      eventID,
		eventType:    eventType,
		payload:      payload,
		signature:    signature,
		status:       status,
		retryCount:   retryCount,
		errorMessage: errorMessage,
		createdAt:    createdAt,
		processedAt:  processedAt,
		updatedAt:    updatedAt,
	}
}

func (w *WebhookEvent) ID() uuid.UUID              { return w.id }
func (w *WebhookEvent) EventID() string            { return w.eventID }
func (w *WebhookEvent) EventType() string          { return w.eventType }
func (w *WebhookEvent) Payload() []byte            { return w.payload }
func (w *WebhookEvent) Signature() string          { return w.signature }
func (w *WebhookEvent) Status() WebhookEventStatus { return w.status }
func (w *WebhookEvent) RetryCount() int            { return w.retryCount }
func (w *WebhookEvent) ErrorMessage() string       { return w.errorMessage }
func (w *WebhookEvent) CreatedAt() time.Time       { return w.createdAt }
func (w *WebhookEvent) ProcessedAt() *time.Time    { return w.processedAt }
func (w *WebhookEvent) UpdatedAt() time.Time       { return w.updatedAt }

func (w *WebhookEvent) IsProcessed() bool { return w.status == WebhookEventStatusProcessed }
func (w *WebhookEvent) IsFailed() bool    { return w.status == WebhookEventStatusFailed }

// CanRetry reports whether another processing attempt fits a budget of
// maxRetries redeliveries after the first attempt. retryCount counts failed
// attempts, so the nth failure still schedules redelivery n while
// n <= maxRetries.
func (w *WebhookEvent) CanRetry(maxRetries int) bool {
	return w.status != WebhookEventStatusProcessed && w.retryCount <= maxRetries
}

// MarkProcessing claims the event for a processing attempt. Redelivered
// events move back from FAILED; a PROCESSED event is never reprocessed.
func (w *WebhookEvent) MarkProcessing() error {
	if w.IsProcessed() {
		return errors.NewBusinessRuleViolation(
			"EVENT_ALREADY_PROCESSED",
			"processed webhook events cannot be reprocessed",
			map[string]interface{}{"eventID": w.eventID},
		)
	}

	w.status = WebhookEventStatusProcessing
	w.updatedAt = time.Now()
	return nil
}

// MarkProcessed transitions PROCESSING to PROCESSED and stamps processedAt.
func (w *WebhookEvent) MarkProcessed() error {
	if w.status != WebhookEventStatusProcessing {
		return errors.NewBusinessRuleViolation(
			"EVENT_NOT_PROCESSING",
			"only processing webhook events can be marked processed",
			map[string]interface{}{"status": w.status},
		)
	}

	now := time.Now()
	w.status = WebhookEventStatusProcessed
	w.processedAt = &now
	w.updatedAt = now
	return nil
}

// MarkFailed records a failed attempt, increments the retry counter and
// keeps the error message for operators.
func (w *WebhookEvent) MarkFailed(message string) error {
	if w.IsProcessed() {
		return errors.NewBusinessRuleViolation(
			"EVENT_ALREADY_PROCESSED",
			"processed webhook events cannot fail",
			map[string]interface{}{"eventID": w.eventID},
		)
	}

	w.status = WebhookEventStatusFailed
	w.retryCount++
	w.errorMessage = message
	w.updatedAt = time.Now()
	return nil
}
