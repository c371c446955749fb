// Package webhook implements the gateway notification pipeline: verified
// ingest, queued asynchronous processing and scheduled maintenance.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/entities"
	"github.com/centralpay/paycore/internal/domain/errors"
)

// IngestWebhookUseCase verifies and stores gateway notifications, then hands
// them to the queue. The HTTP 200 it produces acknowledges durable receipt,
// not processing.
type IngestWebhookUseCase struct {
	eventRepo ports.WebhookEventRepository
	queue     ports.WebhookQueue
	secret    []byte
}

// NewIngestWebhookUseCase creates the use case. The secret signs every
// gateway request body.
func NewIngestWebhookUseCase(
	eventRepo ports.WebhookEventRepository,
	queue ports.WebhookQueue,
	secret string,
) *IngestWebhookUseCase {
	return &IngestWebhookUseCase{
		eventRepo: eventRepo,
		queue:     queue,
		secret:    []byte(secret),
	}
}

// Execute runs signature verification, dedup and the queue handoff. The
// signature covers the exact raw body bytes; any reformatting between the
// gateway and this method breaks it.
func (uc *IngestWebhookUseCase) Execute(ctx context.Context, cmd dtos.IngestWebhookCommand) (*dtos.WebhookAcceptedDTO, error) {
	if !uc.verifySignature(cmd.Payload, cmd.Signature) {
		return nil, errors.NewUnauthorized("invalid webhook signature")
	}

	var payload struct {
		Event     string `json:"event"`
		PaymentID string `json:"payment_id"`
	}
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		return nil, errors.NewInvalidTransaction("malformed webhook payload")
	}
	if payload.PaymentID == "" {
		return nil, errors.NewInvalidTransaction("webhook payload missing payment_id")
	}
	if payload.Event == "" {
		return nil, errors.NewInvalidTransaction("webhook payload missing event type")
	}

	event, duplicate, err := uc.storeEvent(ctx, payload.PaymentID, payload.Event, cmd)
	if err != nil {
		return nil, err
	}
	if duplicate && event.IsProcessed() {
		return accepted(event, true), nil
	}

	// The row is committed; losing the enqueue would strand it until the
	// requeue sweep. Surfacing INTERNAL makes the gateway redeliver sooner.
	if err := uc.queue.Enqueue(ctx, event); err != nil {
		return nil, errors.NewInternal("enqueue webhook event", err)
	}

	return accepted(event, duplicate), nil
}

// storeEvent inserts the PENDING row, resolving races on the event_id
// unique index toward the row that won.
func (uc *IngestWebhookUseCase) storeEvent(
	ctx context.Context,
	eventID, eventType string,
	cmd dtos.IngestWebhookCommand,
) (*entities.WebhookEvent, bool, error) {
	existing, err := uc.eventRepo.FindByEventID(ctx, eventID)
	if err == nil {
		return existing, true, nil
	}
	if !errors.IsNotFound(err) {
		return nil, false, fmt.Errorf("check webhook event: %w", err)
	}

	event, err := entities.NewWebhookEvent(eventID, eventType, cmd.Payload, cmd.Signature)
	if err != nil {
		return nil, false, err
	}
	if err := uc.eventRepo.Save(ctx, event); err != nil {
		if errors.IsDuplicateTransaction(err) {
			winner, ferr := uc.eventRepo.FindByEventID(ctx, eventID)
			if ferr != nil {
				return nil, false, ferr
			}
			return winner, true, nil
		}
		return nil, false, fmt.Errorf("save webhook event: %w", err)
	}
	return event, false, nil
}

// verifySignature compares the hex HMAC-SHA256 of the raw body against the
// header value in constant time. A "sha256=" prefix on the header is
// accepted.
func (uc *IngestWebhookUseCase) verifySignature(payload []byte, signature string) bool {
	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, uc.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

func accepted(event *entities.WebhookEvent, duplicate bool) *dtos.WebhookAcceptedDTO {
	return &dtos.WebhookAcceptedDTO{
		EventID:   event.EventID(),
		Status:    string(event.Status()),
		Duplicate: duplicate,
	}
}
