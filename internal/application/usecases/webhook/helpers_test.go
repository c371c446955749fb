package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/domain/entities"
	"github.com/centralpay/paycore/internal/domain/errors"
	"github.com/centralpay/paycore/internal/domain/valueobjects"
)

// In-memory fakes for the webhook pipeline. They reproduce what the
// pipeline leans on: the unique index on event_id, queue-side dedup and
// idempotent deposits.

type memEventRepo struct {
	mu      sync.Mutex
	byEvent map[string]*entities.WebhookEvent
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{byEvent: make(map[string]*entities.WebhookEvent)}
}

func cloneEvent(e *entities.WebhookEvent) *entities.WebhookEvent {
	return entities.ReconstructWebhookEvent(
		e.ID(), e.EventID(), e.EventType(), e.Payload(), e.Signature(),
		e.Status(), e.RetryCount(), e.ErrorMessage(),
		e.CreatedAt(), e.ProcessedAt(), e.UpdatedAt(),
	)
}

func (r *memEventRepo) Save(ctx context.Context, event *entities.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byEvent[event.EventID()]; ok && existing.ID() != event.ID() {
		return errors.NewDuplicateTransaction(event.EventID())
	}
	r.byEvent[event.EventID()] = cloneEvent(event)
	return nil
}

func (r *memEventRepo) FindByEventID(ctx context.Context, eventID string) (*entities.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.byEvent[eventID]
	if !ok {
		return nil, errors.NewNotFound("webhook event")
	}
	return cloneEvent(event), nil
}

func (r *memEventRepo) FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*entities.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []*entities.WebhookEvent
	for _, event := range r.byEvent {
		if event.Status() != entities.WebhookEventStatusPending {
			continue
		}
		if !event.CreatedAt().Before(cutoff) {
			continue
		}
		stale = append(stale, cloneEvent(event))
		if len(stale) == limit {
			break
		}
	}
	return stale, nil
}

func (r *memEventRepo) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for eventID, event := range r.byEvent {
		if event.Status() != entities.WebhookEventStatusProcessed {
			continue
		}
		if !event.CreatedAt().Before(cutoff) {
			continue
		}
		delete(r.byEvent, eventID)
		deleted++
	}
	return deleted, nil
}

type memIntentRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*entities.PaymentIntent
}

func newMemIntentRepo() *memIntentRepo {
	return &memIntentRepo{byID: make(map[uuid.UUID]*entities.PaymentIntent)}
}

func cloneIntent(p *entities.PaymentIntent) (*entities.PaymentIntent, error) {
	metadataJSON, err := p.MetadataJSON()
	if err != nil {
		return nil, err
	}
	responseJSON, err := p.GatewayResponseJSON()
	if err != nil {
		return nil, err
	}
	return entities.ReconstructPaymentIntent(
		p.ID(), p.UserID(), p.GatewayPaymentID(), p.Amount(), p.Currency(),
		p.Status(), p.PaymentMethod(), p.Description(), metadataJSON, responseJSON,
		p.ErrorMessage(), p.CreatedAt(), p.SucceededAt(), p.UpdatedAt(),
	)
}

func (r *memIntentRepo) Save(ctx context.Context, intent *entities.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone, err := cloneIntent(intent)
	if err != nil {
		return err
	}
	r.byID[intent.ID()] = clone
	return nil
}

func (r *memIntentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	intent, ok := r.byID[id]
	if !ok {
		return nil, errors.NewNotFound("payment intent")
	}
	return cloneIntent(intent)
}

func (r *memIntentRepo) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*entities.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, intent := range r.byID {
		if intent.GatewayPaymentID() == gatewayPaymentID {
			return cloneIntent(intent)
		}
	}
	return nil, errors.NewNotFound("payment intent")
}

func (r *memIntentRepo) FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*entities.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var intents []*entities.PaymentIntent
	for _, intent := range r.byID {
		if intent.UserID() != userID {
			continue
		}
		clone, err := cloneIntent(intent)
		if err != nil {
			return nil, err
		}
		intents = append(intents, clone)
	}
	return intents, nil
}

type memQueue struct {
	mu       sync.Mutex
	enqueued []string
	err      error
}

func (q *memQueue) Enqueue(ctx context.Context, event *entities.WebhookEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, event.EventID())
	return nil
}

func (q *memQueue) entries() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.enqueued...)
}

// fakeDepositor records deposit commands and answers like the real engine:
// success on first use, Duplicate on replays of the same gateway payment id.
type fakeDepositor struct {
	mu    sync.Mutex
	calls []dtos.DepositCommand
	err   error
}

func (d *fakeDepositor) Execute(ctx context.Context, cmd dtos.DepositCommand) (*dtos.TransferResultDTO, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	duplicate := false
	for _, prior := range d.calls {
		if prior.GatewayPaymentID == cmd.GatewayPaymentID {
			duplicate = true
		}
	}
	d.calls = append(d.calls, cmd)
	return &dtos.TransferResultDTO{
		Transaction: dtos.TransactionDTO{ID: uuid.New().String(), Status: "COMPLETED"},
		Duplicate:   duplicate,
	}, nil
}

func (d *fakeDepositor) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

const testSecret = "whsec_test_secret"

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type pipeline struct {
	events  *memEventRepo
	intents *memIntentRepo
	queue   *memQueue
	deposit *fakeDepositor
}

func newPipeline() *pipeline {
	return &pipeline{
		events:  newMemEventRepo(),
		intents: newMemIntentRepo(),
		queue:   &memQueue{},
		deposit: &fakeDepositor{},
	}
}

func (p *pipeline) ingest() *IngestWebhookUseCase {
	return NewIngestWebhookUseCase(p.events, p.queue, testSecret)
}

func (p *pipeline) processor() *ProcessWebhookUseCase {
	return NewProcessWebhookUseCase(p.events, p.intents, p.deposit, discardLogger(), 3)
}

func (p *pipeline) maintenance(retention time.Duration) *MaintenanceUseCase {
	return NewMaintenanceUseCase(p.events, p.queue, discardLogger(), retention)
}

// seedIntent stores a PENDING intent and returns it.
func (p *pipeline) seedIntent(t *testing.T, amount string) *entities.PaymentIntent {
	t.Helper()
	intent, err := entities.NewPaymentIntent(uuid.New(), valueobjects.MustMoney(amount), "", "")
	if err != nil {
		t.Fatalf("NewPaymentIntent: %v", err)
	}
	if err := p.intents.Save(context.Background(), intent); err != nil {
		t.Fatalf("seed intent: %v", err)
	}
	return intent
}

// seedEvent stores an event in the given state, created age ago.
func (p *pipeline) seedEvent(t *testing.T, eventID, eventType string, status entities.WebhookEventStatus, age time.Duration) *entities.WebhookEvent {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{"event":%q,"payment_id":%q}`, eventType, eventID))
	created := time.Now().Add(-age)
	var processedAt *time.Time
	if status == entities.WebhookEventStatusProcessed {
		processedAt = &created
	}
	event := entities.ReconstructWebhookEvent(
		uuid.New(), eventID, eventType, payload, sign(testSecret, payload),
		status, 0, "", created, processedAt, created,
	)
	if err := p.events.Save(context.Background(), event); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return event
}

// storedEvent reloads an event by event id.
func (p *pipeline) storedEvent(t *testing.T, eventID string) *entities.WebhookEvent {
	t.Helper()
	event, err := p.events.FindByEventID(context.Background(), eventID)
	if err != nil {
		t.Fatalf("load event %s: %v", eventID, err)
	}
	return event
}

// storedIntent reloads an intent by id.
func (p *pipeline) storedIntent(t *testing.T, id uuid.UUID) *entities.PaymentIntent {
	t.Helper()
	intent, err := p.intents.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load intent %s: %v", id, err)
	}
	return intent
}
