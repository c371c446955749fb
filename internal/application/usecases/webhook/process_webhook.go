package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/entities"
	"github.com/centralpay/paycore/internal/domain/errors"
	"github.com/centralpay/paycore/internal/pkg/tracing"
)

var tracer = tracing.Tracer("webhook-processor")

// Gateway event types the processor understands.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

// Depositor credits a wallet from a succeeded gateway payment.
type Depositor interface {
	Execute(ctx context.Context, cmd dtos.DepositCommand) (*dtos.TransferResultDTO, error)
}

// Outcome tells the queue consumer what to do with the delivery. Terminal
// deliveries are acknowledged or terminated; the rest are redelivered with
// backoff derived from RetryCount.
type Outcome struct {
	Terminal   bool
	RetryCount int
}

// ProcessWebhookUseCase executes one stored webhook event. It runs on queue
// workers, never on request goroutines, and must stay safe to call any
// number of times per event: the intent transitions and the deposit are
// idempotent, so a redelivery after a crash completes the work instead of
// repeating it.
type ProcessWebhookUseCase struct {
	eventRepo  ports.WebhookEventRepository
	intentRepo ports.PaymentIntentRepository
	deposit    Depositor
	logger     *slog.Logger
	maxRetries int
}

// NewProcessWebhookUseCase creates the use case. maxRetries bounds the
// redeliveries after the first attempt; the queue consumer's MaxDeliver is
// the broker-side backstop for the same budget.
func NewProcessWebhookUseCase(
	eventRepo ports.WebhookEventRepository,
	intentRepo ports.PaymentIntentRepository,
	deposit Depositor,
	logger *slog.Logger,
	maxRetries int,
) *ProcessWebhookUseCase {
	return &ProcessWebhookUseCase{
		eventRepo:  eventRepo,
		intentRepo: intentRepo,
		deposit:    deposit,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Execute loads and runs the event. The returned error describes the failed
// attempt; Outcome says whether another attempt can help.
func (uc *ProcessWebhookUseCase) Execute(ctx context.Context, cmd dtos.ProcessWebhookCommand) (Outcome, error) {
	// Deliveries arrive without an upstream trace, so this span is the root
	// for everything the event triggers, the deposit included.
	ctx, span := tracer.Start(ctx, "webhook.process", trace.WithAttributes(
		attribute.String("event_id", cmd.EventID),
	))
	defer span.End()

	event, err := uc.eventRepo.FindByEventID(ctx, cmd.EventID)
	if err != nil {
		span.RecordError(err)
		if errors.IsNotFound(err) {
			// The queue outlived the row. Nothing left to do.
			return Outcome{Terminal: true}, err
		}
		return Outcome{}, fmt.Errorf("load webhook event: %w", err)
	}
	span.SetAttributes(attribute.String("event_type", event.EventType()))

	if event.IsProcessed() {
		return Outcome{Terminal: true, RetryCount: event.RetryCount()}, nil
	}

	if err := event.MarkProcessing(); err != nil {
		span.RecordError(err)
		return Outcome{Terminal: true, RetryCount: event.RetryCount()}, err
	}
	if err := uc.eventRepo.Save(ctx, event); err != nil {
		span.RecordError(err)
		return Outcome{RetryCount: event.RetryCount()}, fmt.Errorf("claim webhook event: %w", err)
	}

	if err := uc.dispatch(ctx, event); err != nil {
		span.RecordError(err)
		return uc.fail(ctx, event, err)
	}

	if err := event.MarkProcessed(); err != nil {
		span.RecordError(err)
		return uc.fail(ctx, event, err)
	}
	if err := uc.eventRepo.Save(ctx, event); err != nil {
		// The side effects are committed and replay-safe; redeliver so the
		// row catches up.
		span.RecordError(err)
		return Outcome{RetryCount: event.RetryCount()}, fmt.Errorf("finish webhook event: %w", err)
	}

	uc.logger.InfoContext(ctx, "webhook event processed",
		"event_id", event.EventID(), "event_type", event.EventType())
	return Outcome{Terminal: true, RetryCount: event.RetryCount()}, nil
}

func (uc *ProcessWebhookUseCase) dispatch(ctx context.Context, event *entities.WebhookEvent) error {
	switch event.EventType() {
	case EventPaymentSucceeded:
		return uc.paymentSucceeded(ctx, event)
	case EventPaymentFailed:
		return uc.paymentFailed(ctx, event)
	default:
		// Unknown kinds are acknowledged, or every new gateway event type
		// would wedge the queue.
		uc.logger.WarnContext(ctx, "ignoring unknown webhook event type",
			"event_id", event.EventID(), "event_type", event.EventType())
		return nil
	}
}

// paymentSucceeded marks the intent SUCCEEDED and credits the wallet. Both
// halves tolerate replays: a repeated success is a no-op on the intent, and
// the deposit resolves to the original transaction by reference id.
func (uc *ProcessWebhookUseCase) paymentSucceeded(ctx context.Context, event *entities.WebhookEvent) error {
	intent, err := uc.intentRepo.FindByGatewayPaymentID(ctx, event.EventID())
	if err != nil {
		return fmt.Errorf("resolve payment intent: %w", err)
	}

	response, paymentMethod := parseGatewayPayload(event.Payload())
	if err := intent.MarkSucceeded(response, paymentMethod); err != nil {
		return err
	}
	if err := uc.intentRepo.Save(ctx, intent); err != nil {
		return fmt.Errorf("save payment intent: %w", err)
	}

	result, err := uc.deposit.Execute(ctx, dtos.DepositCommand{
		UserID:           intent.UserID().String(),
		Amount:           intent.Amount().String(),
		GatewayPaymentID: intent.GatewayPaymentID(),
	})
	if err != nil {
		return err
	}
	if result.Duplicate {
		uc.logger.InfoContext(ctx, "deposit already applied",
			"event_id", event.EventID(), "transaction_id", result.Transaction.ID)
	}
	return nil
}

// paymentFailed records the failure and the gateway's reason on the intent.
// No wallet mutation.
func (uc *ProcessWebhookUseCase) paymentFailed(ctx context.Context, event *entities.WebhookEvent) error {
	intent, err := uc.intentRepo.FindByGatewayPaymentID(ctx, event.EventID())
	if err != nil {
		return fmt.Errorf("resolve payment intent: %w", err)
	}

	response, _ := parseGatewayPayload(event.Payload())
	reason, _ := response["error_message"].(string)
	if reason == "" {
		reason = "Payment failed"
	}
	if err := intent.MarkFailed(response, reason); err != nil {
		return err
	}
	if err := uc.intentRepo.Save(ctx, intent); err != nil {
		return fmt.Errorf("save payment intent: %w", err)
	}
	return nil
}

// fail records the failed attempt. Whether the delivery is terminal follows
// from the cause and the budget: infrastructure failures and lost races are
// redelivered while retries remain, everything else stays FAILED for
// operators.
func (uc *ProcessWebhookUseCase) fail(ctx context.Context, event *entities.WebhookEvent, cause error) (Outcome, error) {
	if err := event.MarkFailed(cause.Error()); err != nil {
		return Outcome{Terminal: true, RetryCount: event.RetryCount()}, cause
	}
	if err := uc.eventRepo.Save(ctx, event); err != nil {
		uc.logger.ErrorContext(ctx, "persist webhook failure",
			"event_id", event.EventID(), "error", err)
	}

	terminal := !errors.IsRetryable(cause) || !event.CanRetry(uc.maxRetries)
	if terminal {
		uc.logger.ErrorContext(ctx, "webhook event failed terminally",
			"event_id", event.EventID(), "event_type", event.EventType(),
			"retry_count", event.RetryCount(), "error", cause)
	}
	return Outcome{Terminal: terminal, RetryCount: event.RetryCount()}, cause
}

// parseGatewayPayload decodes the stored body into the gateway response map.
// The bytes already passed signature verification and the ingest-time field
// checks, so decode failures here degrade to an empty map instead of
// blocking the intent transition.
func parseGatewayPayload(raw []byte) (map[string]interface{}, string) {
	var response map[string]interface{}
	if err := json.Unmarshal(raw, &response); err != nil || response == nil {
		return map[string]interface{}{}, ""
	}
	paymentMethod, _ := response["payment_method"].(string)
	return response, paymentMethod
}
