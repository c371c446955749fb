package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/errors"
)

// CancelIntentUseCase abandons a payment intent the gateway has not picked
// up yet. Only PENDING intents cancel; once the gateway is processing the
// payment its webhook decides the outcome.
type CancelIntentUseCase struct {
	intentRepo ports.PaymentIntentRepository
}

// NewCancelIntentUseCase creates the use case.
func NewCancelIntentUseCase(intentRepo ports.PaymentIntentRepository) *CancelIntentUseCase {
	return &CancelIntentUseCase{intentRepo: intentRepo}
}

// Execute cancels the intent when the requester owns it. Cancelling an
// already cancelled intent is a no-op; no money has moved for a PENDING
// intent, so there is nothing to roll back.
func (uc *CancelIntentUseCase) Execute(ctx context.Context, cmd dtos.CancelPaymentIntentCommand) (*dtos.PaymentIntentDTO, error) {
	intentID, err := uuid.Parse(cmd.IntentID)
	if err != nil {
		return nil, errors.ValidationError{Field: "intent_id", Message: "invalid payment intent id format"}
	}
	requesterID, err := uuid.Parse(cmd.RequesterID)
	if err != nil {
		return nil, errors.ValidationError{Field: "requester_id", Message: "invalid user id format"}
	}

	intent, err := uc.intentRepo.FindByID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.UserID() != requesterID {
		return nil, errors.NewNotFound("payment intent")
	}

	if intent.IsCancelled() {
		dto := dtos.ToPaymentIntentDTO(intent)
		return &dto, nil
	}
	if err := intent.Cancel(); err != nil {
		return nil, err
	}
	if err := uc.intentRepo.Save(ctx, intent); err != nil {
		return nil, fmt.Errorf("save payment intent: %w", err)
	}

	dto := dtos.ToPaymentIntentDTO(intent)
	return &dto, nil
}
