package payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/errors"
)

// GetIntentUseCase fetches one payment intent for its owner.
type GetIntentUseCase struct {
	intentRepo ports.PaymentIntentRepository
}

// NewGetIntentUseCase creates the use case.
func NewGetIntentUseCase(intentRepo ports.PaymentIntentRepository) *GetIntentUseCase {
	return &GetIntentUseCase{intentRepo: intentRepo}
}

// Execute returns the intent when the requester owns it. Non-owners get
// NOT_FOUND, never a confirmation the id exists.
func (uc *GetIntentUseCase) Execute(ctx context.Context, query dtos.GetPaymentIntentQuery) (*dtos.PaymentIntentDTO, error) {
	intentID, err := uuid.Parse(query.IntentID)
	if err != nil {
		return nil, errors.ValidationError{Field: "intent_id", Message: "invalid payment intent id format"}
	}
	requesterID, err := uuid.Parse(query.RequesterID)
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

	dto := dtos.ToPaymentIntentDTO(intent)
	return &dto, nil
}
