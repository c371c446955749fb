package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListIntentsUseCase pages through the caller's payment intents, newest
// first.
type ListIntentsUseCase struct {
	intentRepo ports.PaymentIntentRepository
}

// NewListIntentsUseCase creates the use case.
func NewListIntentsUseCase(intentRepo ports.PaymentIntentRepository) *ListIntentsUseCase {
	return &ListIntentsUseCase{intentRepo: intentRepo}
}

// Execute lists the user's intents.
func (uc *ListIntentsUseCase) Execute(ctx context.Context, query dtos.ListPaymentIntentsQuery) (*dtos.PaymentIntentListDTO, error) {
	userID, err := uuid.Parse(query.UserID)
	if err != nil {
		return nil, errors.ValidationError{Field: "user_id", Message: "invalid user id format"}
	}

	offset, limit := query.Offset, query.Limit
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	intents, err := uc.intentRepo.FindByUserID(ctx, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list payment intents: %w", err)
	}

	return &dtos.PaymentIntentListDTO{
		Intents: dtos.ToPaymentIntentDTOList(intents),
		Offset:  offset,
		Limit:   limit,
	}, nil
}
