// Package payment implements payment intents: the client-facing half of the
// gateway integration. Crediting happens later, when the gateway's webhook
// reports the outcome.
package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/application/usecases/transaction"
	"github.com/centralpay/paycore/internal/domain/entities"
	"github.com/centralpay/paycore/internal/domain/errors"
	"github.com/centralpay/paycore/internal/domain/valueobjects"
)

// CreateIntentUseCase opens a PENDING payment intent. The generated
// gateway_payment_id is what webhook payloads carry back.
type CreateIntentUseCase struct {
	userRepo   ports.UserRepository
	intentRepo ports.PaymentIntentRepository
	limits     transaction.Limits
}

// NewCreateIntentUseCase creates the use case. Intents observe the same
// amount bounds as transfers.
func NewCreateIntentUseCase(
	userRepo ports.UserRepository,
	intentRepo ports.PaymentIntentRepository,
	limits transaction.Limits,
) *CreateIntentUseCase {
	return &CreateIntentUseCase{
		userRepo:   userRepo,
		intentRepo: intentRepo,
		limits:     limits,
	}
}

// Execute validates the caller and stores the intent.
func (uc *CreateIntentUseCase) Execute(ctx context.Context, cmd dtos.CreatePaymentIntentCommand) (*dtos.PaymentIntentDTO, error) {
	userID, err := uuid.Parse(cmd.UserID)
	if err != nil {
		return nil, errors.ValidationError{Field: "user_id", Message: "invalid user id format"}
	}

	amount, err := valueobjects.NewMoney(cmd.Amount)
	if err != nil {
		return nil, errors.ValidationError{Field: "amount", Message: err.Error()}
	}
	if amount.LessThan(uc.limits.MinAmount) || amount.GreaterThan(uc.limits.MaxAmount) {
		return nil, errors.NewInvalidTransaction(fmt.Sprintf(
			"amount must be between %s and %s", uc.limits.MinAmount, uc.limits.MaxAmount,
		))
	}

	user, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if cause := user.EnsureCanTransact(); cause != nil {
		return nil, errors.NewDomainError(errors.KindInvalidTransaction, "user is not allowed to transact", cause)
	}

	intent, err := entities.NewPaymentIntent(userID, amount, cmd.Currency, cmd.Description)
	if err != nil {
		return nil, err
	}
	for key, value := range cmd.Metadata {
		if err := intent.AddMetadata(key, value); err != nil {
			return nil, err
		}
	}
	if err := uc.intentRepo.Save(ctx, intent); err != nil {
		return nil, fmt.Errorf("save payment intent: %w", err)
	}

	dto := dtos.ToPaymentIntentDTO(intent)
	return &dto, nil
}
