// Package wallet implements the read side of wallets: balance and ledger.
// All mutation goes through the transaction package.
package wallet

import (
	"context"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/errors"
)

// GetBalanceUseCase reads the caller's wallet.
type GetBalanceUseCase struct {
	walletRepo ports.WalletRepository
}

// NewGetBalanceUseCase creates the use case.
func NewGetBalanceUseCase(walletRepo ports.WalletRepository) *GetBalanceUseCase {
	return &GetBalanceUseCase{walletRepo: walletRepo}
}

// Execute returns the wallet owned by the user.
func (uc *GetBalanceUseCase) Execute(ctx context.Context, query dtos.GetBalanceQuery) (*dtos.WalletDTO, error) {
	userID, err := uuid.Parse(query.UserID)
	if err != nil {
		return nil, errors.ValidationError{Field: "user_id", Message: "invalid user id format"}
	}

	wallet, err := uc.walletRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := dtos.ToWalletDTO(wallet)
	return &result, nil
}
