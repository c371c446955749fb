package wallet

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

// ListLedgerUseCase pages through the entries posted to the caller's
// wallet, newest first. The balance_after sequence is the wallet's balance
// history.
type ListLedgerUseCase struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
}

// NewListLedgerUseCase creates the use case.
func NewListLedgerUseCase(walletRepo ports.WalletRepository, ledgerRepo ports.LedgerRepository) *ListLedgerUseCase {
	return &ListLedgerUseCase{walletRepo: walletRepo, ledgerRepo: ledgerRepo}
}

// Execute lists the user's ledger entries.
func (uc *ListLedgerUseCase) Execute(ctx context.Context, query dtos.ListLedgerQuery) (*dtos.LedgerListDTO, error) {
	userID, err := uuid.Parse(query.UserID)
	if err != nil {
		return nil, errors.ValidationError{Field: "user_id", Message: "invalid user id format"}
	}

	wallet, err := uc.walletRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
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

	entries, err := uc.ledgerRepo.FindByWalletID(ctx, wallet.ID(), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	return &dtos.LedgerListDTO{
		Entries: dtos.ToLedgerEntryDTOList(entries),
		Offset:  offset,
		Limit:   limit,
	}, nil
}
