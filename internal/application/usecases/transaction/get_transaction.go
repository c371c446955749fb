package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/errors"
)

// GetTransactionUseCase fetches one transaction for a participant.
type GetTransactionUseCase struct {
	transactionRepo ports.TransactionRepository
	walletRepo      ports.WalletRepository
	ledgerRepo      ports.LedgerRepository
}

// NewGetTransactionUseCase creates the use case.
func NewGetTransactionUseCase(
	transactionRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
) *GetTransactionUseCase {
	return &GetTransactionUseCase{
		transactionRepo: transactionRepo,
		walletRepo:      walletRepo,
		ledgerRepo:      ledgerRepo,
	}
}

// Execute returns the transaction and its ledger entries when the
// requester's wallet is one of its legs. Non-participants get NOT_FOUND,
// never a confirmation the id exists.
func (uc *GetTransactionUseCase) Execute(ctx context.Context, query dtos.GetTransactionQuery) (*dtos.TransactionDetailDTO, error) {
	transactionID, err := uuid.Parse(query.TransactionID)
	if err != nil {
		return nil, errors.ValidationError{Field: "transaction_id", Message: "invalid transaction id format"}
	}
	requesterID, err := uuid.Parse(query.RequesterID)
	if err != nil {
		return nil, errors.ValidationError{Field: "requester_id", Message: "invalid user id format"}
	}

	tx, err := uc.transactionRepo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	wallet, err := uc.walletRepo.FindByUserID(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("load requester wallet: %w", err)
	}
	if !tx.IsParticipant(wallet.ID()) {
		return nil, errors.NewNotFound("transaction")
	}

	// The header already carries both sides' balances, so showing every
	// leg to either participant reveals nothing the header does not.
	entries, err := uc.ledgerRepo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("load ledger entries: %w", err)
	}

	return &dtos.TransactionDetailDTO{
		TransactionDTO: dtos.ToTransactionDTO(tx),
		LedgerEntries:  dtos.ToLedgerEntryDTOList(entries),
	}, nil
}
