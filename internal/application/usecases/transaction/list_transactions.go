package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/entities"
	"github.com/centralpay/paycore/internal/domain/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListTransactionsUseCase pages through the transactions a user's wallet
// participates in.
type ListTransactionsUseCase struct {
	transactionRepo ports.TransactionRepository
	walletRepo      ports.WalletRepository
}

// NewListTransactionsUseCase creates the use case.
func NewListTransactionsUseCase(
	transactionRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
) *ListTransactionsUseCase {
	return &ListTransactionsUseCase{
		transactionRepo: transactionRepo,
		walletRepo:      walletRepo,
	}
}

// Execute lists transactions where the user's wallet is either leg.
func (uc *ListTransactionsUseCase) Execute(ctx context.Context, query dtos.ListTransactionsQuery) (*dtos.TransactionListDTO, error) {
	userID, err := uuid.Parse(query.UserID)
	if err != nil {
		return nil, errors.ValidationError{Field: "user_id", Message: "invalid user id format"}
	}

	wallet, err := uc.walletRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	walletID := wallet.ID()
	filter := ports.TransactionFilter{WalletID: &walletID}

	if query.Type != "" {
		txType := entities.TransactionType(query.Type)
		if !txType.IsValid() {
			return nil, errors.ValidationError{Field: "type", Message: "unknown transaction type"}
		}
		filter.Type = &txType
	}
	if query.Status != "" {
		txStatus := entities.TransactionStatus(query.Status)
		if !txStatus.IsValid() {
			return nil, errors.ValidationError{Field: "status", Message: "unknown transaction status"}
		}
		filter.Status = &txStatus
	}

	offset, limit := normalizePage(query.Offset, query.Limit)

	transactions, err := uc.transactionRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	return &dtos.TransactionListDTO{
		Transactions: dtos.ToTransactionDTOList(transactions),
		Offset:       offset,
		Limit:        limit,
	}, nil
}

func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}
