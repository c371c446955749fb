package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/entities"
	"github.com/centralpay/paycore/internal/domain/errors"
	"github.com/centralpay/paycore/internal/domain/valueobjects"
)

// DepositUseCase credits a wallet from a succeeded gateway payment. It is
// driven by the webhook processor, never by clients, and shares the transfer
// engine's two-phase shape: header first, locked credit second.
//
// The reference id is derived from the gateway payment id, so replayed
// webhooks resolve to the transaction the first delivery created. No KYC
// gate applies: the user already owns the money.
type DepositUseCase struct {
	userRepo        ports.UserRepository
	walletRepo      ports.WalletRepository
	transactionRepo ports.TransactionRepository
	ledgerRepo      ports.LedgerRepository
	uow             ports.UnitOfWork
}

// NewDepositUseCase creates the deposit use case.
func NewDepositUseCase(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	transactionRepo ports.TransactionRepository,
	ledgerRepo ports.LedgerRepository,
	uow ports.UnitOfWork,
) *DepositUseCase {
	return &DepositUseCase{
		userRepo:        userRepo,
		walletRepo:      walletRepo,
		transactionRepo: transactionRepo,
		ledgerRepo:      ledgerRepo,
		uow:             uow,
	}
}

// Execute credits the user's wallet. Replays return the original transaction
// with Duplicate set.
func (uc *DepositUseCase) Execute(ctx context.Context, cmd dtos.DepositCommand) (*dtos.TransferResultDTO, error) {
	userID, err := uuid.Parse(cmd.UserID)
	if err != nil {
		return nil, errors.ValidationError{Field: "user_id", Message: "invalid user id format"}
	}
	if cmd.GatewayPaymentID == "" {
		return nil, errors.ValidationError{Field: "gateway_payment_id", Message: "gateway payment id is required"}
	}

	amount, err := valueobjects.NewMoney(cmd.Amount)
	if err != nil {
		return nil, errors.ValidationError{Field: "amount", Message: err.Error()}
	}
	if !amount.IsPositive() {
		return nil, errors.NewInvalidTransaction("deposit amount must be positive")
	}

	if _, err := uc.userRepo.FindByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	wallet, err := uc.walletRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	referenceID := "DEPOSIT-" + cmd.GatewayPaymentID

	if existing, err := uc.transactionRepo.FindByReferenceID(ctx, referenceID); err == nil {
		return &dtos.TransferResultDTO{Transaction: dtos.ToTransactionDTO(existing), Duplicate: true}, nil
	} else if !errors.IsNotFound(err) {
		return nil, fmt.Errorf("check idempotency: %w", err)
	}

	deposit, err := entities.NewDeposit(
		referenceID,
		wallet.ID(),
		amount,
		fmt.Sprintf("Deposit via payment gateway (%s)", cmd.GatewayPaymentID),
	)
	if err != nil {
		return nil, err
	}
	if err := deposit.StartProcessing(); err != nil {
		return nil, err
	}

	if err := uc.transactionRepo.Save(ctx, deposit); err != nil {
		if errors.IsDuplicateTransaction(err) {
			existing, ferr := uc.transactionRepo.FindByReferenceID(ctx, referenceID)
			if ferr != nil {
				return nil, ferr
			}
			return &dtos.TransferResultDTO{Transaction: dtos.ToTransactionDTO(existing), Duplicate: true}, nil
		}
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	ctx = context.WithoutCancel(ctx)

	var completed *entities.Transaction
	err = uc.uow.ExecuteWithRetry(ctx, func(txCtx context.Context) error {
		credited, err := uc.creditWallet(txCtx, deposit.ID(), userID, amount)
		if err != nil {
			return err
		}
		completed = credited
		return nil
	})
	if err != nil {
		uc.failDeposit(ctx, deposit.ID(), err)
		return nil, err
	}

	return &dtos.TransferResultDTO{Transaction: dtos.ToTransactionDTO(completed)}, nil
}

func (uc *DepositUseCase) creditWallet(
	ctx context.Context,
	transactionID, userID uuid.UUID,
	amount valueobjects.Money,
) (*entities.Transaction, error) {
	deposit, err := uc.transactionRepo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("reload transaction: %w", err)
	}

	wallet, err := uc.walletRepo.FindByUserIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}

	before := wallet.Balance()
	if err := wallet.Credit(amount); err != nil {
		return nil, err
	}
	if err := uc.walletRepo.Save(ctx, wallet); err != nil {
		return nil, fmt.Errorf("save wallet: %w", err)
	}

	credit, err := entities.NewCredit(deposit.ID(), wallet.ID(), amount, wallet.Balance())
	if err != nil {
		return nil, err
	}
	if err := uc.ledgerRepo.SaveAll(ctx, []*entities.LedgerEntry{credit}); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}

	deposit.RecordDepositBalances(before, wallet.Balance())
	if err := deposit.MarkCompleted(); err != nil {
		return nil, err
	}
	if err := uc.transactionRepo.Save(ctx, deposit); err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}

	return deposit, nil
}

func (uc *DepositUseCase) failDeposit(ctx context.Context, transactionID uuid.UUID, cause error) {
	deposit, err := uc.transactionRepo.FindByID(ctx, transactionID)
	if err != nil || deposit.IsFinal() {
		return
	}
	if err := deposit.MarkFailed(cause.Error()); err != nil {
		return
	}
	_ = uc.transactionRepo.Save(ctx, deposit)
}
