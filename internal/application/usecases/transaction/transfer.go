// Package transaction implements the money movement use cases: wallet to
// wallet transfers driven by clients and gateway deposits driven by the
// webhook pipeline.
package transaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/entities"
	"github.com/centralpay/paycore/internal/domain/errors"
	"github.com/centralpay/paycore/internal/domain/valueobjects"
	"github.com/centralpay/paycore/internal/pkg/tracing"
)

var tracer = tracing.Tracer("transfer-service")

// Limits bound the amount of a single client-initiated movement. Deposits
// are exempt: their amounts were accepted by the gateway already.
type Limits struct {
	MinAmount valueobjects.Money
	MaxAmount valueobjects.Money
}

// TransferUseCase moves funds between two users' wallets.
//
// The movement runs in two phases. Phase one inserts the transaction header
// in its own committed statement, so the attempt is visible no matter what
// happens next. Phase two runs the balance mutation inside one locked
// database transaction; if it fails, the header is flipped to FAILED in
// another standalone statement and keeps the error message. A FAILED header
// row therefore survives the rollback of the movement it describes.
type TransferUseCase struct {
	userRepo        ports.UserRepository
	walletRepo      ports.WalletRepository
	transactionRepo ports.TransactionRepository
	ledgerRepo      ports.LedgerRepository
	cache           ports.IdempotencyCache
	uow             ports.UnitOfWork
	limits          Limits
}

// NewTransferUseCase creates the transfer use case.
func NewTransferUseCase(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	transactionRepo ports.TransactionRepository,
	ledgerRepo ports.LedgerRepository,
	cache ports.IdempotencyCache,
	uow ports.UnitOfWork,
	limits Limits,
) *TransferUseCase {
	return &TransferUseCase{
		userRepo:        userRepo,
		walletRepo:      walletRepo,
		transactionRepo: transactionRepo,
		ledgerRepo:      ledgerRepo,
		cache:           cache,
		uow:             uow,
		limits:          limits,
	}
}

// Execute performs the transfer. Retries carrying the same idempotency key
// return the original transaction with Duplicate set instead of moving
// funds twice.
func (uc *TransferUseCase) Execute(ctx context.Context, cmd dtos.TransferCommand) (*dtos.TransferResultDTO, error) {
	ctx, span := tracer.Start(ctx, "transfer.Execute", trace.WithAttributes(
		attribute.String("from_user_id", cmd.FromUserID),
		attribute.String("to_user_id", cmd.ToUserID),
		attribute.String("amount", cmd.Amount),
	))
	defer span.End()

	fromUserID, err := uuid.Parse(cmd.FromUserID)
	if err != nil {
		return nil, errors.ValidationError{Field: "from_user_id", Message: "invalid user id format"}
	}
	toUserID, err := uuid.Parse(cmd.ToUserID)
	if err != nil {
		return nil, errors.ValidationError{Field: "to_user_id", Message: "invalid user id format"}
	}
	if fromUserID == toUserID {
		return nil, errors.NewInvalidTransaction("cannot transfer to your own wallet")
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

	// Both parties are gated on their stored KYC state, read fresh per call.
	sender, err := uc.userRepo.FindByID(ctx, fromUserID)
	if err != nil {
		return nil, fmt.Errorf("load sender: %w", err)
	}
	if cause := sender.EnsureCanTransact(); cause != nil {
		return nil, errors.NewDomainError(errors.KindInvalidTransaction, "sender is not allowed to transact", cause)
	}
	recipient, err := uc.userRepo.FindByID(ctx, toUserID)
	if err != nil {
		return nil, fmt.Errorf("load recipient: %w", err)
	}
	if cause := recipient.EnsureCanTransact(); cause != nil {
		return nil, errors.NewDomainError(errors.KindInvalidTransaction, "recipient is not allowed to transact", cause)
	}

	fromWallet, err := uc.walletRepo.FindByUserID(ctx, fromUserID)
	if err != nil {
		return nil, fmt.Errorf("load sender wallet: %w", err)
	}
	toWallet, err := uc.walletRepo.FindByUserID(ctx, toUserID)
	if err != nil {
		return nil, fmt.Errorf("load recipient wallet: %w", err)
	}

	referenceID := cmd.IdempotencyKey
	if referenceID == "" {
		referenceID = entities.NewReferenceID()
	} else if existing, found, err := uc.lookupExisting(ctx, referenceID); err != nil {
		return nil, err
	} else if found {
		return uc.duplicateResult(ctx, existing), nil
	}

	transfer, err := entities.NewTransfer(referenceID, fromWallet.ID(), toWallet.ID(), amount, cmd.Description)
	if err != nil {
		return nil, err
	}
	for key, value := range cmd.Metadata {
		if err := transfer.AddMetadata(key, value); err != nil {
			return nil, err
		}
	}
	if err := transfer.StartProcessing(); err != nil {
		return nil, err
	}

	// Phase one: the header insert commits on its own. A duplicate reference
	// means another request with the same key won the race.
	if err := uc.transactionRepo.Save(ctx, transfer); err != nil {
		if errors.IsDuplicateTransaction(err) {
			existing, ferr := uc.transactionRepo.FindByReferenceID(ctx, referenceID)
			if ferr != nil {
				return nil, ferr
			}
			return uc.duplicateResult(ctx, existing), nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	span.SetAttributes(attribute.String("transaction_id", transfer.ID().String()))

	// The movement must not be torn down by the client hanging up once the
	// header exists. Values (request id, trace) stay on the context.
	ctx = context.WithoutCancel(ctx)

	var completed *entities.Transaction
	err = uc.uow.ExecuteWithRetry(ctx, func(txCtx context.Context) error {
		moved, err := uc.moveFunds(txCtx, transfer.ID(), fromUserID, toUserID, amount)
		if err != nil {
			return err
		}
		completed = moved
		return nil
	})
	if err != nil {
		span.RecordError(err)
		uc.failTransfer(ctx, transfer.ID(), err)
		return nil, err
	}

	// Best effort: the unique index on reference_id stays authoritative.
	_ = uc.cache.Set(ctx, referenceID, completed.ID())

	return &dtos.TransferResultDTO{Transaction: dtos.ToTransactionDTO(completed)}, nil
}

// moveFunds runs inside one database transaction and may run more than once
// when the database aborts an attempt. It reloads all rows itself, so every
// attempt starts from committed state.
func (uc *TransferUseCase) moveFunds(
	ctx context.Context,
	transactionID uuid.UUID,
	fromUserID, toUserID uuid.UUID,
	amount valueobjects.Money,
) (*entities.Transaction, error) {
	// One child span per attempt, so serialization retries show up in traces.
	ctx, span := tracer.Start(ctx, "transfer.moveFunds")
	defer span.End()

	transfer, err := uc.transactionRepo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("reload transaction: %w", err)
	}

	// Lock both wallets in lexicographic user id order. Every transfer
	// acquires its locks in the same global order, which rules out
	// deadlocks between opposing transfers.
	lockOrder := []uuid.UUID{fromUserID, toUserID}
	if strings.Compare(toUserID.String(), fromUserID.String()) < 0 {
		lockOrder[0], lockOrder[1] = toUserID, fromUserID
	}

	wallets := make(map[uuid.UUID]*entities.Wallet, 2)
	for _, userID := range lockOrder {
		w, err := uc.walletRepo.FindByUserIDForUpdate(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("lock wallet: %w", err)
		}
		wallets[userID] = w
	}

	fromWallet := wallets[fromUserID]
	toWallet := wallets[toUserID]
	fromBefore := fromWallet.Balance()
	toBefore := toWallet.Balance()

	if err := fromWallet.Debit(amount); err != nil {
		return nil, err
	}
	if err := toWallet.Credit(amount); err != nil {
		return nil, err
	}

	if err := uc.walletRepo.Save(ctx, fromWallet); err != nil {
		return nil, fmt.Errorf("save sender wallet: %w", err)
	}
	if err := uc.walletRepo.Save(ctx, toWallet); err != nil {
		return nil, fmt.Errorf("save recipient wallet: %w", err)
	}

	debit, err := entities.NewDebit(transfer.ID(), fromWallet.ID(), amount, fromWallet.Balance())
	if err != nil {
		return nil, err
	}
	credit, err := entities.NewCredit(transfer.ID(), toWallet.ID(), amount, toWallet.Balance())
	if err != nil {
		return nil, err
	}
	if err := uc.ledgerRepo.SaveAll(ctx, []*entities.LedgerEntry{debit, credit}); err != nil {
		return nil, fmt.Errorf("append ledger entries: %w", err)
	}

	transfer.RecordTransferBalances(fromBefore, fromWallet.Balance(), toBefore, toWallet.Balance())
	if err := transfer.MarkCompleted(); err != nil {
		return nil, err
	}
	if err := uc.transactionRepo.Save(ctx, transfer); err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}

	return transfer, nil
}

// failTransfer flips the header to FAILED in a standalone statement, outside
// the rolled-back movement. Best effort: the original error is what the
// caller sees either way.
func (uc *TransferUseCase) failTransfer(ctx context.Context, transactionID uuid.UUID, cause error) {
	transfer, err := uc.transactionRepo.FindByID(ctx, transactionID)
	if err != nil || transfer.IsFinal() {
		return
	}
	if err := transfer.MarkFailed(cause.Error()); err != nil {
		return
	}
	_ = uc.transactionRepo.Save(ctx, transfer)
}

// lookupExisting resolves an idempotency key, consulting the cache before
// the unique index.
func (uc *TransferUseCase) lookupExisting(ctx context.Context, referenceID string) (*entities.Transaction, bool, error) {
	if id, ok, err := uc.cache.Get(ctx, referenceID); err == nil && ok {
		if tx, err := uc.transactionRepo.FindByID(ctx, id); err == nil {
			return tx, true, nil
		}
		// The mapping points at a row that does not load. Drop it so later
		// requests go straight to the unique index.
		_ = uc.cache.Invalidate(ctx, referenceID)
	}

	tx, err := uc.transactionRepo.FindByReferenceID(ctx, referenceID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("check idempotency: %w", err)
	}
	return tx, true, nil
}

func (uc *TransferUseCase) duplicateResult(ctx context.Context, existing *entities.Transaction) *dtos.TransferResultDTO {
	_ = uc.cache.Set(ctx, existing.ReferenceID(), existing.ID())
	return &dtos.TransferResultDTO{
		Transaction: dtos.ToTransactionDTO(existing),
		Duplicate:   true,
	}
}
