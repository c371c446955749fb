package entities

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/domain/errors"
	"github.com/centralpay/paycore/internal/domain/valueobjects"
)

// TransactionType classifies the money movement a transaction records.
type TransactionType string

const (
	TransactionTypeTransfer   TransactionType = "TRANSFER"   // Internal transfer between two wallets
	TransactionTypeDeposit    TransactionType = "DEPOSIT"    // External funds credited via the payment gateway
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL" // Funds leaving the platform
	TransactionTypeRefund     TransactionType = "REFUND"     // Reversal of a previous transaction
	TransactionTypeFee        TransactionType = "FEE"        // Platform fee
)

// IsValid checks if the transaction type is known.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeTransfer, TransactionTypeDeposit, TransactionTypeWithdrawal,
		TransactionTypeRefund, TransactionTypeFee:
		return true
	default:
		return false
	}
}

// TransactionStatus represents the current state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusProcessing TransactionStatus = "PROCESSING"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusCancelled  TransactionStatus = "CANCELLED"
)

// IsValid checks if the transaction status is known.
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusProcessing, TransactionStatusCompleted,
		TransactionStatusFailed, TransactionStatusCancelled:
		return true
	default:
		return false
	}
}

// IsFinal returns true if the status is terminal.
func (s TransactionStatus) IsFinal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed || s == TransactionStatusCancelled
}

// Transaction is the header row of a money movement. A completed transfer
// always carries two ledger entries (one debit, one credit) written in the
// same database transaction as the balance updates.
//
// A transaction that reaches COMPLETED is immutable. A FAILED transaction
// keeps its error message and survives the rollback of the movement it
// attempted to record.
type Transaction struct {
	id          uuid.UUID
	referenceID string // Unique, client-supplied or generated; the idempotency handle
	txType      TransactionType
	status      TransactionStatus

	fromWalletID *uuid.UUID // nil for deposits
	toWalletID   *uuid.UUID // nil for withdrawals
	amount       valueobjects.Money
	description  string

	// Balance snapshots taken inside the locked transfer, for audit.
	fromBalanceBefore *valueobjects.Money
	fromBalanceAfter  *valueobjects.Money
	toBalanceBefore   *valueobjects.Money
	toBalanceAfter    *valueobjects.Money

	errorMessage string
	retryCount   int
	metadata     map[string]interface{}

	createdAt   time.Time
	completedAt *time.Time
	updatedAt   time.Time
}

// NewReferenceID generates a reference of the form TXN-<16 uppercase hex>.
// Used when the client does not supply an idempotency key.
func NewReferenceID() string {
	u := uuid.New()
	return "TXN-" + strings.ToUpper(hex.EncodeToString(u[:8]))
}

// maxReferenceIDLength caps the idempotency handle at what the data model
// promises. Mirrors the CHECK constraint on transactions.reference_id.
const maxReferenceIDLength = 100

// validateReferenceID guards both transaction factories, so generated
// references (deposits) observe the same bound as client-supplied keys.
func validateReferenceID(referenceID string) error {
	if referenceID == "" {
		return errors.ValidationError{
			Field:   "referenceID",
			Message: "reference id is required",
		}
	}
	if len(referenceID) > maxReferenceIDLength {
		return errors.NewInvalidTransaction(
			fmt.Sprintf("reference id must not exceed %d characters", maxReferenceIDLength),
		)
	}
	return nil
}

// NewTransfer creates a PENDING wallet-to-wallet transfer.
func NewTransfer(
	referenceID string,
	fromWalletID, toWalletID uuid.UUID,
	amount valueobjects.Money,
	description string,
) (*Transaction, error) {
	if err := validateReferenceID(referenceID); err != nil {
		return nil, err
	}
	if fromWalletID == toWalletID {
		return nil, errors.NewInvalidTransaction("source and destination wallets must differ")
	}
	if !amount.IsPositive() {
		return nil, errors.NewInvalidTransaction("transaction amount must be positive")
	}

	now := time.Now()
	return &Transaction{
		id:           uuid.New(),
		referenceID:  referenceID,
		txType:       TransactionTypeTransfer,
		status:       TransactionStatusPending,
		fromWalletID: &fromWalletID,
		toWalletID:   &toWalletID,
		amount:       amount,
		description:  description,
		metadata:     make(map[string]interface{}),
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// NewDeposit creates a PENDING gateway deposit into a single wallet.
func NewDeposit(
	referenceID string,
	toWalletID uuid.UUID,
	amount valueobjects.Money,
	description string,
) (*Transaction, error) {
	if err := validateReferenceID(referenceID); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, errors.NewInvalidTransaction("transaction amount must be positive")
	}

	now := time.Now()
	return &Transaction{
		id:          uuid.New(),
		referenceID: referenceID,
		txType:      TransactionTypeDeposit,
		status:      TransactionStatusPending,
		toWalletID:  &toWalletID,
		amount:      amount,
		description: description,
		metadata:    make(map[string]interface{}),
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructTransaction rebuilds a Transaction from stored data.
func ReconstructTransaction(
	id uuid.UUID,
	referenceID string,
	txType TransactionType,
	status TransactionStatus,
	fromWalletID, toWalletID *uuid.UUID,
	amount valueobjects.Money,
	description string,
	fromBalanceBefore, fromBalanceAfter, toBalanceBefore, toBalanceAfter *valueobjects.Money,
	errorMessage string,
	retryCount int,
	metadataJSON []byte,
	createdAt time.Time,
	completedAt *time.Time,
	updatedAt time.Time,
) (*Transaction, error) {
	var metadata map[string]interface{}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			return nil, err
		}
	} else {
		metadata = make(map[string]interface{})
	}

	return &Transaction{
		id:                id,
		referenceID:       referenceID,
		txType:            txType,
		status:            status,
		fromWalletID:      fromWalletID,
		toWalletID:        toWalletID,
		amount:            amount,
		description:       description,
		fromBalanceBefore: fromBalanceBefore,
		fromBalanceAfter:  fromBalanceAfter,
		toBalanceBefore:   toBalanceBefore,
		toBalanceAfter:    toBalanceAfter,
		errorMessage:      errorMessage,
		retryCount:        retryCount,
		metadata:          metadata,
		createdAt:         createdAt,
		completedAt:       completedAt,
		updatedAt:         updatedAt,
	}, nil
}

func (t *Transaction) ID() uuid.UUID                          { return t.id }
func (t *Transaction) ReferenceID() string                    { return t.referenceID }
func (t *Transaction) Type() TransactionType                  { return t.txType }
func (t *Transaction) Status() TransactionStatus              { return t.status }
func (t *Transaction) FromWalletID() *uuid.UUID               { return t.fromWalletID }
func (t *Transaction) ToWalletID() *uuid.UUID                 { return t.toWalletID }
func (t *Transaction) Amount() valueobjects.Money             { return t.amount }
func (t *Transaction) Description() string                    { return t.description }
func (t *Transaction) FromBalanceBefore() *valueobjects.Money { return t.fromBalanceBefore }
func (t *Transaction) FromBalanceAfter() *valueobjects.Money  { return t.fromBalanceAfter }
func (t *Transaction) ToBalanceBefore() *valueobjects.Money   { return t.toBalanceBefore }
func (t *Transaction) ToBalanceAfter() *valueobjects.Money    { return t.toBalanceAfter }
func (t *Transaction) ErrorMessage() string                   { return t.errorMessage }
func (t *Transaction) RetryCount() int                        { return t.retryCount }
func (t *Transaction) Metadata() map[string]interface{}       { return t.metadata }
func (t *Transaction) CreatedAt() time.Time                   { return t.createdAt }
func (t *Transaction) CompletedAt() *time.Time                { return t.completedAt }
func (t *Transaction) UpdatedAt() time.Time                   { return t.updatedAt }

// MetadataJSON serializes the metadata map for persistence.
func (t *Transaction) MetadataJSON() ([]byte, error) {
	if len(t.metadata) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(t.metadata)
}

func (t *Transaction) IsPending() bool    { return t.status == TransactionStatusPending }
func (t *Transaction) IsProcessing() bool { return t.status == TransactionStatusProcessing }
func (t *Transaction) IsCompleted() bool  { return t.status == TransactionStatusCompleted }
func (t *Transaction) IsFailed() bool     { return t.status == TransactionStatusFailed }
func (t *Transaction) IsFinal() bool      { return t.status.IsFinal() }

// IsParticipant reports whether the wallet is either leg of the transaction.
func (t *Transaction) IsParticipant(walletID uuid.UUID) bool {
	if t.fromWalletID != nil && *t.fromWalletID == walletID {
		return true
	}
	if t.toWalletID != nil && *t.toWalletID == walletID {
		return true
	}
	return false
}

// AddMetadata attaches a metadata entry. Rejected once the transaction is final.
func (t *Transaction) AddMetadata(key string, value interface{}) error {
	if t.IsFinal() {
		return errors.NewBusinessRuleViolation(
			"TRANSACTION_FINAL",
			"cannot modify a finalized transaction",
			map[string]interface{}{"status": t.status},
		)
	}

	t.metadata[key] = value
	t.updatedAt = time.Now()
	return nil
}

// RecordTransferBalances stores the before and after balances of both legs.
// Called inside the locked transfer, before the transaction is completed.
func (t *Transaction) RecordTransferBalances(fromBefore, fromAfter, toBefore, toAfter valueobjects.Money) {
	t.fromBalanceBefore = &fromBefore
	t.fromBalanceAfter = &fromAfter
	t.toBalanceBefore = &toBefore
	t.toBalanceAfter = &toAfter
	t.updatedAt = time.Now()
}

// RecordDepositBalances stores the before and after balances of the credited wallet.
func (t *Transaction) RecordDepositBalances(toBefore, toAfter valueobjects.Money) {
	t.toBalanceBefore = &toBefore
	t.toBalanceAfter = &toAfter
	t.updatedAt = time.Now()
}

// StartProcessing transitions PENDING to PROCESSING.
func (t *Transaction) StartProcessing() error {
	if !t.IsPending() {
		return errors.NewBusinessRuleViolation(
			"TRANSACTION_NOT_PENDING",
			"only pending transactions can start processing",
			map[string]interface{}{"status": t.status},
		)
	}

	t.status = TransactionStatusProcessing
	t.updatedAt = time.Now()
	return nil
}

// MarkCompleted transitions PROCESSING to COMPLETED and stamps completedAt.
func (t *Transaction) MarkCompleted() error {
	if !t.IsProcessing() {
		return errors.NewBusinessRuleViolation(
			"TRANSACTION_NOT_PROCESSING",
			"only processing transactions can be completed",
			map[string]interface{}{"status": t.status},
		)
	}

	now := time.Now()
	t.status = TransactionStatusCompleted
	t.completedAt = &now
	t.updatedAt = now
	return nil
}

// MarkFailed transitions PENDING or PROCESSING to FAILED with the error message.
// The failed header row outlives the rollback of the movement it attempted.
func (t *Transaction) MarkFailed(message string) error {
	if t.IsFinal() {
		return errors.NewBusinessRuleViolation(
			"TRANSACTION_FINAL",
			"cannot fail a finalized transaction",
			map[string]interface{}{"status": t.status},
		)
	}

	now := time.Now()
	t.status = TransactionStatusFailed
	t.errorMessage = message
	t.completedAt = &now
	t.updatedAt = now
	return nil
}

// Cancel transitions PENDING to CANCELLED.
func (t *Transaction) Cancel() error {
	if !t.IsPending() {
		return errors.NewBusinessRuleViolation(
			"TRANSACTION_NOT_PENDING",
			"only pending transactions can be cancelled",
			map[string]interface{}{"status": t.status},
		)
	}

	now := time.Now()
	t.status = TransactionStatusCancelled
	t.completedAt = &now
	t.updatedAt = now
	return nil
}
