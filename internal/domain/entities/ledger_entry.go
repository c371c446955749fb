package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/domain/errors"
	"github.com/centralpay/paycore/internal/domain/valueobjects"
)

// LedgerEntryType marks which side of a movement an entry records.
type LedgerEntryType string

const (
	LedgerEntryDebit  LedgerEntryType = "DEBIT"
	LedgerEntryCredit LedgerEntryType = "CREDIT"
)

// IsValid checks if the entry type is known.
func (t LedgerEntryType) IsValid() bool {
	return t == LedgerEntryDebit || t == LedgerEntryCredit
}

// LedgerEntry is one immutable line of the double-entry ledger. Every
// completed transfer writes exactly two: a DEBIT against the source wallet
// and a CREDIT against the destination, both carrying the wallet's balance
// after the movement. Entries are never updated or deleted.
type LedgerEntry struct {
	id            uuid.UUID
	transactionID uuid.UUID
	walletID      uuid.UUID
	entryType     LedgerEntryType
	amount        valueobjects.Money
	balanceAfter  valueobjects.Money
	createdAt     time.Time
}

// NewDebit creates a DEBIT entry against a wallet.
func NewDebit(transactionID, walletID uuid.UUID, amount, balanceAfter valueobjects.Money) (*LedgerEntry, error) {
	return newLedgerEntry(transactionID, walletID, LedgerEntryDebit, amount, balanceAfter)
}

// NewCredit creates a CREDIT entry for a wallet.
func NewCredit(transactionID, walletID uuid.UUID, amount, balanceAfter valueobjects.Money) (*LedgerEntry, error) {
	return newLedgerEntry(transactionID, walletID, LedgerEntryCredit, amount, balanceAfter)
}

func newLedgerEntry(
	transactionID, walletID uuid.UUID,
	entryType LedgerEntryType,
	amount, balanceAfter valueobjects.Money,
) (*LedgerEntry, error) {
	if transactionID == uuid.Nil {
		return nil, errors.ValidationError{
			Field:   "transactionID",
			Message: "transaction id is required",
		}
	}
	if walletID == uuid.Nil {
		return nil, errors.ValidationError{
			Field:   "walletID",
			Message: "wallet id is required",
		}
	}
	if !amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	return &LedgerEntry{
		id:            uuid.New(),
		transactionID: transactionID,
		walletID:      walletID,
		entryType:     entryType,
		amount:        amount,
		balanceAfter:  balanceAfter,
		createdAt:     time.Now(),
	}, nil
}

// ReconstructLedgerEntry rebuilds a LedgerEntry from stored data.
func ReconstructLedgerEntry(
	id, transactionID, walletID uuid.UUID,
	entryType LedgerEntryType,
	amount, balanceAfter valueobjects.Money,
	createdAt time.Time,
) *LedgerEntry {
	return &LedgerEntry{
		id:            id,
		transactionID: transactionID,
		walletID:      walletID,
		entryType:     entryType,
		amount:        amount,
		balanceAfter:  balanceAfter,
		createdAt:     createdAt,
	}
}

func (e *LedgerEntry) ID() uuid.UUID                    { return e.id }
func (e *LedgerEntry) TransactionID() uuid.UUID         { return e.transactionID }
func (e *LedgerEntry) WalletID() uuid.UUID              { return e.walletID }
func (e *LedgerEntry) Type() LedgerEntryType            { return e.entryType }
func (e *LedgerEntry) Amount() valueobjects.Money       { return e.amount }
func (e *LedgerEntry) BalanceAfter() valueobjects.Money { return e.balanceAfter }
func (e *LedgerEntry) CreatedAt() time.Time             { return e.createdAt }

func (e *LedgerEntry) IsDebit() bool  { return e.entryType == LedgerEntryDebit }
func (e *LedgerEntry) IsCredit() bool { return e.entryType == LedgerEntryCredit }
