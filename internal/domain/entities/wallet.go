package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/domain/errors"
	"github.com/centralpay/paycore/internal/domain/valueobjects"
)

// Wallet holds one user's balance. Exactly one wallet exists per user,
// created in the same transaction as the user.
//
// Invariant: balance >= 0 at every committed state. Credit and Debit
// mutate only the in-memory entity; persisting the new balance is the
// transfer engine's job, inside its locked database transaction. No
// other component may change a balance.
type Wallet struct {
	id        uuid.UUID
	userID    uuid.UUID
	balance   valueobjects.Money
	createdAt time.Time
	updatedAt time.Time
}

// NewWallet creates an empty wallet for a user.
func NewWallet(userID uuid.UUID) (*Wallet, error) {
	if userID == uuid.Nil {
		return nil, errors.ValidationError{
			Field:   "userID",
			Message: "user id is required",
		}
	}

	now := time.Now()
	return &Wallet{
		id:        uuid.New(),
		userID:    userID,
		balance:   valueobjects.ZeroMoney(),
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructWallet hydrates a Wallet from storage. No validation.
func ReconstructWallet(id, userID uuid.UUID, balance valueobjects.Money, createdAt, updatedAt time.Time) *Wallet {
	return &Wallet{
		id:        id,
		userID:    userID,
		balance:   balance,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (w *Wallet) ID() uuid.UUID               { return w.id }
func (w *Wallet) UserID() uuid.UUID           { return w.userID }
func (w *Wallet) Balance() valueobjects.Money { return w.balance }
func (w *Wallet) CreatedAt() time.Time        { return w.createdAt }
func (w *Wallet) UpdatedAt() time.Time        { return w.updatedAt }

// HasSufficientBalance reports whether a debit of amount would keep the
// balance non-negative.
func (w *Wallet) HasSufficientBalance(amount valueobjects.Money) bool {
	return w.balance.GreaterThanOrEqual(amount)
}

// Credit adds amount to the balance. Amount must be positive.
func (w *Wallet) Credit(amount valueobjects.Money) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}

	w.balance = w.balance.Add(amount)
	w.updatedAt = time.Now()
	return nil
}

// Debit subtracts amount from the balance. Amount must be positive and
// covered by the current balance.
func (w *Wallet) Debit(amount valueobjects.Money) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	if !w.HasSufficientBalance(amount) {
		return errors.NewInsufficientBalance(w.balance.String(), amount.String())
	}

	newBalance, err := w.balance.Subtract(amount)
	if err != nil {
		return errors.NewInsufficientBalance(w.balance.String(), amount.String())
	}

	w.balance = newBalance
	w.updatedAt = time.Now()
	return nil
}
