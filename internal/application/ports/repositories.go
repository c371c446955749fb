// Package ports defines the interfaces the application layer depends on.
// Implementations live in the infrastructure layer.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/domain/entities"
	"github.com/centralpay/paycore/internal/domain/valueobjects"
)

// UserRepository stores users and their KYC state.
type UserRepository interface {
	// Save persists a user, inserting or updating by ID.
	Save(ctx context.Context, user *entities.User) error

	// UpdateKYCStatus persists a verification transition, guarded by the
	// status the transition started from. When the stored status no longer
	// matches, a concurrent reviewer won the race and a CONFLICT-class
	// domain error is returned; nothing is written.
	UpdateKYCStatus(ctx context.Context, user *entities.User, from entities.KYCStatus) error

	// FindByID loads a user, returning a NOT_FOUND domain error when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error)

	// ExistsByEmail checks uniqueness without loading the row.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// WalletRepository stores wallets. Balance mutations are only persisted
// through Save calls made inside a unit of work that previously locked the
// row with FindByUserIDForUpdate.
type WalletRepository interface {
	Save(ctx context.Context, wallet *entities.Wallet) error

	FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)

	// FindByUserID loads the user's single wallet.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error)

	// FindByUserIDForUpdate loads the wallet under SELECT ... FOR UPDATE.
	// Callers must be inside a unit of work; the row lock is held until the
	// surrounding transaction ends.
	FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error)

	// List returns wallets in creation order. Pages the reconciliation sweep.
	List(ctx context.Context, offset, limit int) ([]*entities.Wallet, error)
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	WalletID *uuid.UUID
	Type     *entities.TransactionType
	Status   *entities.TransactionStatus
}

// TransactionRepository stores transaction headers.
type TransactionRepository interface {
	// Save persists a transaction, inserting or updating by ID. Inserting a
	// duplicate reference id surfaces a DUPLICATE_TRANSACTION domain error.
	Save(ctx context.Context, tx *entities.Transaction) error

	FindByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error)

	// FindByReferenceID resolves the idempotency handle.
	FindByReferenceID(ctx context.Context, referenceID string) (*entities.Transaction, error)

	// List returns transactions matching the filter, newest first.
	List(ctx context.Context, filter TransactionFilter, offset, limit int) ([]*entities.Transaction, error)
}

// LedgerRepository stores the append-only double-entry ledger.
type LedgerRepository interface {
	// SaveAll appends entries in order. Must run inside the same unit of
	// work as the balance updates they describe.
	SaveAll(ctx context.Context, entries []*entities.LedgerEntry) error

	FindByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]*entities.LedgerEntry, error)

	// FindByWalletID returns a wallet's entries, newest first.
	FindByWalletID(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.LedgerEntry, error)

	// SumByWalletID returns the wallet's credits minus debits over all
	// entries. Reconciliation compares it against the stored balance.
	SumByWalletID(ctx context.Context, walletID uuid.UUID) (valueobjects.Money, error)
}

// PaymentIntentRepository stores payment intents.
type PaymentIntentRepository interface {
	Save(ctx context.Context, intent *entities.PaymentIntent) error

	FindByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error)

	// FindByGatewayPaymentID resolves the id carried in webhook payloads.
	FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*entities.PaymentIntent, error)

	// FindByUserID returns a user's intents, newest first.
	FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*entities.PaymentIntent, error)
}

// WebhookEventRepository stores raw gateway notifications.
type WebhookEventRepository interface {
	// Save persists an event. Inserting a duplicate event id surfaces a
	// DUPLICATE_TRANSACTION domain error; ingest treats that as a replay.
	Save(ctx context.Context, event *entities.WebhookEvent) error

	FindByEventID(ctx context.Context, eventID string) (*entities.WebhookEvent, error)

	// FindPendingOlderThan returns PENDING events created before the cutoff.
	// Feeds the requeue sweep for events whose enqueue was lost.
	FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*entities.WebhookEvent, error)

	// DeleteProcessedBefore purges PROCESSED events older than the cutoff
	// and reports how many rows went away. FAILED events are never deleted.
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
