package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/entities"
	domainErrors "github.com/centralpay/paycore/internal/domain/errors"
	"github.com/centralpay/paycore/internal/domain/valueobjects"
)

var _ ports.LedgerRepository = (*LedgerRepository)(nil)

// LedgerRepository implements ports.LedgerRepository.
//
// transaction_ledger is append-only: rows are only ever inserted, and a
// BIGSERIAL seq column fixes their order even when created_at collides.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const ledgerColumns = `id, transaction_id, wallet_id, entry_type, amount::text, balance_after::text, created_at`

// SaveAll appends entries in the order given. Runs inside the caller's
// unit of work so the entries commit together with the balances they
// describe.
func (r *LedgerRepository) SaveAll(ctx context.Context, entries []*entities.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO transaction_ledger (id, transaction_id, wallet_id, entry_type, amount, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, entry := range entries {
		_, err := q.Exec(ctx, query,
			entry.ID(),
			entry.TransactionID(),
			entry.WalletID(),
			string(entry.Type()),
			entry.Amount().String(),
			entry.BalanceAfter().String(),
			entry.CreatedAt(),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domainErrors.NewNotFound("transaction or wallet")
			}
			return fmt.Errorf("save ledger entry: %w", err)
		}
	}

	return nil
}

func scanLedgerEntry(scanner interface{ Scan(dest ...any) error }) (*entities.LedgerEntry, error) {
	var (
		id, transactionID, walletID uuid.UUID
		entryType                   string
		amount, balanceAfter        string
		createdAt                   time.Time
	)

	err := scanner.Scan(&id, &transactionID, &walletID, &entryType, &amount, &balanceAfter, &createdAt)
	if err != nil {
		return nil, err
	}

	amountMoney, err := valueobjects.NewMoney(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger amount in database: %w", err)
	}
	balanceMoney, err := valueobjects.NewMoney(balanceAfter)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger balance in database: %w", err)
	}

	return entities.ReconstructLedgerEntry(
		id, transactionID, walletID,
		entities.LedgerEntryType(entryType),
		amountMoney, balanceMoney,
		createdAt,
	), nil
}

// FindByTransactionID returns a transaction's entries in write order.
func (r *LedgerRepository) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]*entities.LedgerEntry, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + ledgerColumns + ` FROM transaction_ledger WHERE transaction_id = $1 ORDER BY seq ASC`

	rows, err := q.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("find ledger entries by transaction: %w", err)
	}
	defer rows.Close()

	return scanLedgerEntries(rows)
}

// FindByWalletID returns a wallet's entries, newest first.
func (r *LedgerRepository) FindByWalletID(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.LedgerEntry, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + ledgerColumns + ` FROM transaction_ledger WHERE wallet_id = $1 ORDER BY seq DESC OFFSET $2 LIMIT $3`

	rows, err := q.Query(ctx, query, walletID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("find ledger entries by wallet: %w", err)
	}
	defer rows.Close()

	return scanLedgerEntries(rows)
}

// SumByWalletID folds the wallet's entries into credits minus debits.
// The result must equal the stored wallet balance; a mismatch means the
// ledger and the balance diverged.
func (r *LedgerRepository) SumByWalletID(ctx context.Context, walletID uuid.UUID) (valueobjects.Money, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount ELSE -amount END), 0)::text
		FROM transaction_ledger
		WHERE wallet_id = $1
	`

	var sum string
	if err := q.QueryRow(ctx, query, walletID).Scan(&sum); err != nil {
		return valueobjects.Money{}, fmt.Errorf("sum ledger entries by wallet: %w", err)
	}

	money, err := valueobjects.NewMoney(sum)
	if err != nil {
		return valueobjects.Money{}, fmt.Errorf("invalid ledger sum in database: %w", err)
	}

	return money, nil
}

func scanLedgerEntries(rows pgx.Rows) ([]*entities.LedgerEntry, error) {
	var entries []*entities.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}

	return entries, nil
}
