package postgres

import (
	"context"
	"errors"
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

var _ ports.TransactionRepository = (*TransactionRepository)(nil)

// TransactionRepository implements ports.TransactionRepository.
//
// The UNIQUE index on reference_id is the idempotency backstop: two
// concurrent submissions with the same reference race on the insert and
// the loser gets a DUPLICATE_TRANSACTION domain error.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const transactionColumns = `id, reference_id, type, status, from_wallet_id, to_wallet_id,
	   amount::text, description,
	   from_balance_before::text, from_balance_after::text,
	   to_balance_before::text, to_balance_after::text,
	   error_message, retry_count, metadata, created_at, completed_at, updated_at`

// Save inserts or updates a transaction by ID. The identity columns
// (reference, type, endpoints, amount) never change after insert; only
// status, balance snapshots and bookkeeping move.
func (r *TransactionRepository) Save(ctx context.Context, tx *entities.Transaction) error {
	q := r.getQuerier(ctx)

	metadataJSON, err := tx.MetadataJSON()
	if err != nil {
		return fmt.Errorf("marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO transactions (
			id, reference_id, type, status, from_wallet_id, to_wallet_id,
			amount, description,
			from_balance_before, from_balance_after,
			to_balance_before, to_balance_after,
			error_message, retry_count, metadata, created_at, completed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			from_balance_before = EXCLUDED.from_balance_before,
			from_balance_after = EXCLUDED.from_balance_after,
			to_balance_before = EXCLUDED.to_balance_before,
			to_balance_after = EXCLUDED.to_balance_after,
			error_message = EXCLUDED.error_message,
			retry_count = EXCLUDED.retry_count,
			metadata = EXCLUDED.metadata,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = q.Exec(ctx, query,
		tx.ID(),
		tx.ReferenceID(),
		string(tx.Type()),
		string(tx.Status()),
		tx.FromWalletID(),
		tx.ToWalletID(),
		tx.Amount().String(),
		tx.Description(),
		nullableMoneyString(tx.FromBalanceBefore()),
		nullableMoneyString(tx.FromBalanceAfter()),
		nullableMoneyString(tx.ToBalanceBefore()),
		nullableMoneyString(tx.ToBalanceAfter()),
		tx.ErrorMessage(),
		tx.RetryCount(),
		metadataJSON,
		tx.CreatedAt(),
		tx.CompletedAt(),
		tx.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err, "transactions_reference_id") {
			return domainErrors.NewDuplicateTransaction(tx.ReferenceID())
		}
		if isForeignKeyViolation(err) {
			return domainErrors.NewNotFound("wallet")
		}
		return fmt.Errorf("save transaction: %w", err)
	}

	return nil
}

func scanTransaction(scanner interface{ Scan(dest ...any) error }) (*entities.Transaction, error) {
	var (
		id                       uuid.UUID
		referenceID              string
		txType, status           string
		fromWalletID, toWalletID *uuid.UUID
		amount, description      string
		fromBefore, fromAfter    *string
		toBefore, toAfter        *string
		errorMessage             string
		retryCount               int
		metadataJSON             []byte
		createdAt, updatedAt     time.Time
		completedAt              *time.Time
	)

	err := scanner.Scan(
		&id,
		&referenceID,
		&txType,
		&status,
		&fromWalletID,
		&toWalletID,
		&amount,
		&description,
		&fromBefore,
		&fromAfter,
		&toBefore,
		&toAfter,
		&errorMessage,
		&retryCount,
		&metadataJSON,
		&createdAt,
		&completedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	money, err := valueobjects.NewMoney(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in database: %w", err)
	}

	fromBB, err := nullableMoney(fromBefore)
	if err != nil {
		return nil, fmt.Errorf("invalid from_balance_before: %w", err)
	}
	fromBA, err := nullableMoney(fromAfter)
	if err != nil {
		return nil, fmt.Errorf("invalid from_balance_after: %w", err)
	}
	toBB, err := nullableMoney(toBefore)
	if err != nil {
		return nil, fmt.Errorf("invalid to_balance_before: %w", err)
	}
	toBA, err := nullableMoney(toAfter)
	if err != nil {
		return nil, fmt.Errorf("invalid to_balance_after: %w", err)
	}

	return entities.ReconstructTransaction(
		id,
		referenceID,
		entities.TransactionType(txType),
		entities.TransactionStatus(status),
		fromWalletID,
		toWalletID,
		money,
		description,
		fromBB, fromBA, toBB, toBA,
		errorMessage,
		retryCount,
		metadataJSON,
		createdAt,
		completedAt,
		updatedAt,
	)
}

// FindByID loads a transaction by ID.
func (r *TransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NewNotFound("transaction")
		}
		return nil, fmt.Errorf("find transaction by id: %w", err)
	}

	return tx, nil
}

// FindByReferenceID resolves a reference to its transaction.
func (r *TransactionRepository) FindByReferenceID(ctx context.Context, referenceID string) (*entities.Transaction, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference_id = $1`

	tx, err := scanTransaction(q.QueryRow(ctx, query, referenceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NewNotFound("transaction")
		}
		return nil, fmt.Errorf("find transaction by reference: %w", err)
	}

	return tx, nil
}

// List returns transactions matching the filter, newest first. A wallet
// filter matches either side of the transfer.
func (r *TransactionRepository) List(ctx context.Context, filter ports.TransactionFilter, offset, limit int) ([]*entities.Transaction, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`

	args := []interface{}{}
	argNum := 1

	if filter.WalletID != nil {
		query += fmt.Sprintf(" AND (from_wallet_id = $%d OR to_wallet_id = $%d)", argNum, argNum)
		args = append(args, *filter.WalletID)
		argNum++
	}

	if filter.Type != nil {
		query += fmt.Sprintf(" AND type = $%d", argNum)
		args = append(args, string(*filter.Type))
		argNum++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(*filter.Status))
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC OFFSET $%d LIMIT $%d", argNum, argNum+1)
	args = append(args, offset, limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*entities.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}

	return transactions, nil
}
