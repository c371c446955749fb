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

var _ ports.WalletRepository = (*WalletRepository)(nil)

// WalletRepository implements ports.WalletRepository.
//
// Concurrent balance updates rely on row locks, not versions: writers
// load the row with FindByUserIDForUpdate inside a unit of work and the
// lock serializes them until commit.
type WalletRepository struct {
	pool *pgxpool.Pool
}

func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

func (r *WalletRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// balance::text keeps NUMERIC out of float territory; the string feeds
// straight into Money.
const walletColumns = `id, user_id, balance::text, created_at, updated_at`

// Save inserts or updates a wallet by ID.
func (r *WalletRepository) Save(ctx context.Context, wallet *entities.Wallet) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			balance = EXCLUDED.balance,
			updated_at = EXCLUDED.updated_at
	`

	_, err := q.Exec(ctx, query,
		wallet.ID(),
		wallet.UserID(),
		wallet.Balance().String(),
		wallet.CreatedAt(),
		wallet.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err, "wallets_user_id") {
			return domainErrors.NewBusinessRuleViolation(
				"WALLET_ALREADY_EXISTS",
				"user already has a wallet",
				map[string]interface{}{"user_id": wallet.UserID().String()},
			)
		}
		if isForeignKeyViolation(err) {
			return domainErrors.NewNotFound("user")
		}
		if isCheckViolation(err) {
			// balance >= 0 is enforced twice: in the domain and by the
			// CHECK constraint. Hitting the constraint means a writer
			// bypassed the row lock.
			return domainErrors.NewConflict("wallet balance would go negative")
		}
		return fmt.Errorf("save wallet: %w", err)
	}

	return nil
}

func scanWallet(scanner interface{ Scan(dest ...any) error }) (*entities.Wallet, error) {
	var (
		id, userID           uuid.UUID
		balance              string
		createdAt, updatedAt time.Time
	)

	if err := scanner.Scan(&id, &userID, &balance, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	money, err := valueobjects.NewMoney(balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance in database: %w", err)
	}

	return entities.ReconstructWallet(id, userID, money, createdAt, updatedAt), nil
}

// FindByID loads a wallet by ID.
func (r *WalletRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	wallet, err := scanWallet(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NewNotFound("wallet")
		}
		return nil, fmt.Errorf("find wallet by id: %w", err)
	}

	return wallet, nil
}

// FindByUserID loads the user's wallet.
func (r *WalletRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`

	wallet, err := scanWallet(q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NewNotFound("wallet")
		}
		return nil, fmt.Errorf("find wallet by user: %w", err)
	}

	return wallet, nil
}

// List returns wallets in creation order, id as the tiebreak so pages
// stay stable while the sweep is running.
func (r *WalletRepository) List(ctx context.Context, offset, limit int) ([]*entities.Wallet, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		ORDER BY created_at ASC, id ASC
		OFFSET $1 LIMIT $2
	`

	rows, err := q.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*entities.Wallet
	for rows.Next() {
		wallet, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets = append(wallets, wallet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}

	return wallets, nil
}

// FindByUserIDForUpdate loads the user's wallet under SELECT ... FOR
// UPDATE. The row stays locked until the surrounding transaction ends,
// so callers must run inside a unit of work.
func (r *WalletRepository) FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error) {
	if !hasTx(ctx) {
		return nil, fmt.Errorf("FindByUserIDForUpdate requires a transaction")
	}
	q := r.getQuerier(ctx)

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`

	wallet, err := scanWallet(q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NewNotFound("wallet")
		}
		return nil, fmt.Errorf("lock wallet by user: %w", err)
	}

	return wallet, nil
}
