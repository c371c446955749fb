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
)

var _ ports.UserRepository = (*UserRepository)(nil)

// UserRepository implements ports.UserRepository on PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userColumns = `id, email, full_name, kyc_status, is_active, is_staff, kyc_submitted_at, kyc_reviewed_at, created_at, updated_at`

// Save inserts or updates a user by ID.
func (r *UserRepository) Save(ctx context.Context, user *entities.User) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO users (id, email, full_name, kyc_status, is_active, is_staff, kyc_submitted_at, kyc_reviewed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			kyc_status = EXCLUDED.kyc_status,
			is_active = EXCLUDED.is_active,
			is_staff = EXCLUDED.is_staff,
			kyc_submitted_at = EXCLUDED.kyc_submitted_at,
			kyc_reviewed_at = EXCLUDED.kyc_reviewed_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := q.Exec(ctx, query,
		user.ID(),
		user.Email(),
		user.FullName(),
		string(user.KYCStatus()),
		user.IsActive(),
		user.IsStaff(),
		user.KYCSubmittedAt(),
		user.KYCReviewedAt(),
		user.CreatedAt(),
		user.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err, "users_email") {
			return domainErrors.NewBusinessRuleViolation(
				"EMAIL_ALREADY_EXISTS",
				fmt.Sprintf("user with email %s already exists", user.Email()),
				map[string]interface{}{"email": user.Email()},
			)
		}
		return fmt.Errorf("save user: %w", err)
	}

	return nil
}

// UpdateKYCStatus writes a verification transition guarded by the status it
// started from. Zero rows updated means another reviewer moved the user
// first: the caller loaded the row moments ago, so the id is known good.
func (r *UserRepository) UpdateKYCStatus(ctx context.Context, user *entities.User, from entities.KYCStatus) error {
	q := r.getQuerier(ctx)

	query := `
		UPDATE users
		SET kyc_status = $2, kyc_submitted_at = $3, kyc_reviewed_at = $4, updated_at = $5
		WHERE id = $1 AND kyc_status = $6
	`

	result, err := q.Exec(ctx, query,
		user.ID(),
		string(user.KYCStatus()),
		user.KYCSubmittedAt(),
		user.KYCReviewedAt(),
		user.UpdatedAt(),
		string(from),
	)
	if err != nil {
		return fmt.Errorf("update kyc status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domainErrors.NewConcurrencyError("user", user.ID().String(), "verification state changed concurrently")
	}

	return nil
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*entities.User, error) {
	var (
		id                            uuid.UUID
		email, fullName, kycStatus    string
		active, staff                 bool
		kycSubmittedAt, kycReviewedAt *time.Time
		createdAt, updatedAt          time.Time
	)

	err := scanner.Scan(
		&id,
		&email,
		&fullName,
		&kycStatus,
		&active,
		&staff,
		&kycSubmittedAt,
		&kycReviewedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	return entities.ReconstructUser(
		id, email, fullName,
		entities.KYCStatus(kycStatus),
		active, staff,
		kycSubmittedAt, kycReviewedAt,
		createdAt, updatedAt,
	), nil
}

// FindByID loads a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NewNotFound("user")
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}

	return user, nil
}

// ExistsByEmail checks for an email without loading the row.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	q := r.getQuerier(ctx)

	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := q.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("check email existence: %w", err)
	}

	return exists, nil
}
