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

var _ ports.PaymentIntentRepository = (*PaymentIntentRepository)(nil)

// PaymentIntentRepository implements ports.PaymentIntentRepository.
type PaymentIntentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentIntentRepository(pool *pgxpool.Pool) *PaymentIntentRepository {
	return &PaymentIntentRepository{pool: pool}
}

func (r *PaymentIntentRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const paymentIntentColumns = `id, user_id, gateway_payment_id, amount::text, currency, status, payment_method, description, metadata, gateway_response, error_message, created_at, succeeded_at, updated_at`

// Save inserts or updates a payment intent by ID.
func (r *PaymentIntentRepository) Save(ctx context.Context, intent *entities.PaymentIntent) error {
	q := r.getQuerier(ctx)

	metadataJSON, err := intent.MetadataJSON()
	if err != nil {
		return fmt.Errorf("marshal intent metadata: %w", err)
	}
	responseJSON, err := intent.GatewayResponseJSON()
	if err != nil {
		return fmt.Errorf("marshal gateway response: %w", err)
	}

	query := `
		INSERT INTO payment_intents (id, user_id, gateway_payment_id, amount, currency, status, payment_method, description, metadata, gateway_response, error_message, created_at, succeeded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			payment_method = EXCLUDED.payment_method,
			metadata = EXCLUDED.metadata,
			gateway_response = EXCLUDED.gateway_response,
			error_message = EXCLUDED.error_message,
			succeeded_at = EXCLUDED.succeeded_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = q.Exec(ctx, query,
		intent.ID(),
		intent.UserID(),
		intent.GatewayPaymentID(),
		intent.Amount().String(),
		intent.Currency(),
		string(intent.Status()),
		intent.PaymentMethod(),
		intent.Description(),
		metadataJSON,
		responseJSON,
		intent.ErrorMessage(),
		intent.CreatedAt(),
		intent.SucceededAt(),
		intent.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err, "payment_intents_gateway_payment_id") {
			return domainErrors.NewDuplicateTransaction(intent.GatewayPaymentID())
		}
		if isForeignKeyViolation(err) {
			return domainErrors.NewNotFound("user")
		}
		return fmt.Errorf("save payment intent: %w", err)
	}

	return nil
}

func scanPaymentIntent(scanner interface{ Scan(dest ...any) error }) (*entities.PaymentIntent, error) {
	var (
		id, userID           uuid.UUID
		gatewayPaymentID     string
		amount, currency     string
		status               string
		paymentMethod        string
		description          string
		metadataJSON         []byte
		responseJSON         []byte
		errorMessage         string
		createdAt, updatedAt time.Time
		succeededAt          *time.Time
	)

	err := scanner.Scan(
		&id,
		&userID,
		&gatewayPaymentID,
		&amount,
		&currency,
		&status,
		&paymentMethod,
		&description,
		&metadataJSON,
		&responseJSON,
		&errorMessage,
		&createdAt,
		&succeededAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	money, err := valueobjects.NewMoney(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid intent amount in database: %w", err)
	}

	return entities.ReconstructPaymentIntent(
		id, userID,
		gatewayPaymentID,
		money,
		currency,
		entities.PaymentIntentStatus(status),
		paymentMethod, description,
		metadataJSON, responseJSON,
		errorMessage,
		createdAt,
		succeededAt,
		updatedAt,
	)
}

// FindByID loads a payment intent by ID.
func (r *PaymentIntentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + paymentIntentColumns + ` FROM payment_intents WHERE id = $1`

	intent, err := scanPaymentIntent(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NewNotFound("payment intent")
		}
		return nil, fmt.Errorf("find payment intent by id: %w", err)
	}

	return intent, nil
}

// FindByGatewayPaymentID resolves the gateway's id, the one webhook
// payloads carry.
func (r *PaymentIntentRepository) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*entities.PaymentIntent, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + paymentIntentColumns + ` FROM payment_intents WHERE gateway_payment_id = $1`

	intent, err := scanPaymentIntent(q.QueryRow(ctx, query, gatewayPaymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NewNotFound("payment intent")
		}
		return nil, fmt.Errorf("find payment intent by gateway id: %w", err)
	}

	return intent, nil
}

// FindByUserID returns a user's intents, newest first.
func (r *PaymentIntentRepository) FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*entities.PaymentIntent, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + paymentIntentColumns + ` FROM payment_intents WHERE user_id = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`

	rows, err := q.Query(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("find payment intents by user: %w", err)
	}
	defer rows.Close()

	var intents []*entities.PaymentIntent
	for rows.Next() {
		intent, err := scanPaymentIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment intent row: %w", err)
		}
		intents = append(intents, intent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment intent rows: %w", err)
	}

	return intents, nil
}
