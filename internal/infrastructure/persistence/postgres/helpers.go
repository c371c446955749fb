// Package postgres implements the persistence ports on PostgreSQL via pgx.
//
// Repositories are transaction-aware: when the context carries an open
// transaction (injected by UnitOfWork) they run on it, otherwise on the
// pool. Money columns are NUMERIC(15,2), read and written as decimal
// strings so no float ever touches an amount.
package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/centralpay/paycore/internal/domain/valueobjects"
)

// txKey carries the open transaction on the context.
type txKey struct{}

func injectTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func extractTx(ctx context.Context) pgx.Tx {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok {
		return nil
	}
	return tx
}

func hasTx(ctx context.Context) bool {
	return extractTx(ctx) != nil
}

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgreSQL error codes.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation reports a UNIQUE constraint hit, optionally narrowed to
// one constraint name.
func isUniqueViolation(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	if constraintName != "" {
		return strings.Contains(pgErr.ConstraintName, constraintName)
	}
	return true
}

func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == pgForeignKeyViolation
}

func isCheckViolation(err error) bool {
	return pgErrorCode(err) == pgCheckViolation
}

// isSerializationFailure reports transaction aborts the caller should retry:
// serialization failures and deadlocks.
func isSerializationFailure(err error) bool {
	code := pgErrorCode(err)
	return code == pgSerializationFailure || code == pgDeadlockDetected
}

// nullableMoney converts an optional NUMERIC::text column to Money.
func nullableMoney(s *string) (*valueobjects.Money, error) {
	if s == nil {
		return nil, nil
	}
	m, err := valueobjects.NewMoney(*s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// nullableMoneyString converts optional Money to its column value.
func nullableMoneyString(m *valueobjects.Money) *string {
	if m == nil {
		return nil
	}
	s := m.String()
	return &s
}
