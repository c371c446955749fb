package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/centralpay/paycore/internal/application/ports"
)

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// txMaxAttempts bounds ExecuteWithRetry. Serialization failures under
// ordered row locking are rare, so a small number of attempts is enough.
const txMaxAttempts = 3

// UnitOfWork implements ports.UnitOfWork on PostgreSQL transactions.
//
// Repositories pick up the open transaction through the context, so a
// use case composes multi-table writes without knowing about pgx.
type UnitOfWork struct {
	pool             *pgxpool.Pool
	opts             pgx.TxOptions
	statementTimeout time.Duration
}

// NewUnitOfWork creates a UnitOfWork with READ COMMITTED isolation.
// statementTimeout bounds every statement inside the transaction;
// zero disables the limit.
func NewUnitOfWork(pool *pgxpool.Pool, statementTimeout time.Duration) *UnitOfWork {
	return &UnitOfWork{
		pool:             pool,
		opts:             pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
		statementTimeout: statementTimeout,
	}
}

// Execute runs fn inside a transaction: commit on nil, rollback on error
// or panic. When the context already carries a transaction, fn joins it
// instead of opening a nested one.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	if hasTx(ctx) {
		return fn(ctx)
	}

	tx, err := u.pool.BeginTx(ctx, u.opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if u.statementTimeout > 0 {
		// SET LOCAL expires with the transaction, so the pool connection
		// goes back clean.
		_, err = tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", u.statementTimeout.Milliseconds()))
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("set statement timeout: %w", err)
		}
	}

	if err := fn(injectTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// ExecuteWithRetry runs fn inside a transaction and retries the whole
// transaction on serialization failures, deadlocks and dropped
// connections. fn must reload any rows it read, since every attempt
// sees a fresh snapshot.
func (u *UnitOfWork) ExecuteWithRetry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		err := u.Execute(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryableTxError(err) {
			return err
		}

		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
		}
	}

	return fmt.Errorf("transaction failed after %d attempts: %w", txMaxAttempts, lastErr)
}

// isRetryableTxError reports errors a fresh transaction may survive:
// serialization failures, deadlocks and connection-class (08xxx) errors.
func isRetryableTxError(err error) bool {
	if isSerializationFailure(err) {
		return true
	}
	return strings.HasPrefix(pgErrorCode(err), "08")
}
