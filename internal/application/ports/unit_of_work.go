package ports

import "context"

// UnitOfWork runs a function inside one database transaction.
//
// The context passed to fn carries the open transaction; every repository
// call inside fn must use that context or it will run outside the
// transaction. fn returning an error rolls back, nil commits. Nested calls
// join the transaction already present on the context.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error

	// ExecuteWithRetry behaves like Execute but retries the whole function
	// when the database aborts the transaction with a serialization failure
	// or deadlock. fn must therefore be safe to run more than once.
	ExecuteWithRetry(ctx context.Context, fn func(ctx context.Context) error) error
}
