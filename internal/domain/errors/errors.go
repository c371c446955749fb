// Package errors defines the typed error taxonomy of the payment core.
// Callers branch on error kinds via the Is* helpers or errors.Is/As;
// nothing in the system matches on error text.
package errors

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to adapters. Exactly one kind applies to every
// error that crosses a use-case boundary.
const (
	KindInvalidTransaction   = "INVALID_TRANSACTION"
	KindInsufficientBalance  = "INSUFFICIENT_BALANCE"
	KindDuplicateTransaction = "DUPLICATE_TRANSACTION"
	KindNotFound             = "NOT_FOUND"
	KindUnauthorized         = "UNAUTHORIZED"
	KindConflict             = "CONFLICT"
	KindInternal             = "INTERNAL"
)

// Sentinel errors. Domain errors wrap one of these so that errors.Is
// keeps working across wrapping layers.
var (
	ErrInvalidTransaction   = errors.New("invalid transaction")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrConflict             = errors.New("conflict")

	// Entity-level sentinels used by factories and state machines.
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrUserNotVerified = errors.New("user is not allowed to transact")
	ErrUserInactive    = errors.New("user is deactivated")
)

// DomainError carries a machine-readable code alongside the message and
// the wrapped cause. Code is always one of the Kind* constants.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap supports errors.Is and errors.As over the wrapped cause.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a domain error with an explicit code.
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// NewInvalidTransaction marks a request the client can correct:
// self-transfer, unverified party, out-of-range amount, type misuse.
func NewInvalidTransaction(message string) *DomainError {
	return NewDomainError(KindInvalidTransaction, message, ErrInvalidTransaction)
}

// NewInsufficientBalance reports a debit that would drive a balance
// negative. Available and requested are decimal strings.
func NewInsufficientBalance(available, requested string) *DomainError {
	return NewDomainError(
		KindInsufficientBalance,
		fmt.Sprintf("insufficient balance: available %s, requested %s", available, requested),
		ErrInsufficientBalance,
	)
}

// NewDuplicateTransaction flags an idempotency hit. Not a failure: the
// caller receives the previously committed transaction.
func NewDuplicateTransaction(referenceID string) *DomainError {
	return NewDomainError(
		KindDuplicateTransaction,
		fmt.Sprintf("transaction with reference %s already exists", referenceID),
		ErrDuplicateTransaction,
	)
}

// NewNotFound reports an absent user, wallet, transaction, intent or event.
func NewNotFound(resource string) *DomainError {
	return NewDomainError(KindNotFound, resource+" not found", ErrNotFound)
}

// NewUnauthorized covers bad webhook signatures, missing or invalid
// tokens, and unprivileged admin operations.
func NewUnauthorized(message string) *DomainError {
	return NewDomainError(KindUnauthorized, message, ErrUnauthorized)
}

// NewConflict reports a lost race on a state transition. Retryable.
func NewConflict(message string) *DomainError {
	return NewDomainError(KindConflict, message, ErrConflict)
}

// NewInternal wraps an infrastructure failure (DB, cache, queue).
// Retryable with backoff; the cause is preserved for logging, so unlike
// the other constructors no sentinel is attached.
func NewInternal(message string, err error) *DomainError {
	return NewDomainError(KindInternal, message, err)
}

// ValidationError reports a single field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// BusinessRuleViolation reports an illegal state transition or a broken
// business rule, with machine-readable context.
type BusinessRuleViolation struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e BusinessRuleViolation) Error() string {
	return fmt.Sprintf("business rule violation [%s]: %s", e.Rule, e.Message)
}

// NewBusinessRuleViolation creates a new business rule violation error.
func NewBusinessRuleViolation(rule, message string, context map[string]interface{}) *BusinessRuleViolation {
	return &BusinessRuleViolation{Rule: rule, Message: message, Context: context}
}

// ConcurrencyError reports concurrent modification detected on an entity.
type ConcurrencyError struct {
	EntityType string
	EntityID   string
	Message    string
}

func (e ConcurrencyError) Error() string {
	return fmt.Sprintf("concurrency error on %s [%s]: %s", e.EntityType, e.EntityID, e.Message)
}

// NewConcurrencyError creates a new concurrency error.
func NewConcurrencyError(entityType, entityID, message string) *ConcurrencyError {
	return &ConcurrencyError{EntityType: entityType, EntityID: entityID, Message: message}
}

// kindOf extracts the DomainError code from anywhere in the chain.
func kindOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Kind returns the taxonomy code for err, or KindInternal when the error
// carries no domain classification.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case IsInvalidTransaction(err):
		return KindInvalidTransaction
	case IsInsufficientBalance(err):
		return KindInsufficientBalance
	case IsDuplicateTransaction(err):
		return KindDuplicateTransaction
	case IsNotFound(err):
		return KindNotFound
	case IsUnauthorized(err):
		return KindUnauthorized
	case IsConflict(err):
		return KindConflict
	default:
		return KindInternal
	}
}

// IsInvalidTransaction reports whether err is client-correctable input.
func IsInvalidTransaction(err error) bool {
	return errors.Is(err, ErrInvalidTransaction) || kindOf(err) == KindInvalidTransaction
}

// IsInsufficientBalance reports whether err is a non-negativity violation.
func IsInsufficientBalance(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) || kindOf(err) == KindInsufficientBalance
}

// IsDuplicateTransaction reports whether err is an idempotency hit.
func IsDuplicateTransaction(err error) bool {
	return errors.Is(err, ErrDuplicateTransaction) || kindOf(err) == KindDuplicateTransaction
}

// IsNotFound reports whether err means an absent entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || kindOf(err) == KindNotFound
}

// IsUnauthorized reports whether err is an authentication or privilege failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || kindOf(err) == KindUnauthorized
}

// IsConflict reports whether err is a lost race on a state transition.
func IsConflict(err error) bool {
	if errors.Is(err, ErrConflict) || kindOf(err) == KindConflict {
		return true
	}
	var ce *ConcurrencyError
	return errors.As(err, &ce)
}

// IsInternal reports whether err is an infrastructure failure.
func IsInternal(err error) bool {
	return kindOf(err) == KindInternal
}

// IsValidationError checks for field-level validation failures.
func IsValidationError(err error) bool {
	var valErr ValidationError
	return errors.As(err, &valErr)
}

// IsBusinessRuleViolation checks for business rule violations.
func IsBusinessRuleViolation(err error) bool {
	var brv *BusinessRuleViolation
	return errors.As(err, &brv)
}

// IsRetryable reports whether the webhook pipeline should redeliver after
// err. Only infrastructure failures and lost races qualify; domain errors,
// validation failures and rule violations are terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsValidationError(err) || IsBusinessRuleViolation(err) {
		return false
	}
	k := Kind(err)
	return k == KindInternal || k == KindConflict
}
