// Package valueobjects contains immutable value types shared by the domain.
package valueobjects

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a non-negative monetary amount in the platform's single
// implicit currency: fixed-point decimal, 15 significant digits, 2
// fractional digits. All balance arithmetic goes through Money; float64
// never touches a balance.
//
// Immutable: every operation returns a new instance.
type Money struct {
	amount decimal.Decimal
}

var (
	ErrNegativeAmount     = errors.New("amount cannot be negative")
	ErrInvalidAmount      = errors.New("invalid amount format")
	ErrTooManyDecimals    = errors.New("amount has more than two decimal places")
	ErrAmountOutOfRange   = errors.New("amount exceeds supported range")
	ErrInsufficientAmount = errors.New("insufficient amount")
)

// maxAmount bounds the integral part: 15 significant digits total with 2
// reserved for the fraction leaves 13 integral digits.
var maxAmount = decimal.New(1, 13)

// NewMoney parses a decimal string into Money.
// Rejects negatives, malformed input, more than two fractional digits,
// and magnitudes at or above 10^13.
func NewMoney(amountStr string) (Money, error) {
	d, err := decimal.NewFromString(amountStr)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidAmount, amountStr)
	}
	if d.Sign() < 0 {
		return Money{}, ErrNegativeAmount
	}
	if d.Exponent() < -2 {
		return Money{}, ErrTooManyDecimals
	}
	if d.Cmp(maxAmount) >= 0 {
		return Money{}, ErrAmountOutOfRange
	}
	return Money{amount: d}, nil
}

// MustMoney parses a decimal string and panics on failure.
// For constants and tests only.
func MustMoney(amountStr string) Money {
	m, err := NewMoney(amountStr)
	if err != nil {
		panic(fmt.Sprintf("valueobjects: MustMoney(%q): %v", amountStr, err))
	}
	return m
}

// ZeroMoney returns the zero amount.
func ZeroMoney() Money {
	return Money{amount: decimal.Zero}
}

// String renders the amount with exactly two fractional digits, e.g. "70.00".
// This is the canonical wire and storage representation.
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Subtract returns m - other, failing when the result would be negative.
func (m Money) Subtract(other Money) (Money, error) {
	diff := m.amount.Sub(other.amount)
	if diff.Sign() < 0 {
		return Money{}, ErrInsufficientAmount
	}
	return Money{amount: diff}, nil
}

// Cmp returns -1, 0 or +1 comparing m against other.
func (m Money) Cmp(other Money) int {
	return m.amount.Cmp(other.amount)
}

// GreaterThan reports m > other.
func (m Money) GreaterThan(other Money) bool {
	return m.Cmp(other) > 0
}

// GreaterThanOrEqual reports m >= other.
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.Cmp(other) >= 0
}

// LessThan reports m < other.
func (m Money) LessThan(other Money) bool {
	return m.Cmp(other) < 0
}

// Equals reports value equality; "70.0" and "70.00" are equal.
func (m Money) Equals(other Money) bool {
	return m.Cmp(other) == 0
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.amount.Sign() > 0
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.amount.Sign() == 0
}

// MarshalJSON encodes the amount as a quoted decimal string. Money has no
// exported fields, so log attributes carrying a Money depend on this for a
// readable rendering under the JSON handler.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON decodes a quoted decimal string through the same validation
// as NewMoney, so a Money never holds a value the constructor would reject.
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, data)
	}
	parsed, err := NewMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
