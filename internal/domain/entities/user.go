// Package entities contains the domain entities of the payment core.
// Entities carry identity, enforce their own invariants, and expose
// state transitions as methods; nothing here touches infrastructure.
package entities

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/domain/errors"
)

// KYCStatus is the identity-verification state of a user.
type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "PENDING"   // account created, nothing submitted
	KYCStatusInReview KYCStatus = "IN_REVIEW" // documents submitted, awaiting review
	KYCStatusVerified KYCStatus = "VERIFIED"  // review passed
	KYCStatusRejected KYCStatus = "REJECTED"  // review failed; terminal
	KYCStatusExpired  KYCStatus = "EXPIRED"   // verification lapsed; resubmission allowed
)

// IsValid checks if the KYC status is a known state.
func (s KYCStatus) IsValid() bool {
	switch s {
	case KYCStatusPending, KYCStatusInReview, KYCStatusVerified, KYCStatusRejected, KYCStatusExpired:
		return true
	default:
		return false
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// User is an account holder. The KYC state machine on kycStatus, together
// with the active flag, gates every money movement: only an active,
// VERIFIED user may send or receive funds.
type User struct {
	id             uuid.UUID
	email          string
	fullName       string
	kycStatus      KYCStatus
	active         bool
	staff          bool
	kycSubmittedAt *time.Time
	kycReviewedAt  *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// NewUser creates a user in the initial lifecycle state: active, not
// staff, KYC PENDING. Email is normalized to lower case.
func NewUser(email, fullName string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return nil, errors.ErrInvalidEmail
	}

	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, errors.ValidationError{
			Field:   "fullName",
			Message: "full name is required",
		}
	}

	now := time.Now()
	return &User{
		id:        uuid.New(),
		email:     email,
		fullName:  fullName,
		kycStatus: KYCStatusPending,
		active:    true,
		staff:     false,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructUser hydrates a User from storage. No validation.
func ReconstructUser(
	id uuid.UUID,
	email, fullName string,
	kycStatus KYCStatus,
	active, staff bool,
	kycSubmittedAt, kycReviewedAt *time.Time,
	createdAt, updatedAt time.Time,
) *User {
	return &User{
		id:             id,
		email:          email,
		fullName:       fullName,
		kycStatus:      kycStatus,
		active:         active,
		staff:          staff,
		kycSubmittedAt: kycSubmittedAt,
		kycReviewedAt:  kycReviewedAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (u *User) ID() uuid.UUID              { return u.id }
func (u *User) Email() string              { return u.email }
func (u *User) FullName() string           { return u.fullName }
func (u *User) KYCStatus() KYCStatus       { return u.kycStatus }
func (u *User) IsActive() bool             { return u.active }
func (u *User) IsStaff() bool              { return u.staff }
func (u *User) KYCSubmittedAt() *time.Time { return u.kycSubmittedAt }
func (u *User) KYCReviewedAt() *time.Time  { return u.kycReviewedAt }
func (u *User) CreatedAt() time.Time       { return u.createdAt }
func (u *User) UpdatedAt() time.Time       { return u.updatedAt }

// CanTransact is the authorization gate for every money movement.
// Evaluated freshly per call against stored state, never cached.
func (u *User) CanTransact() bool {
	return u.EnsureCanTransact() == nil
}

// EnsureCanTransact returns nil when the user may move money, otherwise
// the sentinel naming the failed condition. Deactivation wins over an
// unverified status when both apply.
func (u *User) EnsureCanTransact() error {
	if !u.active {
		return errors.ErrUserInactive
	}
	if u.kycStatus != KYCStatusVerified {
		return errors.ErrUserNotVerified
	}
	return nil
}

// SubmitKYC moves PENDING or EXPIRED to IN_REVIEW and stamps the
// submission time. Resubmission after expiry re-enters review; REJECTED
// is terminal.
func (u *User) SubmitKYC() error {
	if u.kycStatus != KYCStatusPending && u.kycStatus != KYCStatusExpired {
		return errors.NewBusinessRuleViolation(
			"KYC_NOT_SUBMITTABLE",
			"KYC can only be submitted from PENDING or EXPIRED",
			map[string]interface{}{"currentStatus": string(u.kycStatus)},
		)
	}

	now := time.Now()
	u.kycStatus = KYCStatusInReview
	u.kycSubmittedAt = &now
	u.updatedAt = now
	return nil
}

// ApproveKYC moves IN_REVIEW to VERIFIED.
func (u *User) ApproveKYC() error {
	if u.kycStatus != KYCStatusInReview {
		return errors.NewBusinessRuleViolation(
			"KYC_NOT_IN_REVIEW",
			"KYC is not awaiting review",
			map[string]interface{}{"currentStatus": string(u.kycStatus)},
		)
	}

	now := time.Now()
	u.kycStatus = KYCStatusVerified
	u.kycReviewedAt = &now
	u.updatedAt = now
	return nil
}

// RejectKYC moves IN_REVIEW to REJECTED.
func (u *User) RejectKYC() error {
	if u.kycStatus != KYCStatusInReview {
		return errors.NewBusinessRuleViolation(
			"KYC_NOT_IN_REVIEW",
			"KYC is not awaiting review",
			map[string]interface{}{"currentStatus": string(u.kycStatus)},
		)
	}

	now := time.Now()
	u.kycStatus = KYCStatusRejected
	u.kycReviewedAt = &now
	u.updatedAt = now
	return nil
}

// ExpireKYC moves VERIFIED to EXPIRED. The user loses the transact gate
// until a resubmitted KYC is approved again.
func (u *User) ExpireKYC() error {
	if u.kycStatus != KYCStatusVerified {
		return errors.NewBusinessRuleViolation(
			"KYC_NOT_VERIFIED",
			"only a verified KYC can expire",
			map[string]interface{}{"currentStatus": string(u.kycStatus)},
		)
	}

	u.kycStatus = KYCStatusExpired
	u.updatedAt = time.Now()
	return nil
}

// Deactivate disables the account. Users are never deleted.
func (u *User) Deactivate() {
	u.active = false
	u.updatedAt = time.Now()
}

// Activate re-enables a deactivated account.
func (u *User) Activate() {
	u.active = true
	u.updatedAt = time.Now()
}
