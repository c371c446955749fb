// Package dtos defines the command, query and response shapes exchanged
// between the HTTP adapters and the use cases.
package dtos

import "time"

// ============================================
// Commands
// ============================================

// RegisterUserCommand creates a user together with their wallet.
type RegisterUserCommand struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
}

// SubmitKYCCommand moves the caller's own account into review.
type SubmitKYCCommand struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// ReviewKYCCommand approves, rejects or expires a user's verification.
// ActorID is the staff member performing the review.
type ReviewKYCCommand struct {
	UserID  string `json:"user_id" validate:"required,uuid"`
	ActorID string `json:"actor_id" validate:"required,uuid"`
}

// SetUserActiveCommand activates or deactivates an account. ActorID is the
// staff member performing the change.
type SetUserActiveCommand struct {
	UserID  string `json:"user_id" validate:"required,uuid"`
	ActorID string `json:"actor_id" validate:"required,uuid"`
	Active  bool   `json:"active"`
}

// ============================================
// Queries
// ============================================

// GetUserQuery fetches one user by id.
type GetUserQuery struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// ============================================
// Responses
// ============================================

// UserDTO is the API representation of a user.
type UserDTO struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name"`
	KYCStatus      string     `json:"kyc_status"`
	Active         bool       `json:"active"`
	CanTransact    bool       `json:"can_transact"`
	KYCSubmittedAt *time.Time `json:"kyc_submitted_at,omitempty"`
	KYCReviewedAt  *time.Time `json:"kyc_reviewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserRegisteredDTO is returned by registration: the new user plus the
// wallet created in the same transaction.
type UserRegisteredDTO struct {
	User   UserDTO   `json:"user"`
	Wallet WalletDTO `json:"wallet"`
}
