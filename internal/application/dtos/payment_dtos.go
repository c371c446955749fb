package dtos

import "time"

// ============================================
// Commands
// ============================================

// CreatePaymentIntentCommand opens a payment intent for the caller. An
// empty currency defaults to USD.
type CreatePaymentIntentCommand struct {
	UserID      string                 `json:"user_id" validate:"required,uuid"`
	Amount      string                 `json:"amount" validate:"required"`
	Currency    string                 `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Description string                 `json:"description,omitempty" validate:"max=500"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// CancelPaymentIntentCommand abandons a pending intent of the requester.
type CancelPaymentIntentCommand struct {
	IntentID    string `json:"intent_id" validate:"required,uuid"`
	RequesterID string `json:"requester_id" validate:"required,uuid"`
}

// IngestWebhookCommand carries one raw gateway notification. Payload is the
// unmodified request body; the HMAC signature is verified against exactly
// these bytes.
type IngestWebhookCommand struct {
	Payload   []byte `json:"-"`
	Signature string `json:"-"`
}

// ProcessWebhookCommand asks the processor to run one stored event.
type ProcessWebhookCommand struct {
	EventID string `json:"event_id" validate:"required"`
}

// ============================================
// Queries
// ============================================

// GetPaymentIntentQuery fetches one intent owned by the requester.
type GetPaymentIntentQuery struct {
	IntentID    string `json:"intent_id" validate:"required,uuid"`
	RequesterID string `json:"requester_id" validate:"required,uuid"`
}

// ListPaymentIntentsQuery pages through the caller's intents.
type ListPaymentIntentsQuery struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Offset int    `json:"offset" validate:"min=0"`
	Limit  int    `json:"limit" validate:"min=1,max=100"`
}

// ============================================
// Responses
// ============================================

// PaymentIntentDTO is the API representation of a payment intent.
type PaymentIntentDTO struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	GatewayPaymentID string            `json:"gateway_payment_id"`
	Amount           string            `json:"amount"`
	Currency         string            `json:"currency"`
	Status           string            `json:"status"`
	PaymentMethod    string            `json:"payment_method,omitempty"`
	Description      string            `json:"description,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	SucceededAt      *time.Time        `json:"succeeded_at,omitempty"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// PaymentIntentListDTO is a page of payment intents.
type PaymentIntentListDTO struct {
	Intents []PaymentIntentDTO `json:"intents"`
	Offset  int                `json:"offset"`
	Limit   int                `json:"limit"`
}

// WebhookAcceptedDTO acknowledges an ingested webhook. Duplicate marks
// replays of an event id seen before.
type WebhookAcceptedDTO struct {
	EventID   string `json:"event_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}
