package entities

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/domain/errors"
	"github.com/centralpay/paycore/internal/domain/valueobjects"
)

// PaymentIntentStatus represents the gateway-facing state of an intent.
type PaymentIntentStatus string

const (
	PaymentIntentStatusPending    PaymentIntentStatus = "PENDING"
	PaymentIntentStatusProcessing PaymentIntentStatus = "PROCESSING"
	PaymentIntentStatusSucceeded  PaymentIntentStatus = "SUCCEEDED"
	PaymentIntentStatusFailed     PaymentIntentStatus = "FAILED"
	PaymentIntentStatusCancelled  PaymentIntentStatus = "CANCELLED"
)

// IsValid checks if the payment intent status is known.
func (s PaymentIntentStatus) IsValid() bool {
	switch s {
	case PaymentIntentStatusPending, PaymentIntentStatusProcessing, PaymentIntentStatusSucceeded,
		PaymentIntentStatusFailed, PaymentIntentStatusCancelled:
		return true
	default:
		return false
	}
}

// PaymentIntent tracks one expected inbound payment. The gateway addresses
// it by gatewayPaymentID; webhooks resolve it to a user and amount. SUCCEEDED
// is final: a success webhook replayed against a succeeded intent is a no-op,
// and a failure webhook arriving after success is rejected. A success arriving
// after FAILED supersedes it, since gateways retry declined payments.
//
// The currency is recorded as the caller sent it; wallet balances stay in
// the platform currency, so no conversion happens here.
type PaymentIntent struct {
	id               uuid.UUID
	userID           uuid.UUID
	gatewayPaymentID string
	amount           valueobjects.Money
	currency         string
	status           PaymentIntentStatus
	paymentMethod    string
	description      string
	metadata         map[string]interface{}
	gatewayResponse  map[string]interface{}
	errorMessage     string
	createdAt        time.Time
	succeededAt      *time.Time
	updatedAt        time.Time
}

// NewGatewayPaymentID generates an id of the form PAY-<16 uppercase hex>.
func NewGatewayPaymentID() string {
	u := uuid.New()
	return "PAY-" + strings.ToUpper(hex.EncodeToString(u[:8]))
}

// NewPaymentIntent creates a PENDING intent for the user. The payment method
// is unknown until the gateway reports the outcome. An empty currency
// defaults to USD; anything else must be a 3-letter code.
func NewPaymentIntent(userID uuid.UUID, amount valueobjects.Money, currency, description string) (*PaymentIntent, error) {
	if userID == uuid.Nil {
		return nil, errors.ValidationError{
			Field:   "userID",
			Message: "user id is required",
		}
	}
	if !amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	if !isCurrencyCode(currency) {
		return nil, errors.ValidationError{
			Field:   "currency",
			Message: "currency must be a 3-letter code",
		}
	}

	now := time.Now()
	return &PaymentIntent{
		id:               uuid.New(),
		userID:           userID,
		gatewayPaymentID: NewGatewayPaymentID(),
		amount:           amount,
		currency:         currency,
		status:           PaymentIntentStatusPending,
		description:      description,
		metadata:         make(map[string]interface{}),
		gatewayResponse:  make(map[string]interface{}),
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// ReconstructPaymentIntent rebuilds a PaymentIntent from stored data.
func ReconstructPaymentIntent(
	id, userID uuid.UUID,
	gatewayPaymentID string,
	amount valueobjects.Money,
	currency string,
	status PaymentIntentStatus,
	paymentMethod, description string,
	metadataJSON, gatewayResponseJSON []byte,
	errorMessage string,
	createdAt time.Time,
	succeededAt *time.Time,
	updatedAt time.Time,
) (*PaymentIntent, error) {
	metadata, err := unmarshalObject(metadataJSON)
	if err != nil {
		return nil, err
	}
	gatewayResponse, err := unmarshalObject(gatewayResponseJSON)
	if err != nil {
		return nil, err
	}

	return &PaymentIntent{
		id:               id,
		userID:           userID,
		gatewayPaymentID: gatewayPaymentID,
		amount:           amount,
		currency:         currency,
		status:           status,
		paymentMethod:    paymentMethod,
		description:      description,
		metadata:         metadata,
		gatewayResponse:  gatewayResponse,
		errorMessage:     errorMessage,
		createdAt:        createdAt,
		succeededAt:      succeededAt,
		updatedAt:        updatedAt,
	}, nil
}

func unmarshalObject(raw []byte) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return make(map[string]interface{}), nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string]interface{})
	}
	return m, nil
}

func (p *PaymentIntent) ID() uuid.UUID                           { return p.id }
func (p *PaymentIntent) UserID() uuid.UUID                       { return p.userID }
func (p *PaymentIntent) GatewayPaymentID() string                { return p.gatewayPaymentID }
func (p *PaymentIntent) Amount() valueobjects.Money              { return p.amount }
func (p *PaymentIntent) Currency() string                        { return p.currency }
func (p *PaymentIntent) Status() PaymentIntentStatus             { return p.status }
func (p *PaymentIntent) PaymentMethod() string                   { return p.paymentMethod }
func (p *PaymentIntent) Description() string                     { return p.description }
func (p *PaymentIntent) Metadata() map[string]interface{}        { return p.metadata }
func (p *PaymentIntent) GatewayResponse() map[string]interface{} { return p.gatewayResponse }
func (p *PaymentIntent) ErrorMessage() string                    { return p.errorMessage }
func (p *PaymentIntent) CreatedAt() time.Time                    { return p.createdAt }
func (p *PaymentIntent) SucceededAt() *time.Time                 { return p.succeededAt }
func (p *PaymentIntent) UpdatedAt() time.Time                    { return p.updatedAt }

// MetadataJSON serializes the metadata map for persistence.
func (p *PaymentIntent) MetadataJSON() ([]byte, error) {
	if len(p.metadata) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(p.metadata)
}

// GatewayResponseJSON serializes the stored gateway payload for persistence.
func (p *PaymentIntent) GatewayResponseJSON() ([]byte, error) {
	if len(p.gatewayResponse) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(p.gatewayResponse)
}

// AddMetadata annotates the intent. Settled intents are immutable.
func (p *PaymentIntent) AddMetadata(key string, value interface{}) error {
	if p.IsSucceeded() || p.IsCancelled() {
		return errors.NewBusinessRuleViolation(
			"INTENT_SETTLED",
			"cannot modify a settled payment intent",
			map[string]interface{}{"status": p.status},
		)
	}

	p.metadata[key] = value
	p.updatedAt = time.Now()
	return nil
}

func (p *PaymentIntent) IsPending() bool   { return p.status == PaymentIntentStatusPending }
func (p *PaymentIntent) IsSucceeded() bool { return p.status == PaymentIntentStatusSucceeded }
func (p *PaymentIntent) IsFailed() bool    { return p.status == PaymentIntentStatusFailed }
func (p *PaymentIntent) IsCancelled() bool { return p.status == PaymentIntentStatusCancelled }

// MarkProcessing transitions PENDING to PROCESSING.
func (p *PaymentIntent) MarkProcessing() error {
	if !p.IsPending() {
		return errors.NewBusinessRuleViolation(
			"INTENT_NOT_PENDING",
			"only pending payment intents can start processing",
			map[string]interface{}{"status": p.status},
		)
	}

	p.status = PaymentIntentStatusProcessing
	p.updatedAt = time.Now()
	return nil
}

// MarkSucceeded records a successful payment with the gateway's payload and
// the method used. Calling it on an already SUCCEEDED intent is a no-op, so
// replayed success webhooks stay harmless. A CANCELLED intent cannot succeed.
func (p *PaymentIntent) MarkSucceeded(gatewayResponse map[string]interface{}, paymentMethod string) error {
	if p.IsSucceeded() {
		return nil
	}
	if p.IsCancelled() {
		return errors.NewBusinessRuleViolation(
			"INTENT_CANCELLED",
			"a cancelled payment intent cannot succeed",
			map[string]interface{}{"gatewayPaymentID": p.gatewayPaymentID},
		)
	}

	now := time.Now()
	p.status = PaymentIntentStatusSucceeded
	p.paymentMethod = paymentMethod
	if gatewayResponse != nil {
		p.gatewayResponse = gatewayResponse
	}
	p.succeededAt = &now
	p.updatedAt = now
	return nil
}

// MarkFailed records a failed payment and the gateway's reason. Failure
// after success is rejected; repeated failure reports are no-ops.
func (p *PaymentIntent) MarkFailed(gatewayResponse map[string]interface{}, errorMessage string) error {
	if p.IsSucceeded() {
		return errors.NewBusinessRuleViolation(
			"INTENT_ALREADY_SUCCEEDED",
			"a succeeded payment intent cannot fail",
			map[string]interface{}{"gatewayPaymentID": p.gatewayPaymentID},
		)
	}
	if p.IsFailed() {
		return nil
	}

	p.status = PaymentIntentStatusFailed
	p.errorMessage = errorMessage
	if gatewayResponse != nil {
		p.gatewayResponse = gatewayResponse
	}
	p.updatedAt = time.Now()
	return nil
}

// Cancel transitions PENDING to CANCELLED.
func (p *PaymentIntent) Cancel() error {
	if !p.IsPending() {
		return errors.NewBusinessRuleViolation(
			"INTENT_NOT_PENDING",
			"only pending payment intents can be cancelled",
			map[string]interface{}{"status": p.status},
		)
	}

	p.status = PaymentIntentStatusCancelled
	p.updatedAt = time.Now()
	return nil
}
