package dtos

import "time"

// ============================================
// Commands
// ============================================

// TransferCommand moves funds between two users' wallets. IdempotencyKey is
// optional; when present it becomes the transaction's reference id and
// retries with the same key return the original result.
type TransferCommand struct {
	FromUserID     string                 `json:"from_user_id" validate:"required,uuid"`
	ToUserID       string                 `json:"to_user_id" validate:"required,uuid"`
	Amount         string                 `json:"amount" validate:"required"`
	Description    string                 `json:"description,omitempty" validate:"max=500"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty" validate:"omitempty,max=100"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// DepositCommand credits a wallet from a succeeded gateway payment. Issued
// by the webhook processor, never directly by clients.
type DepositCommand struct {
	UserID           string `json:"user_id" validate:"required,uuid"`
	Amount           string `json:"amount" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
}

// ============================================
// Queries
// ============================================

// ListTransactionsQuery pages through transactions visible to a user.
type ListTransactionsQuery struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Type   string `json:"type,omitempty" validate:"omitempty,oneof=TRANSFER DEPOSIT WITHDRAWAL REFUND FEE"`
	Status string `json:"status,omitempty" validate:"omitempty,oneof=PENDING PROCESSING COMPLETED FAILED CANCELLED"`
	Offset int    `json:"offset" validate:"min=0"`
	Limit  int    `json:"limit" validate:"min=1,max=100"`
}

// GetTransactionQuery fetches one transaction. RequesterID scopes access:
// only participants see the transaction.
type GetTransactionQuery struct {
	TransactionID string `json:"transaction_id" validate:"required,uuid"`
	RequesterID   string `json:"requester_id" validate:"required,uuid"`
}

// ============================================
// Responses
// ============================================

// TransactionDTO is the API representation of a transaction header.
type TransactionDTO struct {
	ID                string            `json:"id"`
	ReferenceID       string            `json:"reference_id"`
	Type              string            `json:"type"`
	Status            string            `json:"status"`
	FromWalletID      *string           `json:"from_wallet_id,omitempty"`
	ToWalletID        *string           `json:"to_wallet_id,omitempty"`
	Amount            string            `json:"amount"`
	Description       string            `json:"description,omitempty"`
	FromBalanceBefore *string           `json:"from_balance_before,omitempty"`
	FromBalanceAfter  *string           `json:"from_balance_after,omitempty"`
	ToBalanceBefore   *string           `json:"to_balance_before,omitempty"`
	ToBalanceAfter    *string           `json:"to_balance_after,omitempty"`
	ErrorMessage      string            `json:"error_message,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// TransactionDetailDTO is the single-transaction view: the header plus the
// ledger entries its commit wrote. Entries is empty for transactions that
// never completed.
type TransactionDetailDTO struct {
	TransactionDTO
	LedgerEntries []LedgerEntryDTO `json:"ledger_entries"`
}

// TransactionListDTO is a page of transactions.
type TransactionListDTO struct {
	Transactions []TransactionDTO `json:"transactions"`
	Offset       int              `json:"offset"`
	Limit        int              `json:"limit"`
}

// TransferResultDTO is returned by the transfer operation. Duplicate reports
// whether the result came from an earlier transaction with the same
// idempotency key.
type TransferResultDTO struct {
	Transaction TransactionDTO `json:"transaction"`
	Duplicate   bool           `json:"duplicate"`
}
