package dtos

import "time"

// ============================================
// Queries
// ============================================

// GetBalanceQuery fetches the caller's wallet.
type GetBalanceQuery struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// ListLedgerQuery pages through the caller's ledger entries.
type ListLedgerQuery struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Offset int    `json:"offset" validate:"min=0"`
	Limit  int    `json:"limit" validate:"min=1,max=100"`
}

// ============================================
// Responses
// ============================================

// WalletDTO is the API representation of a wallet.
type WalletDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   string    `json:"balance"` // Decimal string: "100.50"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LedgerEntryDTO is one line of the double-entry ledger.
type LedgerEntryDTO struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	WalletID      string    `json:"wallet_id"`
	Type          string    `json:"type"` // DEBIT or CREDIT
	Amount        string    `json:"amount"`
	BalanceAfter  string    `json:"balance_after"`
	CreatedAt     time.Time `json:"created_at"`
}

// LedgerListDTO is a page of ledger entries.
type LedgerListDTO struct {
	Entries []LedgerEntryDTO `json:"entries"`
	Offset  int              `json:"offset"`
	Limit   int              `json:"limit"`
}
