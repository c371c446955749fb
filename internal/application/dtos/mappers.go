package dtos

import (
	"fmt"

	"github.com/centralpay/paycore/internal/domain/entities"
)

// ============================================
// User mappers
// ============================================

// ToUserDTO converts a User entity to its API shape.
func ToUserDTO(user *entities.User) UserDTO {
	return UserDTO{
		ID:             user.ID().String(),
		Email:          user.Email(),
		FullName:       user.FullName(),
		KYCStatus:      string(user.KYCStatus()),
		Active:         user.IsActive(),
		CanTransact:    user.CanTransact(),
		KYCSubmittedAt: user.KYCSubmittedAt(),
		KYCReviewedAt:  user.KYCReviewedAt(),
		CreatedAt:      user.CreatedAt(),
		UpdatedAt:      user.UpdatedAt(),
	}
}

// ============================================
// Wallet mappers
// ============================================

// ToWalletDTO converts a Wallet entity to its API shape.
func ToWalletDTO(wallet *entities.Wallet) WalletDTO {
	return WalletDTO{
		ID:        wallet.ID().String(),
		UserID:    wallet.UserID().String(),
		Balance:   wallet.Balance().String(),
		CreatedAt: wallet.CreatedAt(),
		UpdatedAt: wallet.UpdatedAt(),
	}
}

// ToLedgerEntryDTO converts a LedgerEntry entity to its API shape.
func ToLedgerEntryDTO(entry *entities.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:            entry.ID().String(),
		TransactionID: entry.TransactionID().String(),
		WalletID:      entry.WalletID().String(),
		Type:          string(entry.Type()),
		Amount:        entry.Amount().String(),
		BalanceAfter:  entry.BalanceAfter().String(),
		CreatedAt:     entry.CreatedAt(),
	}
}

// ToLedgerEntryDTOList converts a slice of ledger entries.
func ToLedgerEntryDTOList(entries []*entities.LedgerEntry) []LedgerEntryDTO {
	result := make([]LedgerEntryDTO, len(entries))
	for i, entry := range entries {
		result[i] = ToLedgerEntryDTO(entry)
	}
	return result
}

// ============================================
// Transaction mappers
// ============================================

// ToTransactionDTO converts a Transaction entity to its API shape.
func ToTransactionDTO(tx *entities.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:           tx.ID().String(),
		ReferenceID:  tx.ReferenceID(),
		Type:         string(tx.Type()),
		Status:       string(tx.Status()),
		Amount:       tx.Amount().String(),
		Description:  tx.Description(),
		ErrorMessage: tx.ErrorMessage(),
		Metadata:     metadataToStringMap(tx.Metadata()),
		CreatedAt:    tx.CreatedAt(),
		CompletedAt:  tx.CompletedAt(),
		UpdatedAt:    tx.UpdatedAt(),
	}

	if from := tx.FromWalletID(); from != nil {
		s := from.String()
		dto.FromWalletID = &s
	}
	if to := tx.ToWalletID(); to != nil {
		s := to.String()
		dto.ToWalletID = &s
	}
	if b := tx.FromBalanceBefore(); b != nil {
		s := b.String()
		dto.FromBalanceBefore = &s
	}
	if b := tx.FromBalanceAfter(); b != nil {
		s := b.String()
		dto.FromBalanceAfter = &s
	}
	if b := tx.ToBalanceBefore(); b != nil {
		s := b.String()
		dto.ToBalanceBefore = &s
	}
	if b := tx.ToBalanceAfter(); b != nil {
		s := b.String()
		dto.ToBalanceAfter = &s
	}

	return dto
}

// ToTransactionDTOList converts a slice of transactions.
func ToTransactionDTOList(transactions []*entities.Transaction) []TransactionDTO {
	result := make([]TransactionDTO, len(transactions))
	for i, tx := range transactions {
		result[i] = ToTransactionDTO(tx)
	}
	return result
}

// ============================================
// Payment mappers
// ============================================

// ToPaymentIntentDTO converts a PaymentIntent entity to its API shape. The
// raw gateway response stays internal.
func ToPaymentIntentDTO(intent *entities.PaymentIntent) PaymentIntentDTO {
	return PaymentIntentDTO{
		ID:               intent.ID().String(),
		UserID:           intent.UserID().String(),
		GatewayPaymentID: intent.GatewayPaymentID(),
		Amount:           intent.Amount().String(),
		Currency:         intent.Currency(),
		Status:           string(intent.Status()),
		PaymentMethod:    intent.PaymentMethod(),
		Description:      intent.Description(),
		Metadata:         metadataToStringMap(intent.Metadata()),
		ErrorMessage:     intent.ErrorMessage(),
		CreatedAt:        intent.CreatedAt(),
		SucceededAt:      intent.SucceededAt(),
		UpdatedAt:        intent.UpdatedAt(),
	}
}

// ToPaymentIntentDTOList converts a slice of payment intents.
func ToPaymentIntentDTOList(intents []*entities.PaymentIntent) []PaymentIntentDTO {
	result := make([]PaymentIntentDTO, len(intents))
	for i, intent := range intents {
		result[i] = ToPaymentIntentDTO(intent)
	}
	return result
}

// ============================================
// Helpers
// ============================================

func metadataToStringMap(metadata map[string]interface{}) map[string]string {
	if len(metadata) == 0 {
		return nil
	}

	result := make(map[string]string, len(metadata))
	for k, v := range metadata {
		switch val := v.(type) {
		case string:
			result[k] = val
		case nil:
			result[k] = ""
		default:
			result[k] = fmt.Sprintf("%v", val)
		}
	}
	return result
}
