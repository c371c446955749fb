package entities

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/domain/errors"
	"github.com/centralpay/paycore/internal/domain/valueobjects"
)

// TestTransactionType_IsValid tests transaction type validation.
func TestTransactionType_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		txType   TransactionType
		expected bool
	}{
		{"TRANSFER is valid", TransactionTypeTransfer, true},
		{"DEPOSIT is valid", TransactionTypeDeposit, true},
		{"WITHDRAWAL is valid", TransactionTypeWithdrawal, true},
		{"REFUND is valid", TransactionTypeRefund, true},
		{"FEE is valid", TransactionTypeFee, true},
		{"Invalid type", TransactionType("INVALID"), false},
		{"Empty type", TransactionType(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.txType.IsValid(); got != tt.expected {
				t.Errorf("TransactionType.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestTransactionStatus_IsFinal tests terminal status detection.
func TestTransactionStatus_IsFinal(t *testing.T) {
	tests := []struct {
		status TransactionStatus
		final  bool
	}{
		{TransactionStatusPending, false},
		{TransactionStatusProcessing, false},
		{TransactionStatusCompleted, true},
		{TransactionStatusFailed, true},
		{TransactionStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsFinal(); got != tt.final {
				t.Errorf("IsFinal() = %v, want %v", got, tt.final)
			}
		})
	}
}

// TestNewReferenceID tests the generated reference format and uniqueness.
func TestNewReferenceID(t *testing.T) {
	pattern := regexp.MustCompile(`^TXN-[0-9A-F]{16}$`)

	ref1 := NewReferenceID()
	ref2 := NewReferenceID()

	if !pattern.MatchString(ref1) {
		t.Errorf("Reference %q does not match TXN-<16 hex>", ref1)
	}
	if ref1 == ref2 {
		t.Error("Consecutive references should differ")
	}
}

// TestNewTransfer_Success tests transfer creation.
func TestNewTransfer_Success(t *testing.T) {
	from := uuid.New()
	to := uuid.New()

	tx, err := NewTransfer("TXN-AAAA", from, to, money(t, "50.00"), "rent split")
	if err != nil {
		t.Fatalf("NewTransfer() error = %v", err)
	}

	if tx.Status() != TransactionStatusPending {
		t.Errorf("Status = %v, want PENDING", tx.Status())
	}
	if tx.Type() != TransactionTypeTransfer {
		t.Errorf("Type = %v, want TRANSFER", tx.Type())
	}
	if tx.FromWalletID() == nil || *tx.FromWalletID() != from {
		t.Error("FromWalletID not set")
	}
	if tx.ToWalletID() == nil || *tx.ToWalletID() != to {
		t.Error("ToWalletID not set")
	}
	if tx.ReferenceID() != "TXN-AAAA" {
		t.Errorf("ReferenceID = %v, want TXN-AAAA", tx.ReferenceID())
	}
	if tx.CompletedAt() != nil {
		t.Error("CompletedAt should be nil for a pending transaction")
	}
}

// TestNewTransfer_SameWallet tests self transfers are rejected.
func TestNewTransfer_SameWallet(t *testing.T) {
	id := uuid.New()
	_, err := NewTransfer("TXN-AAAA", id, id, money(t, "50.00"), "")
	if err == nil {
		t.Error("Expected error for same source and destination wallet")
	}
}

// TestNewTransfer_EmptyReference tests the reference is required.
func TestNewTransfer_EmptyReference(t *testing.T) {
	_, err := NewTransfer("", uuid.New(), uuid.New(), money(t, "50.00"), "")
	if err == nil {
		t.Error("Expected error for empty reference id")
	}
}

// TestNewTransfer_OverlongReference tests the reference id respects the
// 100-character bound at the 101-character boundary.
func TestNewTransfer_OverlongReference(t *testing.T) {
	_, err := NewTransfer(strings.Repeat("K", 101), uuid.New(), uuid.New(), money(t, "50.00"), "")
	if !errors.IsInvalidTransaction(err) {
		t.Errorf("Expected invalid transaction error for 101-char reference, got: %v", err)
	}

	if _, err := NewTransfer(strings.Repeat("K", 100), uuid.New(), uuid.New(), money(t, "50.00"), ""); err != nil {
		t.Errorf("Expected a 100-char reference to be accepted, got: %v", err)
	}
}

// TestNewDeposit_OverlongReference tests generated references observe the
// same bound as client-supplied keys.
func TestNewDeposit_OverlongReference(t *testing.T) {
	_, err := NewDeposit("DEPOSIT-"+strings.Repeat("P", 93), uuid.New(), money(t, "50.00"), "")
	if !errors.IsInvalidTransaction(err) {
		t.Errorf("Expected invalid transaction error for 101-char reference, got: %v", err)
	}
}

// TestNewTransfer_ZeroAmount tests zero amounts are rejected.
func TestNewTransfer_ZeroAmount(t *testing.T) {
	_, err := NewTransfer("TXN-AAAA", uuid.New(), uuid.New(), valueobjects.ZeroMoney(), "")
	if err == nil {
		t.Error("Expected error for zero amount")
	}
}

// TestNewDeposit_Success tests deposit creation has only a destination leg.
func TestNewDeposit_Success(t *testing.T) {
	to := uuid.New()

	tx, err := NewDeposit("DEPOSIT-PAY-1234", to, money(t, "99.99"), "Deposit via payment gateway (PAY-1234)")
	if err != nil {
		t.Fatalf("NewDeposit() error = %v", err)
	}

	if tx.Type() != TransactionTypeDeposit {
		t.Errorf("Type = %v, want DEPOSIT", tx.Type())
	}
	if tx.FromWalletID() != nil {
		t.Error("FromWalletID should be nil for deposits")
	}
	if tx.ToWalletID() == nil || *tx.ToWalletID() != to {
		t.Error("ToWalletID not set")
	}
}

// TestTransaction_Lifecycle walks PENDING -> PROCESSING -> COMPLETED.
func TestTransaction_Lifecycle(t *testing.T) {
	tx, _ := NewTransfer("TXN-AAAA", uuid.New(), uuid.New(), money(t, "10.00"), "")

	t.Run("Start processing", func(t *testing.T) {
		if err := tx.StartProcessing(); err != nil {
			t.Fatalf("StartProcessing() error = %v", err)
		}
		if tx.Status() != TransactionStatusProcessing {
			t.Errorf("Status = %v, want PROCESSING", tx.Status())
		}
	})

	t.Run("Cannot start processing twice", func(t *testing.T) {
		if err := tx.StartProcessing(); err == nil {
			t.Error("Expected error when processing twice")
		}
	})

	t.Run("Complete", func(t *testing.T) {
		if err := tx.MarkCompleted(); err != nil {
			t.Fatalf("MarkCompleted() error = %v", err)
		}
		if tx.Status() != TransactionStatusCompleted {
			t.Errorf("Status = %v, want COMPLETED", tx.Status())
		}
		if tx.CompletedAt() == nil {
			t.Error("CompletedAt should be stamped on completion")
		}
	})

	t.Run("Completed transaction is immutable", func(t *testing.T) {
		if err := tx.MarkFailed("late failure"); err == nil {
			t.Error("Expected error when failing a completed transaction")
		}
		if err := tx.Cancel(); err == nil {
			t.Error("Expected error when cancelling a completed transaction")
		}
		if err := tx.AddMetadata("k", "v"); err == nil {
			t.Error("Expected error when mutating a completed transaction")
		}
	})
}

// TestTransaction_MarkCompleted_RequiresProcessing tests completion needs PROCESSING.
func TestTransaction_MarkCompleted_RequiresProcessing(t *testing.T) {
	tx, _ := NewTransfer("TXN-AAAA", uuid.New(), uuid.New(), money(t, "10.00"), "")

	if err := tx.MarkCompleted(); err == nil {
		t.Error("Expected error when completing a pending transaction")
	}
}

// TestTransaction_MarkFailed tests failure from both live states.
func TestTransaction_MarkFailed(t *testing.T) {
	t.Run("From pending", func(t *testing.T) {
		tx, _ := NewTransfer("TXN-AAAA", uuid.New(), uuid.New(), money(t, "10.00"), "")
		if err := tx.MarkFailed("insufficient balance"); err != nil {
			t.Fatalf("MarkFailed() error = %v", err)
		}
		if tx.Status() != TransactionStatusFailed {
			t.Errorf("Status = %v, want FAILED", tx.Status())
		}
		if tx.ErrorMessage() != "insufficient balance" {
			t.Errorf("ErrorMessage = %q, want the failure reason", tx.ErrorMessage())
		}
		if tx.CompletedAt() == nil {
			t.Error("CompletedAt should be stamped on failure")
		}
	})

	t.Run("From processing", func(t *testing.T) {
		tx, _ := NewTransfer("TXN-BBBB", uuid.New(), uuid.New(), money(t, "10.00"), "")
		_ = tx.StartProcessing()
		if err := tx.MarkFailed("lock timeout"); err != nil {
			t.Fatalf("MarkFailed() error = %v", err)
		}
		if !tx.IsFailed() {
			t.Error("Transaction should be failed")
		}
	})
}

// TestTransaction_Cancel tests cancellation only from PENDING.
func TestTransaction_Cancel(t *testing.T) {
	tx, _ := NewTransfer("TXN-AAAA", uuid.New(), uuid.New(), money(t, "10.00"), "")

	if err := tx.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if tx.Status() != TransactionStatusCancelled {
		t.Errorf("Status = %v, want CANCELLED", tx.Status())
	}

	tx2, _ := NewTransfer("TXN-BBBB", uuid.New(), uuid.New(), money(t, "10.00"), "")
	_ = tx2.StartProcessing()
	if err := tx2.Cancel(); err == nil {
		t.Error("Expected error when cancelling a processing transaction")
	}
}

// TestTransaction_RecordTransferBalances tests the audit snapshots.
func TestTransaction_RecordTransferBalances(t *testing.T) {
	tx, _ := NewTransfer("TXN-AAAA", uuid.New(), uuid.New(), money(t, "25.00"), "")

	tx.RecordTransferBalances(
		money(t, "100.00"), money(t, "75.00"),
		money(t, "10.00"), money(t, "35.00"),
	)

	if tx.FromBalanceBefore() == nil || tx.FromBalanceBefore().String() != "100.00" {
		t.Error("FromBalanceBefore not recorded")
	}
	if tx.FromBalanceAfter() == nil || tx.FromBalanceAfter().String() != "75.00" {
		t.Error("FromBalanceAfter not recorded")
	}
	if tx.ToBalanceBefore() == nil || tx.ToBalanceBefore().String() != "10.00" {
		t.Error("ToBalanceBefore not recorded")
	}
	if tx.ToBalanceAfter() == nil || tx.ToBalanceAfter().String() != "35.00" {
		t.Error("ToBalanceAfter not recorded")
	}
}

// TestTransaction_IsParticipant tests participant checks on both legs.
func TestTransaction_IsParticipant(t *testing.T) {
	from := uuid.New()
	to := uuid.New()
	tx, _ := NewTransfer("TXN-AAAA", from, to, money(t, "10.00"), "")

	if !tx.IsParticipant(from) {
		t.Error("Source wallet should be a participant")
	}
	if !tx.IsParticipant(to) {
		t.Error("Destination wallet should be a participant")
	}
	if tx.IsParticipant(uuid.New()) {
		t.Error("Unrelated wallet should not be a participant")
	}

	deposit, _ := NewDeposit("DEPOSIT-PAY-1", to, money(t, "10.00"), "")
	if !deposit.IsParticipant(to) {
		t.Error("Deposit destination should be a participant")
	}
	if deposit.IsParticipant(from) {
		t.Error("Deposit has no source participant")
	}
}

// TestTransaction_Metadata tests metadata mutation and serialization.
func TestTransaction_Metadata(t *testing.T) {
	tx, _ := NewTransfer("TXN-AAAA", uuid.New(), uuid.New(), money(t, "10.00"), "")

	if err := tx.AddMetadata("channel", "mobile"); err != nil {
		t.Fatalf("AddMetadata() error = %v", err)
	}

	data, err := tx.MetadataJSON()
	if err != nil {
		t.Fatalf("MetadataJSON() error = %v", err)
	}
	if string(data) == "{}" {
		t.Error("MetadataJSON should contain the added entry")
	}
}

// TestTransaction_MetadataJSON_Empty tests the empty map serializes to {}.
func TestTransaction_MetadataJSON_Empty(t *testing.T) {
	tx, _ := NewTransfer("TXN-AAAA", uuid.New(), uuid.New(), money(t, "10.00"), "")

	data, err := tx.MetadataJSON()
	if err != nil {
		t.Fatalf("MetadataJSON() error = %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("MetadataJSON = %s, want {}", data)
	}
}

// TestReconstructTransaction tests rebuilding from stored columns.
func TestReconstructTransaction(t *testing.T) {
	id := uuid.New()
	from := uuid.New()
	to := uuid.New()
	now := time.Now()
	completed := now.Add(time.Second)
	before := money(t, "100.00")
	after := money(t, "75.00")

	tx, err := ReconstructTransaction(
		id,
		"TXN-AAAA",
		TransactionTypeTransfer,
		TransactionStatusCompleted,
		&from, &to,
		money(t, "25.00"),
		"rent split",
		&before, &after, nil, nil,
		"",
		0,
		[]byte(`{"channel":"mobile"}`),
		now,
		&completed,
		completed,
	)
	if err != nil {
		t.Fatalf("ReconstructTransaction() error = %v", err)
	}

	if tx.ID() != id {
		t.Error("ID mismatch after reconstruction")
	}
	if tx.Metadata()["channel"] != "mobile" {
		t.Error("Metadata not restored from JSON")
	}
	if !tx.IsCompleted() {
		t.Error("Status mismatch after reconstruction")
	}
}

// TestReconstructTransaction_BadMetadata tests corrupt metadata is surfaced.
func TestReconstructTransaction_BadMetadata(t *testing.T) {
	_, err := ReconstructTransaction(
		uuid.New(),
		"TXN-AAAA",
		TransactionTypeTransfer,
		TransactionStatusPending,
		nil, nil,
		money(t, "25.00"),
		"",
		nil, nil, nil, nil,
		"",
		0,
		[]byte(`{not json`),
		time.Now(),
		nil,
		time.Now(),
	)
	if err == nil {
		t.Error("Expected error for corrupt metadata JSON")
	}
}
