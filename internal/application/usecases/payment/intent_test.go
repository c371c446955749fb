package payment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/usecases/transaction"
	"github.com/centralpay/paycore/internal/domain/entities"
	"github.com/centralpay/paycore/internal/domain/errors"
	"github.com/centralpay/paycore/internal/domain/valueobjects"
)

type mockUserRepo struct {
	findByIDFunc func(ctx context.Context, id uuid.UUID) (*entities.User, error)
}

func (m *mockUserRepo) Save(ctx context.Context, user *entities.User) error { return nil }

func (m *mockUserRepo) UpdateKYCStatus(ctx context.Context, user *entities.User, from entities.KYCStatus) error {
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, errors.NewNotFound("user")
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return false, nil
}

type mockIntentRepo struct {
	saveFunc         func(ctx context.Context, intent *entities.PaymentIntent) error
	findByIDFunc     func(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error)
	findByUserIDFunc func(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*entities.PaymentIntent, error)
}

func (m *mockIntentRepo) Save(ctx context.Context, intent *entities.PaymentIntent) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, intent)
	}
	return nil
}

func (m *mockIntentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, errors.NewNotFound("payment intent")
}

func (m *mockIntentRepo) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*entities.PaymentIntent, error) {
	return nil, errors.NewNotFound("payment intent")
}

func (m *mockIntentRepo) FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*entities.PaymentIntent, error) {
	if m.findByUserIDFunc != nil {
		return m.findByUserIDFunc(ctx, userID, offset, limit)
	}
	return nil, nil
}

func testLimits() transaction.Limits {
	return transaction.Limits{
		MinAmount: valueobjects.MustMoney("0.01"),
		MaxAmount: valueobjects.MustMoney("1000000"),
	}
}

func testUser(id uuid.UUID, status entities.KYCStatus, active bool) *entities.User {
	now := time.Now()
	return entities.ReconstructUser(
		id, "user@example.com", "Test User",
		status, active, false,
		nil, nil, now, now,
	)
}

func userRepoWith(users ...*entities.User) *mockUserRepo {
	byID := make(map[uuid.UUID]*entities.User, len(users))
	for _, u := range users {
		byID[u.ID()] = u
	}
	return &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id uuid.UUID) (*entities.User, error) {
			if u, ok := byID[id]; ok {
				return u, nil
			}
			return nil, errors.NewNotFound("user")
		},
	}
}

func TestCreateIntentUseCase_Success(t *testing.T) {
	userID := uuid.New()
	var saved *entities.PaymentIntent
	intentRepo := &mockIntentRepo{
		saveFunc: func(ctx context.Context, intent *entities.PaymentIntent) error {
			saved = intent
			return nil
		},
	}
	useCase := NewCreateIntentUseCase(
		userRepoWith(testUser(userID, entities.KYCStatusVerified, true)),
		intentRepo,
		testLimits(),
	)

	result, err := useCase.Execute(context.Background(), dtos.CreatePaymentIntentCommand{
		UserID: userID.String(),
		Amount: "50.00",
	})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if saved == nil {
		t.Fatal("Expected the intent to be saved")
	}
	if result.Status != "PENDING" {
		t.Errorf("Expected status PENDING, got %s", result.Status)
	}
	if result.Amount != "50.00" {
		t.Errorf("Expected amount 50.00, got %s", result.Amount)
	}
	if !strings.HasPrefix(result.GatewayPaymentID, "PAY-") {
		t.Errorf("Expected a PAY- gateway payment id, got %s", result.GatewayPaymentID)
	}
	if result.UserID != userID.String() {
		t.Errorf("Expected owner %s, got %s", userID, result.UserID)
	}
	if result.Currency != "USD" {
		t.Errorf("Expected the USD default, got %s", result.Currency)
	}
	if result.SucceededAt != nil {
		t.Error("Expected no succeeded_at on a fresh intent")
	}
}

func TestCreateIntentUseCase_WithDetails(t *testing.T) {
	userID := uuid.New()
	var saved *entities.PaymentIntent
	intentRepo := &mockIntentRepo{
		saveFunc: func(ctx context.Context, intent *entities.PaymentIntent) error {
			saved = intent
			return nil
		},
	}
	useCase := NewCreateIntentUseCase(
		userRepoWith(testUser(userID, entities.KYCStatusVerified, true)),
		intentRepo,
		testLimits(),
	)

	result, err := useCase.Execute(context.Background(), dtos.CreatePaymentIntentCommand{
		UserID:      userID.String(),
		Amount:      "50.00",
		Currency:    "eur",
		Description: "Top-up for order 42",
		Metadata:    map[string]interface{}{"order_id": "42"},
	})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Currency != "EUR" {
		t.Errorf("Expected the currency upper-cased, got %s", result.Currency)
	}
	if result.Description != "Top-up for order 42" {
		t.Errorf("Expected the description kept, got %q", result.Description)
	}
	if result.Metadata["order_id"] != "42" {
		t.Errorf("Expected the metadata kept, got %v", result.Metadata)
	}
	if saved == nil || saved.Metadata()["order_id"] != "42" {
		t.Error("Expected the metadata persisted with the intent")
	}
}

func TestCreateIntentUseCase_TransactGate(t *testing.T) {
	tests := []struct {
		name   string
		status entities.KYCStatus
		active bool
	}{
		{"pending user", entities.KYCStatusPending, true},
		{"rejected user", entities.KYCStatusRejected, true},
		{"deactivated verified user", entities.KYCStatusVerified, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID := uuid.New()
			saves := 0
			intentRepo := &mockIntentRepo{
				saveFunc: func(ctx context.Context, intent *entities.PaymentIntent) error {
					saves++
					return nil
				},
			}
			useCase := NewCreateIntentUseCase(
				userRepoWith(testUser(userID, tt.status, tt.active)),
				intentRepo,
				testLimits(),
			)

			_, err := useCase.Execute(context.Background(), dtos.CreatePaymentIntentCommand{
				UserID: userID.String(),
				Amount: "50.00",
			})

			if !errors.IsInvalidTransaction(err) {
				t.Errorf("Expected invalid transaction error, got: %v", err)
			}
			if saves != 0 {
				t.Error("Expected no intent to be saved")
			}
		})
	}
}

func TestCreateIntentUseCase_Rejections(t *testing.T) {
	userID := uuid.New()
	repo := userRepoWith(testUser(userID, entities.KYCStatusVerified, true))

	t.Run("amount above maximum", func(t *testing.T) {
		useCase := NewCreateIntentUseCase(repo, &mockIntentRepo{}, testLimits())
		_, err := useCase.Execute(context.Background(), dtos.CreatePaymentIntentCommand{
			UserID: userID.String(),
			Amount: "1000000.01",
		})
		if !errors.IsInvalidTransaction(err) {
			t.Errorf("Expected invalid transaction error, got: %v", err)
		}
	})

	t.Run("malformed amount", func(t *testing.T) {
		useCase := NewCreateIntentUseCase(repo, &mockIntentRepo{}, testLimits())
		_, err := useCase.Execute(context.Background(), dtos.CreatePaymentIntentCommand{
			UserID: userID.String(),
			Amount: "fifty",
		})
		if !errors.IsValidationError(err) {
			t.Errorf("Expected validation error, got: %v", err)
		}
	})

	t.Run("malformed currency", func(t *testing.T) {
		useCase := NewCreateIntentUseCase(repo, &mockIntentRepo{}, testLimits())
		_, err := useCase.Execute(context.Background(), dtos.CreatePaymentIntentCommand{
			UserID:   userID.String(),
			Amount:   "50.00",
			Currency: "dollars",
		})
		if !errors.IsValidationError(err) {
			t.Errorf("Expected validation error, got: %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		useCase := NewCreateIntentUseCase(&mockUserRepo{}, &mockIntentRepo{}, testLimits())
		_, err := useCase.Execute(context.Background(), dtos.CreatePaymentIntentCommand{
			UserID: uuid.New().String(),
			Amount: "50.00",
		})
		if !errors.IsNotFound(err) {
			t.Errorf("Expected not found error, got: %v", err)
		}
	})
}

func TestGetIntentUseCase(t *testing.T) {
	ownerID := uuid.New()
	intent, err := entities.NewPaymentIntent(ownerID, valueobjects.MustMoney("75.00"), "", "")
	if err != nil {
		t.Fatalf("NewPaymentIntent: %v", err)
	}
	intentRepo := &mockIntentRepo{
		findByIDFunc: func(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
			if id == intent.ID() {
				return intent, nil
			}
			return nil, errors.NewNotFound("payment intent")
		},
	}
	useCase := NewGetIntentUseCase(intentRepo)

	t.Run("owner sees the intent", func(t *testing.T) {
		result, err := useCase.Execute(context.Background(), dtos.GetPaymentIntentQuery{
			IntentID:    intent.ID().String(),
			RequesterID: ownerID.String(),
		})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if result.GatewayPaymentID != intent.GatewayPaymentID() {
			t.Errorf("Expected gateway payment id %s, got %s", intent.GatewayPaymentID(), result.GatewayPaymentID)
		}
	})

	t.Run("non-owner gets not found", func(t *testing.T) {
		_, err := useCase.Execute(context.Background(), dtos.GetPaymentIntentQuery{
			IntentID:    intent.ID().String(),
			RequesterID: uuid.New().String(),
		})
		if !errors.IsNotFound(err) {
			t.Errorf("Expected not found error, got: %v", err)
		}
	})

	t.Run("unknown intent", func(t *testing.T) {
		_, err := useCase.Execute(context.Background(), dtos.GetPaymentIntentQuery{
			IntentID:    uuid.New().String(),
			RequesterID: ownerID.String(),
		})
		if !errors.IsNotFound(err) {
			t.Errorf("Expected not found error, got: %v", err)
		}
	})

	t.Run("malformed intent id", func(t *testing.T) {
		_, err := useCase.Execute(context.Background(), dtos.GetPaymentIntentQuery{
			IntentID:    "not-a-uuid",
			RequesterID: ownerID.String(),
		})
		if !errors.IsValidationError(err) {
			t.Errorf("Expected validation error, got: %v", err)
		}
	})
}

func TestCancelIntentUseCase(t *testing.T) {
	ownerID := uuid.New()

	newRepoFor := func(intent *entities.PaymentIntent, saves *int) *mockIntentRepo {
		return &mockIntentRepo{
			findByIDFunc: func(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
				if id == intent.ID() {
					return intent, nil
				}
				return nil, errors.NewNotFound("payment intent")
			},
			saveFunc: func(ctx context.Context, saved *entities.PaymentIntent) error {
				*saves++
				return nil
			},
		}
	}

	t.Run("owner cancels a pending intent", func(t *testing.T) {
		intent, _ := entities.NewPaymentIntent(ownerID, valueobjects.MustMoney("75.00"), "", "")
		saves := 0
		useCase := NewCancelIntentUseCase(newRepoFor(intent, &saves))

		result, err := useCase.Execute(context.Background(), dtos.CancelPaymentIntentCommand{
			IntentID:    intent.ID().String(),
			RequesterID: ownerID.String(),
		})

		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if result.Status != "CANCELLED" {
			t.Errorf("Expected status CANCELLED, got %s", result.Status)
		}
		if saves != 1 {
			t.Errorf("Expected one save, got %d", saves)
		}
	})

	t.Run("repeated cancel is a no-op", func(t *testing.T) {
		intent, _ := entities.NewPaymentIntent(ownerID, valueobjects.MustMoney("75.00"), "", "")
		_ = intent.Cancel()
		saves := 0
		useCase := NewCancelIntentUseCase(newRepoFor(intent, &saves))

		result, err := useCase.Execute(context.Background(), dtos.CancelPaymentIntentCommand{
			IntentID:    intent.ID().String(),
			RequesterID: ownerID.String(),
		})

		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if result.Status != "CANCELLED" {
			t.Errorf("Expected status CANCELLED, got %s", result.Status)
		}
		if saves != 0 {
			t.Errorf("Expected no save on a replayed cancel, got %d", saves)
		}
	})

	t.Run("non-owner gets not found", func(t *testing.T) {
		intent, _ := entities.NewPaymentIntent(ownerID, valueobjects.MustMoney("75.00"), "", "")
		saves := 0
		useCase := NewCancelIntentUseCase(newRepoFor(intent, &saves))

		_, err := useCase.Execute(context.Background(), dtos.CancelPaymentIntentCommand{
			IntentID:    intent.ID().String(),
			RequesterID: uuid.New().String(),
		})

		if !errors.IsNotFound(err) {
			t.Errorf("Expected not found error, got: %v", err)
		}
		if saves != 0 {
			t.Error("Expected no save")
		}
	})

	t.Run("processing intent cannot be cancelled", func(t *testing.T) {
		intent, _ := entities.NewPaymentIntent(ownerID, valueobjects.MustMoney("75.00"), "", "")
		_ = intent.MarkProcessing()
		saves := 0
		useCase := NewCancelIntentUseCase(newRepoFor(intent, &saves))

		_, err := useCase.Execute(context.Background(), dtos.CancelPaymentIntentCommand{
			IntentID:    intent.ID().String(),
			RequesterID: ownerID.String(),
		})

		if !errors.IsBusinessRuleViolation(err) {
			t.Errorf("Expected business rule violation, got: %v", err)
		}
		if saves != 0 {
			t.Error("Expected no save")
		}
	})

	t.Run("malformed intent id", func(t *testing.T) {
		useCase := NewCancelIntentUseCase(&mockIntentRepo{})
		_, err := useCase.Execute(context.Background(), dtos.CancelPaymentIntentCommand{
			IntentID:    "not-a-uuid",
			RequesterID: ownerID.String(),
		})
		if !errors.IsValidationError(err) {
			t.Errorf("Expected validation error, got: %v", err)
		}
	})
}

func TestListIntentsUseCase(t *testing.T) {
	userID := uuid.New()
	first, err := entities.NewPaymentIntent(userID, valueobjects.MustMoney("10.00"), "", "")
	if err != nil {
		t.Fatalf("NewPaymentIntent: %v", err)
	}
	second, err := entities.NewPaymentIntent(userID, valueobjects.MustMoney("20.00"), "", "")
	if err != nil {
		t.Fatalf("NewPaymentIntent: %v", err)
	}

	t.Run("returns the page with defaults", func(t *testing.T) {
		var gotOffset, gotLimit int
		intentRepo := &mockIntentRepo{
			findByUserIDFunc: func(ctx context.Context, id uuid.UUID, offset, limit int) ([]*entities.PaymentIntent, error) {
				gotOffset, gotLimit = offset, limit
				return []*entities.PaymentIntent{second, first}, nil
			},
		}
		useCase := NewListIntentsUseCase(intentRepo)

		result, err := useCase.Execute(context.Background(), dtos.ListPaymentIntentsQuery{
			UserID: userID.String(),
		})

		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if gotOffset != 0 || gotLimit != 20 {
			t.Errorf("Expected default paging 0/20, got %d/%d", gotOffset, gotLimit)
		}
		if len(result.Intents) != 2 {
			t.Fatalf("Expected 2 intents, got %d", len(result.Intents))
		}
		if result.Intents[0].Amount != "20.00" {
			t.Errorf("Expected the newest intent first, got amount %s", result.Intents[0].Amount)
		}
	})

	t.Run("clamps the page size", func(t *testing.T) {
		var gotLimit int
		intentRepo := &mockIntentRepo{
			findByUserIDFunc: func(ctx context.Context, id uuid.UUID, offset, limit int) ([]*entities.PaymentIntent, error) {
				gotLimit = limit
				return nil, nil
			},
		}
		useCase := NewListIntentsUseCase(intentRepo)

		if _, err := useCase.Execute(context.Background(), dtos.ListPaymentIntentsQuery{
			UserID: userID.String(),
			Limit:  1000,
		}); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if gotLimit != 100 {
			t.Errorf("Expected limit clamped to 100, got %d", gotLimit)
		}
	})

	t.Run("malformed user id", func(t *testing.T) {
		useCase := NewListIntentsUseCase(&mockIntentRepo{})
		_, err := useCase.Execute(context.Background(), dtos.ListPaymentIntentsQuery{UserID: "zzz"})
		if !errors.IsValidationError(err) {
			t.Errorf("Expected validation error, got: %v", err)
		}
	})
}
