// Package user implements registration, profile reads and the KYC
// review operations.
package user

import (
	"context"
	"fmt"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/entities"
	"github.com/centralpay/paycore/internal/domain/errors"
)

// RegisterUserUseCase creates a user together with their single wallet.
// Both rows commit in one transaction: an account without a wallet never
// becomes visible.
type RegisterUserUseCase struct {
	userRepo   ports.UserRepository
	walletRepo ports.WalletRepository
	uow        ports.UnitOfWork
}

// NewRegisterUserUseCase creates the use case.
func NewRegisterUserUseCase(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	uow ports.UnitOfWork,
) *RegisterUserUseCase {
	return &RegisterUserUseCase{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		uow:        uow,
	}
}

// Execute registers the user. The account starts PENDING and cannot
// transact until KYC review passes.
func (uc *RegisterUserUseCase) Execute(ctx context.Context, cmd dtos.RegisterUserCommand) (*dtos.UserRegisteredDTO, error) {
	user, err := entities.NewUser(cmd.Email, cmd.FullName)
	if err != nil {
		return nil, err
	}

	var result *dtos.UserRegisteredDTO
	err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
		// Checked against the normalized form; the unique index on email
		// backstops the race between two same-address registrations.
		exists, err := uc.userRepo.ExistsByEmail(txCtx, user.Email())
		if err != nil {
			return fmt.Errorf("check email uniqueness: %w", err)
		}
		if exists {
			return errors.NewConflict("email already registered")
		}

		if err := uc.userRepo.Save(txCtx, user); err != nil {
			return fmt.Errorf("save user: %w", err)
		}

		wallet, err := entities.NewWallet(user.ID())
		if err != nil {
			return err
		}
		if err := uc.walletRepo.Save(txCtx, wallet); err != nil {
			return fmt.Errorf("save wallet: %w", err)
		}

		result = &dtos.UserRegisteredDTO{
			User:   dtos.ToUserDTO(user),
			Wallet: dtos.ToWalletDTO(wallet),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
