package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
)

// SetUserActiveUseCase switches an account's active flag. Accounts are
// never deleted: deactivation revokes the transact gate and keeps the
// history, and a later activation restores the account as it was.
type SetUserActiveUseCase struct {
	userRepo ports.UserRepository
	uow      ports.UnitOfWork
}

// NewSetUserActiveUseCase creates the use case.
func NewSetUserActiveUseCase(userRepo ports.UserRepository, uow ports.UnitOfWork) *SetUserActiveUseCase {
	return &SetUserActiveUseCase{userRepo: userRepo, uow: uow}
}

// Execute applies the flag. The acting user must be staff; re-applying the
// current state is a no-op that still returns the profile.
func (uc *SetUserActiveUseCase) Execute(ctx context.Context, cmd dtos.SetUserActiveCommand) (*dtos.UserDTO, error) {
	userID, err := uuid.Parse(cmd.UserID)
	if err != nil {
		return nil, validationErr("user_id", "invalid user id format")
	}
	if err := requireStaff(ctx, uc.userRepo, cmd.ActorID); err != nil {
		return nil, err
	}

	var result *dtos.UserDTO
	err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
		user, err := uc.userRepo.FindByID(txCtx, userID)
		if err != nil {
			return err
		}
		if cmd.Active {
			user.Activate()
		} else {
			user.Deactivate()
		}
		if err := uc.userRepo.Save(txCtx, user); err != nil {
			return fmt.Errorf("save user: %w", err)
		}
		dto := dtos.ToUserDTO(user)
		result = &dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
