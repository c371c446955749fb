package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
)

// SubmitKYCUseCase moves the caller's own account into review. Valid from
// PENDING and, as a resubmission, from EXPIRED.
type SubmitKYCUseCase struct {
	userRepo ports.UserRepository
	uow      ports.UnitOfWork
}

// NewSubmitKYCUseCase creates the use case.
func NewSubmitKYCUseCase(userRepo ports.UserRepository, uow ports.UnitOfWork) *SubmitKYCUseCase {
	return &SubmitKYCUseCase{userRepo: userRepo, uow: uow}
}

// Execute submits the user's verification for review.
func (uc *SubmitKYCUseCase) Execute(ctx context.Context, cmd dtos.SubmitKYCCommand) (*dtos.UserDTO, error) {
	userID, err := uuid.Parse(cmd.UserID)
	if err != nil {
		return nil, validationErr("user_id", "invalid user id format")
	}

	var result *dtos.UserDTO
	err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
		user, err := uc.userRepo.FindByID(txCtx, userID)
		if err != nil {
			return err
		}
		from := user.KYCStatus()
		if err := user.SubmitKYC(); err != nil {
			return err
		}
		if err := uc.userRepo.UpdateKYCStatus(txCtx, user, from); err != nil {
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
