package user

import (
	"context"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/entities"
)

// ApproveKYCUseCase moves a user from IN_REVIEW to VERIFIED. Once approved
// and while the account stays active, the user can transact.
type ApproveKYCUseCase struct {
	userRepo ports.UserRepository
	uow      ports.UnitOfWork
}

// NewApproveKYCUseCase creates the use case.
func NewApproveKYCUseCase(userRepo ports.UserRepository, uow ports.UnitOfWork) *ApproveKYCUseCase {
	return &ApproveKYCUseCase{userRepo: userRepo, uow: uow}
}

// Execute approves the user's verification. The acting user must be staff.
func (uc *ApproveKYCUseCase) Execute(ctx context.Context, cmd dtos.ReviewKYCCommand) (*dtos.UserDTO, error) {
	return reviewKYC(ctx, uc.userRepo, uc.uow, cmd, (*entities.User).ApproveKYC)
}
