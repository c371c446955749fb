package user

import (
	"context"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/entities"
)

// ExpireKYCUseCase moves a user from VERIFIED to EXPIRED, revoking the
// transact gate until a resubmitted verification is approved again.
type ExpireKYCUseCase struct {
	userRepo ports.UserRepository
	uow      ports.UnitOfWork
}

// NewExpireKYCUseCase creates the use case.
func NewExpireKYCUseCase(userRepo ports.UserRepository, uow ports.UnitOfWork) *ExpireKYCUseCase {
	return &ExpireKYCUseCase{userRepo: userRepo, uow: uow}
}

// Execute expires the user's verification. The acting user must be staff.
func (uc *ExpireKYCUseCase) Execute(ctx context.Context, cmd dtos.ReviewKYCCommand) (*dtos.UserDTO, error) {
	return reviewKYC(ctx, uc.userRepo, uc.uow, cmd, (*entities.User).ExpireKYC)
}
