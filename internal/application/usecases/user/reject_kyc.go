package user

import (
	"context"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/entities"
)

// RejectKYCUseCase moves a user from IN_REVIEW to REJECTED. The state is
// terminal: a rejected user never re-enters review.
type RejectKYCUseCase struct {
	userRepo ports.UserRepository
	uow      ports.UnitOfWork
}

// NewRejectKYCUseCase creates the use case.
func NewRejectKYCUseCase(userRepo ports.UserRepository, uow ports.UnitOfWork) *RejectKYCUseCase {
	return &RejectKYCUseCase{userRepo: userRepo, uow: uow}
}

// Execute rejects the user's verification. The acting user must be staff.
func (uc *RejectKYCUseCase) Execute(ctx context.Context, cmd dtos.ReviewKYCCommand) (*dtos.UserDTO, error) {
	return reviewKYC(ctx, uc.userRepo, uc.uow, cmd, (*entities.User).RejectKYC)
}
