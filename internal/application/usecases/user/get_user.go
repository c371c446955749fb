package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
)

// GetUserUseCase reads one user's profile, including the computed
// can_transact flag.
type GetUserUseCase struct {
	userRepo ports.UserRepository
}

// NewGetUserUseCase creates the use case.
func NewGetUserUseCase(userRepo ports.UserRepository) *GetUserUseCase {
	return &GetUserUseCase{userRepo: userRepo}
}

// Execute returns the user by id.
func (uc *GetUserUseCase) Execute(ctx context.Context, query dtos.GetUserQuery) (*dtos.UserDTO, error) {
	userID, err := uuid.Parse(query.UserID)
	if err != nil {
		return nil, validationErr("user_id", "invalid user id format")
	}

	user, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := dtos.ToUserDTO(user)
	return &result, nil
}
