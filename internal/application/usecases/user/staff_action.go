package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/entities"
	"github.com/centralpay/paycore/internal/domain/errors"
)

func validationErr(field, message string) error {
	return errors.ValidationError{Field: field, Message: message}
}

// requireStaff authorizes the acting user for an admin operation. The staff
// flag is loaded fresh per call; a deactivated staff account is refused.
func requireStaff(ctx context.Context, userRepo ports.UserRepository, actorID string) error {
	id, err := uuid.Parse(actorID)
	if err != nil {
		return validationErr("actor_id", "invalid user id format")
	}
	actor, err := userRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load actor: %w", err)
	}
	if !actor.IsStaff() || !actor.IsActive() {
		return errors.NewUnauthorized("staff privileges required")
	}
	return nil
}

// reviewKYC runs one staff-gated transition on a user's verification. The
// transition and the save share one transaction, and the save is guarded by
// the status the transition started from, so concurrent reviewers cannot
// silently overwrite each other.
func reviewKYC(
	ctx context.Context,
	userRepo ports.UserRepository,
	uow ports.UnitOfWork,
	cmd dtos.ReviewKYCCommand,
	transition func(*entities.User) error,
) (*dtos.UserDTO, error) {
	userID, err := uuid.Parse(cmd.UserID)
	if err != nil {
		return nil, validationErr("user_id", "invalid user id format")
	}
	if err := requireStaff(ctx, userRepo, cmd.ActorID); err != nil {
		return nil, err
	}

	var result *dtos.UserDTO
	err = uow.Execute(ctx, func(txCtx context.Context) error {
		user, err := userRepo.FindByID(txCtx, userID)
		if err != nil {
			return err
		}
		from := user.KYCStatus()
		if err := transition(user); err != nil {
			return err
		}
		if err := userRepo.UpdateKYCStatus(txCtx, user, from); err != nil {
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
