// Package handlers - User and KYC HTTP handlers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/adapters/http/common"
	"github.com/centralpay/paycore/internal/adapters/http/middleware"
	"github.com/centralpay/paycore/internal/application/dtos"
)

// ============================================
// Use Case Interfaces
// ============================================

// RegisterUserUseCase creates a user and their wallet in one transaction.
type RegisterUserUseCase interface {
	Execute(ctx context.Context, cmd dtos.RegisterUserCommand) (*dtos.UserRegisteredDTO, error)
}

// GetUserUseCase fetches one user.
type GetUserUseCase interface {
	Execute(ctx context.Context, query dtos.GetUserQuery) (*dtos.UserDTO, error)
}

// SubmitKYCUseCase moves the caller's account into review.
type SubmitKYCUseCase interface {
	Execute(ctx context.Context, cmd dtos.SubmitKYCCommand) (*dtos.UserDTO, error)
}

// ReviewKYCUseCase is the shared shape of the approve, reject and expire
// review operations. Authorization of the acting staff member happens
// inside the use case, against the store.
type ReviewKYCUseCase interface {
	Execute(ctx context.Context, cmd dtos.ReviewKYCCommand) (*dtos.UserDTO, error)
}

// SetUserActiveUseCase activates or deactivates an account.
type SetUserActiveUseCase interface {
	Execute(ctx context.Context, cmd dtos.SetUserActiveCommand) (*dtos.UserDTO, error)
}

// ============================================
// User Handler
// ============================================

// UserHandler serves registration, profile reads, the KYC lifecycle and
// account activation.
type UserHandler struct {
	registerUser RegisterUserUseCase
	getUser      GetUserUseCase
	submitKYC    SubmitKYCUseCase
	approveKYC   ReviewKYCUseCase
	rejectKYC    ReviewKYCUseCase
	expireKYC    ReviewKYCUseCase
	setActive    SetUserActiveUseCase
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(
	registerUser RegisterUserUseCase,
	getUser GetUserUseCase,
	submitKYC SubmitKYCUseCase,
	approveKYC ReviewKYCUseCase,
	rejectKYC ReviewKYCUseCase,
	expireKYC ReviewKYCUseCase,
	setActive SetUserActiveUseCase,
) *UserHandler {
	return &UserHandler{
		registerUser: registerUser,
		getUser:      getUser,
		submitKYC:    submitKYC,
		approveKYC:   approveKYC,
		rejectKYC:    rejectKYC,
		expireKYC:    expireKYC,
		setActive:    setActive,
	}
}

// ============================================
// Request DTOs (HTTP layer)
// ============================================

// RegisterUserRequest is the registration body.
//
// @Description Register user request body
type RegisterUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required,min=2,max=100"`
}

// UserIDParam is the user id path parameter.
type UserIDParam struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// ============================================
// HTTP Handlers
// ============================================

// Register creates a new user together with their wallet.
//
// @Summary Register a new user
// @Description Create a user account and its zero-balance wallet atomically
// @Tags Users
// @Accept json
// @Produce json
// @Param request body RegisterUserRequest true "User data"
// @Success 201 {object} common.APIResponse{data=dtos.UserRegisteredDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 409 {object} common.APIResponse "Email already registered"
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/users [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterUserRequest
	if !BindJSON(c, &req) {
		return
	}

	cmd := dtos.RegisterUserCommand{
		Email:    req.Email,
		FullName: req.FullName,
	}

	result, err := h.registerUser.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusCreated, result)
}

// GetMe returns the authenticated user's profile, including can_transact.
//
// @Summary Get own profile
// @Description Get the authenticated user's profile
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} common.APIResponse{data=dtos.UserDTO}
// @Failure 401 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := middleware.GetAuthUserID(c)
	if userID == uuid.Nil {
		common.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	query := dtos.GetUserQuery{UserID: userID.String()}

	result, err := h.getUser.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// SubmitKYC moves the caller's own account from PENDING or EXPIRED into
// IN_REVIEW.
//
// @Summary Submit KYC for review
// @Description Submit the authenticated user's account for verification
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} common.APIResponse{data=dtos.UserDTO}
// @Failure 401 {object} common.APIResponse
// @Failure 422 {object} common.APIResponse "Submission not allowed from the current status"
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/users/me/kyc [post]
func (h *UserHandler) SubmitKYC(c *gin.Context) {
	userID := middleware.GetAuthUserID(c)
	if userID == uuid.Nil {
		common.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	cmd := dtos.SubmitKYCCommand{UserID: userID.String()}

	result, err := h.submitKYC.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// ApproveKYC marks a user's verification as passed (IN_REVIEW to VERIFIED).
//
// @Summary Approve KYC verification
// @Description Approve a user's pending verification review
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID" format(uuid)
// @Success 200 {object} common.APIResponse{data=dtos.UserDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 403 {object} common.APIResponse "Caller is not staff"
// @Failure 404 {object} common.APIResponse
// @Failure 422 {object} common.APIResponse "User is not in review"
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/users/{id}/kyc/approve [post]
func (h *UserHandler) ApproveKYC(c *gin.Context) {
	h.reviewKYC(c, h.approveKYC, "approved")
}

// RejectKYC marks a user's verification as failed (IN_REVIEW to REJECTED,
// terminal).
//
// @Summary Reject KYC verification
// @Description Reject a user's pending verification review
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID" format(uuid)
// @Success 200 {object} common.APIResponse{data=dtos.UserDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 403 {object} common.APIResponse "Caller is not staff"
// @Failure 404 {object} common.APIResponse
// @Failure 422 {object} common.APIResponse "User is not in review"
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/users/{id}/kyc/reject [post]
func (h *UserHandler) RejectKYC(c *gin.Context) {
	h.reviewKYC(c, h.rejectKYC, "rejected")
}

// ExpireKYC lapses a verified user back to EXPIRED, requiring resubmission.
//
// @Summary Expire KYC verification
// @Description Expire a user's verification (VERIFIED to EXPIRED)
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID" format(uuid)
// @Success 200 {object} common.APIResponse{data=dtos.UserDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 403 {object} common.APIResponse "Caller is not staff"
// @Failure 404 {object} common.APIResponse
// @Failure 422 {object} common.APIResponse "User is not verified"
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/users/{id}/kyc/expire [post]
func (h *UserHandler) ExpireKYC(c *gin.Context) {
	h.reviewKYC(c, h.expireKYC, "expired")
}

// reviewKYC is the shared body of the three staff review endpoints. The
// acting staff member is the authenticated principal; the use case verifies
// their privileges against the store.
func (h *UserHandler) reviewKYC(c *gin.Context, uc ReviewKYCUseCase, decision string) {
	var params UserIDParam
	if !BindURI(c, &params) {
		return
	}

	actorID := middleware.GetAuthUserID(c)
	if actorID == uuid.Nil {
		common.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	cmd := dtos.ReviewKYCCommand{
		UserID:  params.ID,
		ActorID: actorID.String(),
	}

	result, err := uc.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	middleware.RecordKYCReview(decision)
	common.Success(c, http.StatusOK, result)
}

// DeactivateUser disables an account. Accounts are never deleted; a
// deactivated user keeps their history but loses the transact gate.
//
// @Summary Deactivate a user account
// @Description Disable an account, revoking its ability to transact
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID" format(uuid)
// @Success 200 {object} common.APIResponse{data=dtos.UserDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 403 {object} common.APIResponse "Caller is not staff"
// @Failure 404 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/users/{id}/deactivate [post]
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	h.setUserActive(c, false)
}

// ActivateUser re-enables a deactivated account.
//
// @Summary Activate a user account
// @Description Re-enable a deactivated account
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID" format(uuid)
// @Success 200 {object} common.APIResponse{data=dtos.UserDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 403 {object} common.APIResponse "Caller is not staff"
// @Failure 404 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/users/{id}/activate [post]
func (h *UserHandler) ActivateUser(c *gin.Context) {
	h.setUserActive(c, true)
}

func (h *UserHandler) setUserActive(c *gin.Context, active bool) {
	var params UserIDParam
	if !BindURI(c, &params) {
		return
	}

	actorID := middleware.GetAuthUserID(c)
	if actorID == uuid.Nil {
		common.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	cmd := dtos.SetUserActiveCommand{
		UserID:  params.ID,
		ActorID: actorID.String(),
		Active:  active,
	}

	result, err := h.setActive.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}
