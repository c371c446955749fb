// Package handlers - Payment intent HTTP handlers.
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

// CreateIntentUseCase opens a payment intent with the gateway.
type CreateIntentUseCase interface {
	Execute(ctx context.Context, cmd dtos.CreatePaymentIntentCommand) (*dtos.PaymentIntentDTO, error)
}

// CancelIntentUseCase abandons a pending intent of the requester.
type CancelIntentUseCase interface {
	Execute(ctx context.Context, cmd dtos.CancelPaymentIntentCommand) (*dtos.PaymentIntentDTO, error)
}

// GetIntentUseCase fetches one intent owned by the requester.
type GetIntentUseCase interface {
	Execute(ctx context.Context, query dtos.GetPaymentIntentQuery) (*dtos.PaymentIntentDTO, error)
}

// ListIntentsUseCase pages through the caller's intents.
type ListIntentsUseCase interface {
	Execute(ctx context.Context, query dtos.ListPaymentIntentsQuery) (*dtos.PaymentIntentListDTO, error)
}

// ============================================
// Payment Handler
// ============================================

// PaymentHandler serves payment intent creation and reads. Intents settle
// asynchronously: the wallet credit happens when the gateway webhook
// reports success, never in these handlers.
type PaymentHandler struct {
	createIntent CreateIntentUseCase
	cancelIntent CancelIntentUseCase
	getIntent    GetIntentUseCase
	listIntents  ListIntentsUseCase
}

// NewPaymentHandler creates a PaymentHandler.
func NewPaymentHandler(
	createIntent CreateIntentUseCase,
	cancelIntent CancelIntentUseCase,
	getIntent GetIntentUseCase,
	listIntents ListIntentsUseCase,
) *PaymentHandler {
	return &PaymentHandler{
		createIntent: createIntent,
		cancelIntent: cancelIntent,
		getIntent:    getIntent,
		listIntents:  listIntents,
	}
}

// ============================================
// Request DTOs
// ============================================

// CreateIntentRequest is the intent creation body. Currency defaults to USD
// when omitted.
//
// @Description Create payment intent request body
type CreateIntentRequest struct {
	Amount      string                 `json:"amount" binding:"required,money_amount"`
	Currency    string                 `json:"currency" binding:"omitempty,len=3,alpha"`
	Description string                 `json:"description" binding:"omitempty,max=500"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// IntentIDParam is the intent id path parameter.
type IntentIDParam struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// ============================================
// HTTP Handlers
// ============================================

// CreateIntent opens a payment intent for the caller.
//
// @Summary Create a payment intent
// @Description Open a pending top-up intent with the payment gateway
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateIntentRequest true "Intent data"
// @Success 201 {object} common.APIResponse{data=dtos.PaymentIntentDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 401 {object} common.APIResponse
// @Failure 422 {object} common.APIResponse "Caller cannot transact or amount out of limits"
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/payments/intent [post]
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	userID := middleware.GetAuthUserID(c)
	if userID == uuid.Nil {
		common.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req CreateIntentRequest
	if !BindJSON(c, &req) {
		return
	}

	cmd := dtos.CreatePaymentIntentCommand{
		UserID:      userID.String(),
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Metadata:    req.Metadata,
	}

	result, err := h.createIntent.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusCreated, result)
}

// CancelIntent abandons a pending intent of the caller.
//
// @Summary Cancel a payment intent
// @Description Cancel a pending intent; processing or settled intents cannot be cancelled
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Intent ID" format(uuid)
// @Success 200 {object} common.APIResponse{data=dtos.PaymentIntentDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 401 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Failure 422 {object} common.APIResponse "Intent is no longer pending"
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/payments/{id}/cancel [post]
func (h *PaymentHandler) CancelIntent(c *gin.Context) {
	var params IntentIDParam
	if !BindURI(c, &params) {
		return
	}

	requesterID := middleware.GetAuthUserID(c)
	if requesterID == uuid.Nil {
		common.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	cmd := dtos.CancelPaymentIntentCommand{
		IntentID:    params.ID,
		RequesterID: requesterID.String(),
	}

	result, err := h.cancelIntent.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// GetIntent returns one intent owned by the caller.
//
// @Summary Get payment intent by ID
// @Description Get intent details; only the owner may read it
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Intent ID" format(uuid)
// @Success 200 {object} common.APIResponse{data=dtos.PaymentIntentDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 401 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/payments/{id} [get]
func (h *PaymentHandler) GetIntent(c *gin.Context) {
	var params IntentIDParam
	if !BindURI(c, &params) {
		return
	}

	requesterID := middleware.GetAuthUserID(c)
	if requesterID == uuid.Nil {
		common.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	query := dtos.GetPaymentIntentQuery{
		IntentID:    params.ID,
		RequesterID: requesterID.String(),
	}

	result, err := h.getIntent.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// ListIntents returns a page of the caller's intents, newest first.
//
// @Summary List own payment intents
// @Description Get a page of the authenticated user's payment intents
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param offset query int false "Items to skip" default(0)
// @Param limit query int false "Page size" default(20) maximum(100)
// @Success 200 {object} common.APIResponse{data=dtos.PaymentIntentListDTO}
// @Failure 401 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/payments [get]
func (h *PaymentHandler) ListIntents(c *gin.Context) {
	userID := middleware.GetAuthUserID(c)
	if userID == uuid.Nil {
		common.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	pagination := ParsePagination(c)

	query := dtos.ListPaymentIntentsQuery{
		UserID: userID.String(),
		Offset: pagination.Offset,
		Limit:  pagination.Limit,
	}

	result, err := h.listIntents.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}
