// Package handlers - Transaction HTTP handlers.
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

// IdempotencyKeyHeader carries the transfer idempotency key. When both the
// header and the JSON field are present, the header wins.
const IdempotencyKeyHeader = "Idempotency-Key"

// maxIdempotencyKeyLength matches the reference_id bound the data model
// guarantees; the domain and the storage CHECK enforce the same limit.
const maxIdempotencyKeyLength = 100

// ============================================
// Use Case Interfaces
// ============================================

// TransferUseCase moves funds between two users atomically.
type TransferUseCase interface {
	Execute(ctx context.Context, cmd dtos.TransferCommand) (*dtos.TransferResultDTO, error)
}

// GetTransactionUseCase fetches one transaction visible to the requester.
type GetTransactionUseCase interface {
	Execute(ctx context.Context, query dtos.GetTransactionQuery) (*dtos.TransactionDetailDTO, error)
}

// ListTransactionsUseCase pages through the requester's transactions.
type ListTransactionsUseCase interface {
	Execute(ctx context.Context, query dtos.ListTransactionsQuery) (*dtos.TransactionListDTO, error)
}

// ============================================
// Transaction Handler
// ============================================

// TransactionHandler serves transfers and transaction reads.
type TransactionHandler struct {
	transfer         TransferUseCase
	getTransaction   GetTransactionUseCase
	listTransactions ListTransactionsUseCase
}

// NewTransactionHandler creates a TransactionHandler.
func NewTransactionHandler(
	transfer TransferUseCase,
	getTransaction GetTransactionUseCase,
	listTransactions ListTransactionsUseCase,
) *TransactionHandler {
	return &TransactionHandler{
		transfer:         transfer,
		getTransaction:   getTransaction,
		listTransactions: listTransactions,
	}
}

// ============================================
// Request DTOs
// ============================================

// TransferRequest is the transfer body. The sender is always the
// authenticated principal, never a field of the request.
//
// @Description Transfer request body
type TransferRequest struct {
	ToUserID       string                 `json:"to_user_id" binding:"required,uuid"`
	Amount         string                 `json:"amount" binding:"required,money_amount"`
	Description    string                 `json:"description" binding:"omitempty,max=500"`
	IdempotencyKey string                 `json:"idempotency_key" binding:"omitempty,max=100"`
	Metadata       map[string]interface{} `json:"metadata"`
}

// TransactionIDParam is the transaction id path parameter.
type TransactionIDParam struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// ListTransactionsParams are the optional list filters.
type ListTransactionsParams struct {
	Type   string `form:"type" binding:"omitempty,transaction_type"`
	Status string `form:"status" binding:"omitempty,transaction_status"`
}

// ============================================
// HTTP Handlers
// ============================================

// Transfer moves funds from the caller to another user.
//
// @Summary Transfer funds
// @Description Atomically debit the caller and credit the recipient
// @Tags Transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key (wins over the JSON field)"
// @Param request body TransferRequest true "Transfer data"
// @Success 200 {object} common.APIResponse{data=dtos.TransferResultDTO} "Replay of an identical keyed transfer"
// @Success 201 {object} common.APIResponse{data=dtos.TransferResultDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 401 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse "Recipient not found"
// @Failure 409 {object} common.APIResponse "Key reused with different parameters"
// @Failure 422 {object} common.APIResponse "Insufficient balance or sender not verified"
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/transactions/transfer [post]
func (h *TransactionHandler) Transfer(c *gin.Context) {
	fromUserID := middleware.GetAuthUserID(c)
	if fromUserID == uuid.Nil {
		common.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req TransferRequest
	if !BindJSON(c, &req) {
		return
	}

	idempotencyKey := req.IdempotencyKey
	if headerKey := c.GetHeader(IdempotencyKeyHeader); headerKey != "" {
		idempotencyKey = headerKey
	}
	// The header bypasses body binding, so its length is checked here.
	if len(idempotencyKey) > maxIdempotencyKeyLength {
		common.ValidationErrorResponse(c, []common.FieldError{
			{Field: "idempotency_key", Message: "Value is too long (maximum: 100)", Code: "max"},
		})
		return
	}

	cmd := dtos.TransferCommand{
		FromUserID:     fromUserID.String(),
		ToUserID:       req.ToUserID,
		Amount:         req.Amount,
		Description:    req.Description,
		IdempotencyKey: idempotencyKey,
		Metadata:       req.Metadata,
	}

	result, err := h.transfer.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	middleware.RecordTransaction(result.Transaction.Type, result.Transaction.Status, result.Transaction.Amount)

	// A replayed key returns the original transaction with 200; a fresh
	// transfer answers 201.
	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	common.Success(c, status, result)
}

// GetTransaction returns one transaction the caller participated in.
//
// @Summary Get transaction by ID
// @Description Get transaction details with ledger entries; only participants may read it
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID" format(uuid)
// @Success 200 {object} common.APIResponse{data=dtos.TransactionDetailDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 401 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	var params TransactionIDParam
	if !BindURI(c, &params) {
		return
	}

	requesterID := middleware.GetAuthUserID(c)
	if requesterID == uuid.Nil {
		common.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	query := dtos.GetTransactionQuery{
		TransactionID: params.ID,
		RequesterID:   requesterID.String(),
	}

	result, err := h.getTransaction.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// ListTransactions returns a page of the caller's transactions.
//
// @Summary List own transactions
// @Description Get a page of transactions the caller participated in
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param offset query int false "Items to skip" default(0)
// @Param limit query int false "Page size" default(20) maximum(100)
// @Param type query string false "Filter by type" Enums(TRANSFER, DEPOSIT, WITHDRAWAL, REFUND, FEE)
// @Param status query string false "Filter by status" Enums(PENDING, PROCESSING, COMPLETED, FAILED, CANCELLED)
// @Success 200 {object} common.APIResponse{data=dtos.TransactionListDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 401 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	userID := middleware.GetAuthUserID(c)
	if userID == uuid.Nil {
		common.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var filters ListTransactionsParams
	if !BindQuery(c, &filters) {
		return
	}

	pagination := ParsePagination(c)

	query := dtos.ListTransactionsQuery{
		UserID: userID.String(),
		Type:   filters.Type,
		Status: filters.Status,
		Offset: pagination.Offset,
		Limit:  pagination.Limit,
	}

	result, err := h.listTransactions.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}
