// Package handlers - Wallet HTTP handlers.
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

// GetBalanceUseCase fetches the caller's wallet.
type GetBalanceUseCase interface {
	Execute(ctx context.Context, query dtos.GetBalanceQuery) (*dtos.WalletDTO, error)
}

// ListLedgerUseCase pages through the caller's ledger entries.
type ListLedgerUseCase interface {
	Execute(ctx context.Context, query dtos.ListLedgerQuery) (*dtos.LedgerListDTO, error)
}

// ============================================
// Wallet Handler
// ============================================

// WalletHandler serves the authenticated user's balance and ledger. Every
// user has exactly one wallet, so no wallet id appears in the routes.
type WalletHandler struct {
	getBalance GetBalanceUseCase
	listLedger ListLedgerUseCase
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(getBalance GetBalanceUseCase, listLedger ListLedgerUseCase) *WalletHandler {
	return &WalletHandler{
		getBalance: getBalance,
		listLedger: listLedger,
	}
}

// ============================================
// HTTP Handlers
// ============================================

// GetBalance returns the caller's wallet with its current balance.
//
// @Summary Get own balance
// @Description Get the authenticated user's wallet
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} common.APIResponse{data=dtos.WalletDTO}
// @Failure 401 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/wallet/balance [get]
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := middleware.GetAuthUserID(c)
	if userID == uuid.Nil {
		common.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	query := dtos.GetBalanceQuery{UserID: userID.String()}

	result, err := h.getBalance.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// ListLedger returns a page of the caller's double-entry ledger, newest
// first. The balance_after sequence is the audit trail of the balance.
//
// @Summary List own ledger entries
// @Description Get a page of the authenticated user's ledger entries
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Param offset query int false "Items to skip" default(0)
// @Param limit query int false "Page size" default(20) maximum(100)
// @Success 200 {object} common.APIResponse{data=dtos.LedgerListDTO}
// @Failure 401 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/wallet/ledger [get]
func (h *WalletHandler) ListLedger(c *gin.Context) {
	userID := middleware.GetAuthUserID(c)
	if userID == uuid.Nil {
		common.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	pagination := ParsePagination(c)

	query := dtos.ListLedgerQuery{
		UserID: userID.String(),
		Offset: pagination.Offset,
		Limit:  pagination.Limit,
	}

	result, err := h.listLedger.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}
