// Package handlers - Payment gateway webhook handler.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/centralpay/paycore/internal/adapters/http/common"
	"github.com/centralpay/paycore/internal/adapters/http/middleware"
	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/domain/errors"
)

// WebhookSignatureHeader carries the gateway's hex HMAC-SHA256 of the raw
// request body.
const WebhookSignatureHeader = "X-Webhook-Signature"

// IngestWebhookUseCase verifies, stores and enqueues one gateway
// notification.
type IngestWebhookUseCase interface {
	Execute(ctx context.Context, cmd dtos.IngestWebhookCommand) (*dtos.WebhookAcceptedDTO, error)
}

// WebhookHandler receives payment gateway callbacks.
type WebhookHandler struct {
	ingest IngestWebhookUseCase
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(ingest IngestWebhookUseCase) *WebhookHandler {
	return &WebhookHandler{ingest: ingest}
}

// Ingest accepts one gateway notification. The 200 acknowledges durable
// receipt only; processing happens asynchronously off the queue.
//
// The signature covers the exact bytes received, so the body is read raw
// before anything can reformat it. No JSON binding happens here.
//
// @Summary Receive a payment gateway webhook
// @Description Verify, store and enqueue a gateway notification
// @Tags Payments
// @Accept json
// @Produce json
// @Param X-Webhook-Signature header string true "Hex HMAC-SHA256 of the raw body"
// @Success 200 {object} common.APIResponse{data=dtos.WebhookAcceptedDTO}
// @Failure 400 {object} common.APIResponse "Malformed payload"
// @Failure 401 {object} common.APIResponse "Signature verification failed"
// @Failure 500 {object} common.APIResponse "Store or queue unavailable; the gateway should redeliver"
// @Router /api/v1/payments/webhook [post]
func (h *WebhookHandler) Ingest(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		common.BadRequestResponse(c, "Unable to read request body")
		return
	}
	if len(payload) == 0 {
		common.BadRequestResponse(c, "Empty webhook payload")
		return
	}

	cmd := dtos.IngestWebhookCommand{
		Payload:   payload,
		Signature: c.GetHeader(WebhookSignatureHeader),
	}

	result, err := h.ingest.Execute(c.Request.Context(), cmd)
	if err != nil {
		switch {
		case errors.IsUnauthorized(err):
			middleware.RecordWebhookEvent("rejected")
		case errors.IsInvalidTransaction(err):
			middleware.RecordWebhookEvent("invalid")
		}
		common.HandleDomainError(c, err)
		return
	}

	if result.Duplicate {
		middleware.RecordWebhookEvent("duplicate")
	} else {
		middleware.RecordWebhookEvent("accepted")
	}

	common.Success(c, http.StatusOK, result)
}
