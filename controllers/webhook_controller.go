package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/yashrajoria/storefront-backend/pkg/logger"
	"github.com/yashrajoria/storefront-backend/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxWebhookBodyBytes caps the webhook body read.
const MaxWebhookBodyBytes = 64 << 10

type DeliveryHandler interface {
	HandleDelivery(ctx context.Context, payload []byte, sigHeader string) services.ReconcileResult
}

type WebhookController struct {
	handler DeliveryHandler
	logger  *zap.Logger
}

func NewWebhookController(handler DeliveryHandler, logger *zap.Logger) *WebhookController {
	return &WebhookController{handler: handler, logger: logger}
}

// StripeWebhook reads the raw body untouched and reconciles it. Only a
// rejected or failed delivery gets a non-2xx status, so the processor retries
// exactly the deliveries that could still succeed.
func (wc *WebhookController) StripeWebhook(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBodyBytes)
	payload, err := io.ReadAll(body)
	if err != nil {
		wc.logger.Warn("Failed to read webhook body",
			zap.String("request_id", logger.RequestID(c)),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	res := wc.handler.HandleDelivery(c.Request.Context(), payload, c.GetHeader(services.StripeSignatureHeader))

	wc.logger.Info("Stripe webhook processed",
		zap.String("request_id", logger.RequestID(c)),
		zap.String("event_id", res.EventID),
		zap.String("event_type", res.EventType),
		zap.String("session_id", res.SessionID),
		zap.Stringer("outcome", res.Outcome),
	)

	switch res.Outcome {
	case services.OutcomeRejected:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
	case services.OutcomeFailed:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
