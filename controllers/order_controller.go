package controllers

import (
	"context"
	"net/http"

	"github.com/yashrajoria/storefront-backend/middleware"
	"github.com/yashrajoria/storefront-backend/models"
	apperrors "github.com/yashrajoria/storefront-backend/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderReader interface {
	ListForCustomer(ctx context.Context, email string) ([]models.Order, error)
	GetForSession(ctx context.Context, email, sessionID string) (*models.Order, error)
}

type OrderController struct {
	orders OrderReader
	logger *zap.Logger
}

func NewOrderController(orders OrderReader, logger *zap.Logger) *OrderController {
	return &OrderController{orders: orders, logger: logger}
}

func (oc *OrderController) ListOrders(c *gin.Context) {
	email, ok := middleware.GetEmail(c)
	if !ok {
		respondError(c, oc.logger, "Missing caller identity", apperrors.ErrUnauthenticated)
		return
	}
	orders, err := oc.orders.ListForCustomer(c.Request.Context(), email)
	if err != nil {
		respondError(c, oc.logger, "Failed to list orders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrderBySession lets the success page poll until the webhook has landed.
func (oc *OrderController) GetOrderBySession(c *gin.Context) {
	email, ok := middleware.GetEmail(c)
	if !ok {
		respondError(c, oc.logger, "Missing caller identity", apperrors.ErrUnauthenticated)
		return
	}
	order, err := oc.orders.GetForSession(c.Request.Context(), email, c.Param("sessionId"))
	if err != nil {
		respondError(c, oc.logger, "Failed to get order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}
