package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/yashrajoria/storefront-backend/middleware"
	"github.com/yashrajoria/storefront-backend/models"
	apperrors "github.com/yashrajoria/storefront-backend/pkg/errors"
	"github.com/yashrajoria/storefront-backend/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CheckoutInitiator interface {
	Initiate(ctx context.Context, req *services.CheckoutRequest) (*services.CheckoutSessionResult, error)
}

type CheckoutController struct {
	checkout CheckoutInitiator
	logger   *zap.Logger
}

func NewCheckoutController(checkout CheckoutInitiator, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{checkout: checkout, logger: logger}
}

type checkoutBody struct {
	Cart  []models.CartItem `json:"cart"`
	Email string            `json:"email"`
}

// CreateCheckoutSession handles POST /checkout. The session is always created
// for the authenticated email; a different email in the body is refused.
func (cc *CheckoutController) CreateCheckoutSession(c *gin.Context) {
	caller, ok := middleware.GetEmail(c)
	if !ok {
		respondError(c, cc.logger, "Missing caller identity", apperrors.ErrUnauthenticated)
		return
	}

	var body checkoutBody
	if !bindJSON(c, cc.logger, &body) {
		return
	}
	if body.Email != "" && !strings.EqualFold(strings.TrimSpace(body.Email), caller) {
		respondError(c, cc.logger, "Checkout email does not match token", apperrors.ErrForbidden)
		return
	}

	res, err := cc.checkout.Initiate(c.Request.Context(), &services.CheckoutRequest{
		Cart:          body.Cart,
		CustomerEmail: caller,
	})
	if err != nil {
		respondError(c, cc.logger, "Checkout initiation failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
