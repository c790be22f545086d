package routes

import (
	"net/http"

	"github.com/yashrajoria/storefront-backend/controllers"
	"github.com/yashrajoria/storefront-backend/middleware"

	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Products *controllers.ProductController
	Users    *controllers.UserController
	Checkout *controllers.CheckoutController
	Webhook  *controllers.WebhookController
	Orders   *controllers.OrderController
}

// RegisterRoutes wires every route onto r. The webhook routes carry no auth
// and no body binding; their handler reads the raw body itself.
func RegisterRoutes(r *gin.Engine, ctl Controllers, verifier middleware.TokenVerifier, limiter *middleware.RateLimiter) {
	auth := middleware.RequireAuth(verifier)
	limit := limiter.Middleware()

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Hello World!")
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/webhook", ctl.Webhook.StripeWebhook)
	r.POST("/stripe/webhook", ctl.Webhook.StripeWebhook)

	products := r.Group("/products")
	{
		products.GET("", ctl.Products.GetProducts)
		products.GET("/:id", ctl.Products.GetProduct)
		products.POST("", auth, ctl.Products.CreateProduct)
		products.PATCH("/:id", auth, ctl.Products.UpdateProduct)
		products.DELETE("/:id", auth, ctl.Products.DeleteProduct)
	}

	users := r.Group("/users")
	{
		users.POST("", limit, ctl.Users.Login)
		users.GET("", auth, ctl.Users.GetUsers)
		users.GET("/:email", auth, ctl.Users.GetUser)
		users.PATCH("/:email", auth, ctl.Users.UpdateUser)
	}

	r.POST("/checkout", limit, auth, ctl.Checkout.CreateCheckoutSession)

	orders := r.Group("/orders", auth)
	{
		orders.GET("", ctl.Orders.ListOrders)
		orders.GET("/session/:sessionId", ctl.Orders.GetOrderBySession)
	}
}
