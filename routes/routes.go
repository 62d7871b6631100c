package routes

import (
	commonmw "checkout-service/common/middleware"
	"checkout-service/controllers"
	"checkout-service/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the checkout, order and payment endpoints. checkoutLimiter may
// be nil to disable checkout rate limiting.
func RegisterRoutes(r *gin.Engine, checkout *controllers.CheckoutController, orders *controllers.OrderController, checkoutLimiter *commonmw.RateLimiter) {
	checkoutRoutes := r.Group("/checkout")
	checkoutRoutes.Use(middleware.AuthMiddleware())
	if checkoutLimiter != nil {
		checkoutRoutes.Use(commonmw.RateLimit(checkoutLimiter, middleware.UserRateKey))
	}
	checkoutRoutes.POST("", checkout.Checkout)

	orderRoutes := r.Group("/orders")
	orderRoutes.Use(middleware.AuthMiddleware())
	orderRoutes.GET("", orders.GetOrders)
	orderRoutes.GET("/:id", orders.GetOrderByID)
	orderRoutes.GET("/:id/items", orders.GetOrderItems)
	orderRoutes.PUT("/:id/cancel", orders.CancelOrder)

	paymentRoutes := r.Group("/payments")
	paymentRoutes.Use(middleware.AuthMiddleware())
	paymentRoutes.GET("/order/:orderId", orders.GetPaymentByOrderID)
}
