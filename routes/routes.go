package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/lingamvamshikrishnareddy/curry/controllers"
	"github.com/lingamvamshikrishnareddy/curry/middleware"
	"github.com/lingamvamshikrishnareddy/curry/realtime"
)

// Register wires the HTTP surface. Every route is bearer-authenticated
// except the signed gateway callback, which trusts its signature instead.
func Register(
	r *gin.Engine,
	orderController *controllers.OrderController,
	paymentController *controllers.PaymentController,
	deliveryController *controllers.DeliveryController,
	hub *realtime.Hub,
	jwtSecret string,
) {
	auth := middleware.AuthMiddleware(jwtSecret)

	orders := r.Group("/orders")
	orders.Use(auth)
	orders.POST("", orderController.CreateOrder)
	orders.GET("/history", orderController.GetOrderHistory)
	orders.GET("/:id", orderController.GetOrderByID)
	orders.GET("/:id/status", orderController.GetOrderStatus)
	orders.POST("/:id/confirm-payment", orderController.ConfirmPayment)
	orders.GET("/:id/verify-payment", orderController.VerifyPayment)
	orders.POST("/:id/cancel", orderController.CancelOrder)

	payments := r.Group("/payments")
	// Gateway callback: no bearer auth, the signature is verified instead.
	payments.POST("/verify", paymentController.VerifyPayment)
	payments.POST("/:orderId/initiate", auth, paymentController.InitiatePayment)
	payments.POST("/:orderId/timeout", auth, paymentController.HandlePaymentTimeout)
	payments.GET("/status/:paymentId", auth, paymentController.GetPaymentStatus)

	delivery := r.Group("/delivery")
	delivery.Use(auth)
	delivery.GET("/status/:orderId", deliveryController.GetDeliveryStatus)
	delivery.PUT("/status", deliveryController.UpdateDeliveryStatus)
	delivery.POST("/assign", middleware.AdminOnly(), deliveryController.AssignDeliveryAgent)
	delivery.POST("/generate-otp/:orderId", deliveryController.GenerateDeliveryOTP)
	delivery.POST("/verify-otp", deliveryController.VerifyDeliveryOTP)
	delivery.PUT("/update-route/:orderId", deliveryController.UpdateDeliveryRoute)
	delivery.GET("/nearby", deliveryController.GetNearbyDeliveries)
	delivery.POST("/feedback/:orderId", deliveryController.SubmitDeliveryFeedback)

	// Live channel: token auth happens inside the handshake.
	r.GET("/ws", realtime.HandleWebSocket(hub, jwtSecret))
}
