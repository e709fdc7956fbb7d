package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lingamvamshikrishnareddy/curry/services"
)

type PaymentController struct {
	paymentService *services.PaymentService
	orderService   *services.OrderService
}

func NewPaymentController(paymentService *services.PaymentService, orderService *services.OrderService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		orderService:   orderService,
	}
}

// InitiatePayment creates a gateway payment intent for the order.
func (pc *PaymentController) InitiatePayment(c *gin.Context) {
	var req struct {
		Method string `json:"method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	resp, appErr := pc.paymentService.InitiatePayment(c.Request.Context(), c.Param("orderId"), req.Method)
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"razorpayOrderId": resp.RazorpayOrderID,
		"amount":          resp.Amount,
		"currency":        resp.Currency,
	})
}

// VerifyPayment is the unauthenticated signed gateway callback; the
// signature check is the only trust anchor.
func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	var req services.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	if appErr := pc.paymentService.VerifyCallback(c.Request.Context(), &req); appErr != nil {
		c.JSON(appErr.Code, gin.H{"success": false, "message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment verified successfully"})
}

// HandlePaymentTimeout force-expires an unconfirmed payment.
func (pc *PaymentController) HandlePaymentTimeout(c *gin.Context) {
	outcome, appErr := pc.orderService.HandlePaymentTimeout(c.Request.Context(), c.Param("orderId"))
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"success": false, "message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": outcome.Message})
}

// GetPaymentStatus reports a payment record's status.
func (pc *PaymentController) GetPaymentStatus(c *gin.Context) {
	status, appErr := pc.paymentService.GetPaymentStatus(c.Request.Context(), c.Param("paymentId"))
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"success": false, "message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": status})
}
