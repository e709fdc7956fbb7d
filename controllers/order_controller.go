package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lingamvamshikrishnareddy/curry/middleware"
	"github.com/lingamvamshikrishnareddy/curry/services"
)

type OrderController struct {
	orderService *services.OrderService
}

func NewOrderController(orderService *services.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// CreateOrder handles order creation requests
func (oc *OrderController) CreateOrder(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request", "details": err.Error()})
		return
	}

	resp, appErr := oc.orderService.CreateOrder(c.Request.Context(), userID, &req)
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetOrderHistory returns the caller's orders, newest first.
func (oc *OrderController) GetOrderHistory(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	orders, appErr := oc.orderService.GetOrderHistory(c.Request.Context(), userID)
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrderByID returns a specific order for the authenticated user
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	order, appErr := oc.orderService.GetOrderByID(c.Request.Context(), c.Param("id"), userID)
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetOrderStatus is the polling read path for an order's status.
func (oc *OrderController) GetOrderStatus(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	status, appErr := oc.orderService.GetOrderStatus(c.Request.Context(), c.Param("id"), userID)
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, status)
}

// ConfirmPayment confirms or abandons a pending payment.
func (oc *OrderController) ConfirmPayment(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	var req struct {
		Confirmed bool `json:"confirmed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	outcome, appErr := oc.orderService.ConfirmPayment(c.Request.Context(), c.Param("id"), userID, req.Confirmed)
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// VerifyPayment reports the payment state, lazily expiring overdue orders.
func (oc *OrderController) VerifyPayment(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	outcome, appErr := oc.orderService.VerifyPaymentStatus(c.Request.Context(), c.Param("id"), userID)
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// CancelOrder cancels an order that has not reached a terminal state.
func (oc *OrderController) CancelOrder(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	if appErr := oc.orderService.CancelOrder(c.Request.Context(), c.Param("id"), userID); appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Order cancelled successfully"})
}
