package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lingamvamshikrishnareddy/curry/models"
	"github.com/lingamvamshikrishnareddy/curry/services"
)

type DeliveryController struct {
	deliveryService *services.DeliveryService
}

func NewDeliveryController(deliveryService *services.DeliveryService) *DeliveryController {
	return &DeliveryController{deliveryService: deliveryService}
}

// GetDeliveryStatus serves the cached delivery+order status view.
func (dc *DeliveryController) GetDeliveryStatus(c *gin.Context) {
	view, appErr := dc.deliveryService.GetDeliveryStatus(c.Request.Context(), c.Param("orderId"))
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateDeliveryStatus applies an agent/ops status or location update.
func (dc *DeliveryController) UpdateDeliveryStatus(c *gin.Context) {
	var req services.UpdateDeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	delivery, appErr := dc.deliveryService.UpdateDeliveryStatus(c.Request.Context(), &req)
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, delivery)
}

// AssignDeliveryAgent assigns an agent to an order's delivery (admin only).
func (dc *DeliveryController) AssignDeliveryAgent(c *gin.Context) {
	var req struct {
		OrderID string `json:"orderId" binding:"required"`
		services.AgentAssignment
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	delivery, appErr := dc.deliveryService.AssignDeliveryAgent(c.Request.Context(), req.OrderID, &req.AgentAssignment)
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, delivery)
}

// GenerateDeliveryOTP issues a confirmation code for in-person handover.
func (dc *DeliveryController) GenerateDeliveryOTP(c *gin.Context) {
	expiresAt, appErr := dc.deliveryService.GenerateDeliveryOTP(c.Request.Context(), c.Param("orderId"))
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	// The code itself travels out-of-band only.
	c.JSON(http.StatusOK, gin.H{"message": "Confirmation code sent", "expiresAt": expiresAt})
}

// VerifyDeliveryOTP redeems a confirmation code and completes the delivery.
func (dc *DeliveryController) VerifyDeliveryOTP(c *gin.Context) {
	var req struct {
		OrderID string `json:"orderId" binding:"required"`
		OTP     string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	delivery, appErr := dc.deliveryService.VerifyDeliveryOTP(c.Request.Context(), req.OrderID, req.OTP)
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, delivery)
}

// UpdateDeliveryRoute replaces the stored route wholesale.
func (dc *DeliveryController) UpdateDeliveryRoute(c *gin.Context) {
	var req struct {
		Route []models.RoutePoint `json:"route" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	delivery, appErr := dc.deliveryService.UpdateDeliveryRoute(c.Request.Context(), c.Param("orderId"), req.Route)
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, delivery)
}

// GetNearbyDeliveries runs the geospatial proximity query.
func (dc *DeliveryController) GetNearbyDeliveries(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid latitude"})
		return
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid longitude"})
		return
	}

	maxDistance := 5000.0
	if raw := c.Query("maxDistance"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			maxDistance = parsed
		}
	}

	deliveries, appErr := dc.deliveryService.GetNearbyDeliveries(c.Request.Context(), lat, lon, maxDistance)
	if appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, deliveries)
}

// SubmitDeliveryFeedback attaches a rating and comment to a delivery.
func (dc *DeliveryController) SubmitDeliveryFeedback(c *gin.Context) {
	var req struct {
		Rating  int    `json:"rating" binding:"required,min=1,max=5"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	if appErr := dc.deliveryService.SubmitDeliveryFeedback(c.Request.Context(), c.Param("orderId"), req.Rating, req.Comment); appErr != nil {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Feedback recorded"})
}
