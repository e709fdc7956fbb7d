package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/lingamvamshikrishnareddy/curry/apperrors"
	"github.com/lingamvamshikrishnareddy/curry/kafka"
	"github.com/lingamvamshikrishnareddy/curry/models"
	"github.com/lingamvamshikrishnareddy/curry/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const paymentWindow = 30 * time.Minute

type OrderItemRequest struct {
	MenuItem string `json:"menuItem" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	Items         []OrderItemRequest `json:"items" binding:"required,dive"`
	Total         float64            `json:"total" binding:"required"`
	PaymentMethod string             `json:"paymentMethod" binding:"required"`
	Name          string             `json:"name" binding:"required"`
	Phone         string             `json:"phone" binding:"required"`
	Address       string             `json:"address" binding:"required"`
}

// CreateOrderResponse carries the payment-initiation payload for non-cash
// orders: the encoded UPI QR data and the deadline the client must pay by.
type CreateOrderResponse struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	PaymentMethod   string     `json:"paymentMethod"`
	PaymentDeadline *time.Time `json:"paymentDeadline,omitempty"`
	QRData          string     `json:"qrData,omitempty"`
}

// PaymentOutcome reports the result of a confirm/verify call.
type PaymentOutcome struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// OrderService owns the Order state machine: creation, payment-deadline
// enforcement, confirmation, cancellation, expiry. Deadlines are enforced
// lazily on the next status query, never by a background timer.
type OrderService struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	producer    kafka.ProducerAPI
	upiID       string
	logger      *zap.Logger
}

func NewOrderService(orderRepo repository.OrderRepository, paymentRepo repository.PaymentRepository, producer kafka.ProducerAPI, upiID string, logger *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		producer:    producer,
		upiID:       upiID,
		logger:      logger,
	}
}

// CreateOrder validates and persists a new Pending order. Non-cash orders
// get a 30 minute payment deadline and a payment-initiation payload; no
// gateway call is made here.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, req *CreateOrderRequest) (*CreateOrderResponse, *apperrors.Error) {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperrors.Validation("Invalid user ID format")
	}

	if len(req.Items) == 0 {
		return nil, apperrors.Validation("Invalid items in order")
	}
	if req.Total <= 0 {
		return nil, apperrors.Validation("Invalid total amount")
	}

	method := models.PaymentMethod(strings.ToUpper(req.PaymentMethod))
	if !method.Valid() {
		return nil, apperrors.Validation("Unsupported payment method")
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		menuOID, err := primitive.ObjectIDFromHex(item.MenuItem)
		if err != nil {
			return nil, apperrors.Validation("Invalid menu item reference")
		}
		if item.Quantity < 1 {
			return nil, apperrors.Validation("Item quantity must be at least 1")
		}
		items = append(items, models.OrderItem{MenuItem: menuOID, Quantity: item.Quantity})
	}

	order := &models.Order{
		User:          userOID,
		Items:         items,
		Total:         req.Total,
		Status:        models.OrderPending,
		PaymentMethod: method,
		Name:          req.Name,
		Phone:         req.Phone,
		Address:       req.Address,
	}

	// Only non-COD orders carry a payment deadline.
	if method != models.MethodCOD {
		deadline := time.Now().Add(paymentWindow)
		order.PaymentDeadline = &deadline
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.logger.Error("failed to create order", zap.Error(err))
		return nil, apperrors.Internal("Failed to create order", err)
	}

	resp := &CreateOrderResponse{
		ID:            order.ID.Hex(),
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
	}

	if method != models.MethodCOD {
		resp.PaymentDeadline = order.PaymentDeadline
		qrPayload, _ := json.Marshal(map[string]interface{}{
			"orderId": order.ID.Hex(),
			"amount":  order.Total,
			"upiId":   s.upiID,
		})
		resp.QRData = string(qrPayload)
	}

	s.publishEvent(order.ID.Hex(), "order", string(order.Status))
	return resp, nil
}

// ConfirmPayment is idempotent: confirming an already-Confirmed order is a
// no-op success. The deadline check takes precedence over the confirmed
// flag, so a late confirmation attempt expires the order instead.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID, userID string, confirmed bool) (*PaymentOutcome, *apperrors.Error) {
	order, appErr := s.findOwnedOrder(ctx, orderID, userID)
	if appErr != nil {
		return nil, appErr
	}

	if order.Status == models.OrderConfirmed {
		return &PaymentOutcome{Status: "success", Message: "Payment already confirmed"}, nil
	}

	if order.DeadlinePassed(time.Now()) {
		order.Status = models.OrderExpired
		if err := s.orderRepo.Save(ctx, order); err != nil {
			return nil, apperrors.Internal("Failed to update order", err)
		}
		s.publishEvent(order.ID.Hex(), "order", string(order.Status))
		return &PaymentOutcome{Status: "expired", Message: "Payment deadline exceeded"}, nil
	}

	if confirmed {
		order.Status = models.OrderConfirmed
		order.PaymentConfirmed = true
		if err := s.orderRepo.Save(ctx, order); err != nil {
			return nil, apperrors.Internal("Failed to update order", err)
		}
		s.publishEvent(order.ID.Hex(), "order", string(order.Status))
		return &PaymentOutcome{Status: "success", Message: "Payment confirmed successfully"}, nil
	}

	order.Status = models.OrderCancelled
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, apperrors.Internal("Failed to update order", err)
	}
	s.publishEvent(order.ID.Hex(), "order", string(order.Status))
	return &PaymentOutcome{Status: "cancelled", Message: "Order cancelled"}, nil
}

// VerifyPaymentStatus reports the stored payment state. Cash orders always
// succeed; gateway orders are lazily expired past the deadline.
func (s *OrderService) VerifyPaymentStatus(ctx context.Context, orderID, userID string) (*PaymentOutcome, *apperrors.Error) {
	order, appErr := s.findOwnedOrder(ctx, orderID, userID)
	if appErr != nil {
		return nil, appErr
	}

	if order.PaymentMethod == models.MethodCOD {
		return &PaymentOutcome{Status: "success", Message: "COD order, no payment verification needed"}, nil
	}

	if order.Status == models.OrderConfirmed {
		return &PaymentOutcome{Status: "success", Message: "Payment already confirmed"}, nil
	}

	if order.DeadlinePassed(time.Now()) {
		order.Status = models.OrderExpired
		if err := s.orderRepo.Save(ctx, order); err != nil {
			return nil, apperrors.Internal("Failed to update order", err)
		}
		s.publishEvent(order.ID.Hex(), "order", string(order.Status))
		return &PaymentOutcome{Status: "expired", Message: "Payment deadline exceeded"}, nil
	}

	return &PaymentOutcome{Status: "pending", Message: "Payment not confirmed yet"}, nil
}

// CancelOrder marks the order Cancelled. Delivered and already-Cancelled
// orders cannot be cancelled. Refunds are an external collaborator's job.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID string) *apperrors.Error {
	order, appErr := s.findOwnedOrder(ctx, orderID, userID)
	if appErr != nil {
		return appErr
	}

	if order.Status == models.OrderDelivered || order.Status == models.OrderCancelled {
		return apperrors.InvalidState("Cannot cancel this order")
	}

	order.Status = models.OrderCancelled
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return apperrors.Internal("Failed to cancel order", err)
	}
	s.publishEvent(order.ID.Hex(), "order", string(order.Status))
	return nil
}

// HandlePaymentTimeout force-expires an unconfirmed payment: only valid
// while the order is Pending, unconfirmed, and a PENDING payment exists.
func (s *OrderService) HandlePaymentTimeout(ctx context.Context, orderID string) (*PaymentOutcome, *apperrors.Error) {
	orderOID, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, apperrors.Validation("Invalid order ID format")
	}

	order, err := s.orderRepo.FindByID(ctx, orderOID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NotFound("Order not found")
		}
		return nil, apperrors.Internal("Failed to load order", err)
	}

	if order.Status != models.OrderPending || order.PaymentConfirmed {
		return nil, apperrors.InvalidState("Order is not in a valid state for timeout handling")
	}

	payment, err := s.paymentRepo.FindPendingByOrderID(ctx, order.ID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NotFound("Pending payment not found for this order")
		}
		return nil, apperrors.Internal("Failed to load payment", err)
	}

	payment.Status = models.PaymentTimeout
	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, apperrors.Internal("Failed to update payment", err)
	}

	order.Status = models.OrderExpired
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, apperrors.Internal("Failed to update order", err)
	}

	s.publishEvent(order.ID.Hex(), "order", string(order.Status))
	return &PaymentOutcome{Status: "success", Message: "Payment timeout handled successfully"}, nil
}

// GetOrderHistory returns the caller's orders, newest first.
func (s *OrderService) GetOrderHistory(ctx context.Context, userID string) ([]models.Order, *apperrors.Error) {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperrors.Validation("Invalid user ID format")
	}
	orders, err := s.orderRepo.FindByUserID(ctx, userOID)
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch orders", err)
	}
	return orders, nil
}

// GetOrderByID retrieves a specific order owned by the caller.
func (s *OrderService) GetOrderByID(ctx context.Context, orderID, userID string) (*models.Order, *apperrors.Error) {
	return s.findOwnedOrder(ctx, orderID, userID)
}

// GetOrderStatus is the cheap polling read path.
func (s *OrderService) GetOrderStatus(ctx context.Context, orderID, userID string) (map[string]interface{}, *apperrors.Error) {
	order, appErr := s.findOwnedOrder(ctx, orderID, userID)
	if appErr != nil {
		return nil, appErr
	}
	return map[string]interface{}{
		"status":           order.Status,
		"paymentMethod":    order.PaymentMethod,
		"paymentConfirmed": order.PaymentConfirmed,
	}, nil
}

// findOwnedOrder loads an order scoped to the caller; absence and
// not-owned read identically as NotFound.
func (s *OrderService) findOwnedOrder(ctx context.Context, orderID, userID string) (*models.Order, *apperrors.Error) {
	orderOID, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, apperrors.Validation("Invalid order ID format")
	}
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperrors.Validation("Invalid user ID format")
	}

	order, err := s.orderRepo.FindByIDAndUserID(ctx, orderOID, userOID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NotFound("Order not found")
		}
		return nil, apperrors.Internal("Failed to load order", err)
	}
	return order, nil
}

// publishEvent emits a lifecycle event best-effort.
func (s *OrderService) publishEvent(orderID, entity, status string) {
	if s.producer == nil {
		return
	}
	evt := kafka.LifecycleEvent{
		OrderID:   orderID,
		Entity:    entity,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
	if err := s.producer.PublishLifecycleEvent(evt); err != nil {
		s.logger.Warn("lifecycle event publish failed",
			zap.String("order_id", orderID),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}
