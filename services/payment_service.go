package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/lingamvamshikrishnareddy/curry/apperrors"
	"github.com/lingamvamshikrishnareddy/curry/gateway"
	"github.com/lingamvamshikrishnareddy/curry/kafka"
	"github.com/lingamvamshikrishnareddy/curry/models"
	"github.com/lingamvamshikrishnareddy/curry/notifier"
	"github.com/lingamvamshikrishnareddy/curry/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// InitiatePaymentResponse is returned to the client so it can open the
// gateway checkout.
type InitiatePaymentResponse struct {
	RazorpayOrderID string `json:"razorpayOrderId"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// VerifyPaymentRequest is the signed gateway callback body.
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

// PaymentService drives the gateway leg of the order lifecycle: remote
// intent creation and signed-callback verification.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	orderRepo   repository.OrderRepository
	gw          gateway.Gateway
	producer    kafka.ProducerAPI
	notify      notifier.Notifier
	logger      *zap.Logger
}

func NewPaymentService(paymentRepo repository.PaymentRepository, orderRepo repository.OrderRepository, gw gateway.Gateway, producer kafka.ProducerAPI, notify notifier.Notifier, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		gw:          gw,
		producer:    producer,
		notify:      notify,
		logger:      logger,
	}
}

// InitiatePayment creates a remote payment intent for the order. At most
// one PENDING payment exists per order: a repeated call returns the intent
// already in flight instead of creating another.
func (s *PaymentService) InitiatePayment(ctx context.Context, orderID, method string) (*InitiatePaymentResponse, *apperrors.Error) {
	if s.gw == nil {
		return nil, apperrors.Internal("Payment service is not available", nil)
	}

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

	if order.PaymentConfirmed {
		return nil, apperrors.InvalidState("Order has already been paid")
	}

	if strings.ToUpper(method) != string(models.MethodRazorpay) {
		return nil, apperrors.Validation("Unsupported payment method")
	}

	amountPaise := int64(math.Round(order.Total * 100))

	// Reuse an in-flight intent rather than opening a second one.
	if existing, err := s.paymentRepo.FindPendingByOrderID(ctx, order.ID); err == nil {
		return &InitiatePaymentResponse{
			RazorpayOrderID: existing.RazorpayOrderID,
			Amount:          amountPaise,
			Currency:        "INR",
		}, nil
	} else if err != mongo.ErrNoDocuments {
		return nil, apperrors.Internal("Failed to load payment", err)
	}

	gwOrder, err := s.gw.CreateOrder(ctx, amountPaise, orderID)
	if err != nil {
		s.logger.Error("gateway order creation failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, apperrors.Internal("Error initiating payment", err)
	}

	payment := &models.Payment{
		OrderID:         order.ID,
		Amount:          order.Total,
		Method:          models.MethodRazorpay,
		RazorpayOrderID: gwOrder.ID,
		Status:          models.PaymentPending,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, apperrors.Internal("Failed to record payment", err)
	}

	return &InitiatePaymentResponse{
		RazorpayOrderID: gwOrder.ID,
		Amount:          amountPaise,
		Currency:        "INR",
	}, nil
}

// VerifyCallback checks the gateway signature and, on a match, completes
// the payment and confirms the order. A mismatched signature is rejected
// outright. Re-delivery of a callback for an already-completed payment is
// a no-op success: COMPLETED payments are immutable.
func (s *PaymentService) VerifyCallback(ctx context.Context, req *VerifyPaymentRequest) *apperrors.Error {
	if s.gw == nil {
		return apperrors.Internal("Payment service is not available", nil)
	}

	if !s.gw.VerifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		return apperrors.Unauthorized("Payment verification failed")
	}

	payment, err := s.paymentRepo.FindByGatewayOrderID(ctx, req.RazorpayOrderID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return apperrors.NotFound("Payment not found")
		}
		return apperrors.Internal("Failed to load payment", err)
	}

	if payment.Status == models.PaymentCompleted {
		return nil
	}

	payment.Status = models.PaymentCompleted
	payment.RazorpayPaymentID = req.RazorpayPaymentID
	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return apperrors.Internal("Failed to update payment", err)
	}

	order, err := s.orderRepo.FindByID(ctx, payment.OrderID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return apperrors.NotFound("Order not found")
		}
		return apperrors.Internal("Failed to load order", err)
	}

	order.Status = models.OrderConfirmed
	order.PaymentConfirmed = true
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return apperrors.Internal("Failed to update order", err)
	}

	if s.producer != nil {
		evt := kafka.LifecycleEvent{
			OrderID:   order.ID.Hex(),
			Entity:    "order",
			Status:    string(order.Status),
			Timestamp: time.Now().UTC(),
		}
		if err := s.producer.PublishLifecycleEvent(evt); err != nil {
			s.logger.Warn("lifecycle event publish failed", zap.String("order_id", order.ID.Hex()), zap.Error(err))
		}
	}
	if s.notify != nil {
		s.notify.Notify(ctx, order.User.Hex(), notifier.Event{
			Type:    "payment_confirmed",
			Message: "Your payment was received and your order is confirmed.",
			OrderID: order.ID.Hex(),
		})
	}

	return nil
}

// GetPaymentStatus reports a payment's stored status.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, paymentID string) (models.PaymentStatus, *apperrors.Error) {
	paymentOID, err := primitive.ObjectIDFromHex(paymentID)
	if err != nil {
		return "", apperrors.Validation("Invalid payment ID format")
	}
	payment, err := s.paymentRepo.FindByID(ctx, paymentOID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", apperrors.NotFound("Payment not found")
		}
		return "", apperrors.Internal("Failed to load payment", err)
	}
	return payment.Status, nil
}
