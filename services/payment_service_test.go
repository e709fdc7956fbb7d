package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/lingamvamshikrishnareddy/curry/gateway"
	"github.com/lingamvamshikrishnareddy/curry/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type paymentFixture struct {
	paymentRepo *MockPaymentRepository
	orderRepo   *MockOrderRepository
	gw          *MockGateway
	notify      *MockNotifier
	svc         *PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		paymentRepo: new(MockPaymentRepository),
		orderRepo:   new(MockOrderRepository),
		gw:          new(MockGateway),
		notify:      new(MockNotifier),
	}
	f.svc = NewPaymentService(f.paymentRepo, f.orderRepo, f.gw, nil, f.notify, zap.NewNop())
	return f
}

func TestInitiatePayment(t *testing.T) {
	orderOID := primitive.NewObjectID()
	userOID := primitive.NewObjectID()

	t.Run("Success - creates a remote intent and records it", func(t *testing.T) {
		f := newPaymentFixture()

		order := &models.Order{ID: orderOID, User: userOID, Total: 499.50, Status: models.OrderPending, PaymentMethod: models.MethodRazorpay}
		f.orderRepo.On("FindByID", mock.Anything, orderOID).Return(order, nil).Once()
		f.paymentRepo.On("FindPendingByOrderID", mock.Anything, orderOID).Return(nil, notFoundErr).Once()
		f.gw.On("CreateOrder", mock.Anything, int64(49950), orderOID.Hex()).
			Return(&gateway.GatewayOrder{ID: "order_rzp123", Amount: 49950, Currency: "INR"}, nil).Once()
		f.paymentRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Payment) bool {
			return p.RazorpayOrderID == "order_rzp123" && p.Status == models.PaymentPending && p.OrderID == orderOID
		})).Return(nil).Once()

		resp, appErr := f.svc.InitiatePayment(context.Background(), orderOID.Hex(), "razorpay")

		assert.Nil(t, appErr)
		assert.Equal(t, "order_rzp123", resp.RazorpayOrderID)
		assert.Equal(t, int64(49950), resp.Amount)
		assert.Equal(t, "INR", resp.Currency)
		f.gw.AssertExpectations(t)
		f.paymentRepo.AssertExpectations(t)
	})

	t.Run("Success - in-flight intent is reused, no second gateway call", func(t *testing.T) {
		f := newPaymentFixture()

		order := &models.Order{ID: orderOID, User: userOID, Total: 250, Status: models.OrderPending, PaymentMethod: models.MethodRazorpay}
		existing := &models.Payment{ID: primitive.NewObjectID(), OrderID: orderOID, RazorpayOrderID: "order_live1", Status: models.PaymentPending}
		f.orderRepo.On("FindByID", mock.Anything, orderOID).Return(order, nil).Once()
		f.paymentRepo.On("FindPendingByOrderID", mock.Anything, orderOID).Return(existing, nil).Once()

		resp, appErr := f.svc.InitiatePayment(context.Background(), orderOID.Hex(), "RAZORPAY")

		assert.Nil(t, appErr)
		assert.Equal(t, "order_live1", resp.RazorpayOrderID)
		f.gw.AssertNotCalled(t, "CreateOrder")
		f.paymentRepo.AssertNotCalled(t, "Create")
	})

	t.Run("Failure - already paid order rejected", func(t *testing.T) {
		f := newPaymentFixture()

		order := &models.Order{ID: orderOID, User: userOID, Total: 250, Status: models.OrderConfirmed, PaymentConfirmed: true}
		f.orderRepo.On("FindByID", mock.Anything, orderOID).Return(order, nil).Once()

		_, appErr := f.svc.InitiatePayment(context.Background(), orderOID.Hex(), "RAZORPAY")

		assert.NotNil(t, appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
		f.gw.AssertNotCalled(t, "CreateOrder")
	})

	t.Run("Failure - unsupported method rejected", func(t *testing.T) {
		f := newPaymentFixture()

		order := &models.Order{ID: orderOID, User: userOID, Total: 250, Status: models.OrderPending}
		f.orderRepo.On("FindByID", mock.Anything, orderOID).Return(order, nil).Once()

		_, appErr := f.svc.InitiatePayment(context.Background(), orderOID.Hex(), "COD")

		assert.NotNil(t, appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
	})
}

func TestVerifyCallback(t *testing.T) {
	orderOID := primitive.NewObjectID()
	userOID := primitive.NewObjectID()

	callback := &VerifyPaymentRequest{
		RazorpayOrderID:   "order_rzp123",
		RazorpayPaymentID: "pay_456",
		RazorpaySignature: "sig",
	}

	t.Run("Success - completes the payment and confirms the order", func(t *testing.T) {
		f := newPaymentFixture()

		payment := &models.Payment{ID: primitive.NewObjectID(), OrderID: orderOID, RazorpayOrderID: "order_rzp123", Status: models.PaymentPending}
		order := &models.Order{ID: orderOID, User: userOID, Status: models.OrderPending}

		f.gw.On("VerifySignature", "order_rzp123", "pay_456", "sig").Return(true).Once()
		f.paymentRepo.On("FindByGatewayOrderID", mock.Anything, "order_rzp123").Return(payment, nil).Once()
		f.paymentRepo.On("Save", mock.Anything, mock.MatchedBy(func(p *models.Payment) bool {
			return p.Status == models.PaymentCompleted && p.RazorpayPaymentID == "pay_456"
		})).Return(nil).Once()
		f.orderRepo.On("FindByID", mock.Anything, orderOID).Return(order, nil).Once()
		f.orderRepo.On("Save", mock.Anything, mock.MatchedBy(func(o *models.Order) bool {
			return o.Status == models.OrderConfirmed && o.PaymentConfirmed
		})).Return(nil).Once()
		f.notify.On("Notify", mock.Anything, userOID.Hex(), mock.Anything).Once()

		appErr := f.svc.VerifyCallback(context.Background(), callback)

		assert.Nil(t, appErr)
		f.paymentRepo.AssertExpectations(t)
		f.orderRepo.AssertExpectations(t)
		f.notify.AssertExpectations(t)
	})

	t.Run("Success - redelivered callback for a completed payment is a no-op", func(t *testing.T) {
		f := newPaymentFixture()

		payment := &models.Payment{ID: primitive.NewObjectID(), OrderID: orderOID, RazorpayOrderID: "order_rzp123", Status: models.PaymentCompleted}

		f.gw.On("VerifySignature", "order_rzp123", "pay_456", "sig").Return(true).Once()
		f.paymentRepo.On("FindByGatewayOrderID", mock.Anything, "order_rzp123").Return(payment, nil).Once()

		appErr := f.svc.VerifyCallback(context.Background(), callback)

		assert.Nil(t, appErr)
		f.paymentRepo.AssertNotCalled(t, "Save")
		f.orderRepo.AssertNotCalled(t, "Save")
	})

	t.Run("Failure - bad signature rejected before any load", func(t *testing.T) {
		f := newPaymentFixture()

		f.gw.On("VerifySignature", "order_rzp123", "pay_456", "sig").Return(false).Once()

		appErr := f.svc.VerifyCallback(context.Background(), callback)

		assert.NotNil(t, appErr)
		assert.Equal(t, http.StatusUnauthorized, appErr.Code)
		f.paymentRepo.AssertNotCalled(t, "FindByGatewayOrderID")
	})

	t.Run("Failure - unknown gateway order is 404", func(t *testing.T) {
		f := newPaymentFixture()

		f.gw.On("VerifySignature", "order_rzp123", "pay_456", "sig").Return(true).Once()
		f.paymentRepo.On("FindByGatewayOrderID", mock.Anything, "order_rzp123").Return(nil, notFoundErr).Once()

		appErr := f.svc.VerifyCallback(context.Background(), callback)

		assert.NotNil(t, appErr)
		assert.Equal(t, http.StatusNotFound, appErr.Code)
	})
}

func TestGetPaymentStatus(t *testing.T) {
	paymentOID := primitive.NewObjectID()

	t.Run("Success - reports the stored status", func(t *testing.T) {
		f := newPaymentFixture()

		payment := &models.Payment{ID: paymentOID, Status: models.PaymentCompleted}
		f.paymentRepo.On("FindByID", mock.Anything, paymentOID).Return(payment, nil).Once()

		status, appErr := f.svc.GetPaymentStatus(context.Background(), paymentOID.Hex())

		assert.Nil(t, appErr)
		assert.Equal(t, models.PaymentCompleted, status)
	})

	t.Run("Failure - malformed id rejected", func(t *testing.T) {
		f := newPaymentFixture()

		_, appErr := f.svc.GetPaymentStatus(context.Background(), "not-an-id")

		assert.NotNil(t, appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
		f.paymentRepo.AssertNotCalled(t, "FindByID")
	})
}
