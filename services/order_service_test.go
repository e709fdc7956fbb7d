package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/lingamvamshikrishnareddy/curry/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newOrderService(orderRepo *MockOrderRepository, paymentRepo *MockPaymentRepository) *OrderService {
	return NewOrderService(orderRepo, paymentRepo, nil, "curry@upi", zap.NewNop())
}

func validCreateRequest(method string) *CreateOrderRequest {
	return &CreateOrderRequest{
		Items:         []OrderItemRequest{{MenuItem: primitive.NewObjectID().Hex(), Quantity: 2}},
		Total:         499.50,
		PaymentMethod: method,
		Name:          "Asha",
		Phone:         "9876543210",
		Address:       "12 MG Road",
	}
}

func TestCreateOrder(t *testing.T) {
	userID := primitive.NewObjectID().Hex()

	t.Run("Success - COD order has no payment deadline", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		orderRepo.On("Create", mock.Anything, mock.MatchedBy(func(o *models.Order) bool {
			return o.Status == models.OrderPending && o.PaymentDeadline == nil
		})).Return(nil).Once()

		resp, appErr := svc.CreateOrder(context.Background(), userID, validCreateRequest("cod"))

		assert.Nil(t, appErr)
		assert.Equal(t, string(models.OrderPending), resp.Status)
		assert.Nil(t, resp.PaymentDeadline)
		assert.Empty(t, resp.QRData)
		orderRepo.AssertExpectations(t)
	})

	t.Run("Success - gateway order gets a 30 minute deadline and QR payload", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		before := time.Now()
		orderRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		resp, appErr := svc.CreateOrder(context.Background(), userID, validCreateRequest("RAZORPAY"))

		assert.Nil(t, appErr)
		assert.NotNil(t, resp.PaymentDeadline)
		window := resp.PaymentDeadline.Sub(before)
		assert.InDelta(t, 30*time.Minute, window, float64(time.Minute))
		assert.Contains(t, resp.QRData, "curry@upi")
		orderRepo.AssertExpectations(t)
	})

	t.Run("Failure - empty items rejected", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		req := validCreateRequest("COD")
		req.Items = nil

		_, appErr := svc.CreateOrder(context.Background(), userID, req)

		assert.NotNil(t, appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
		orderRepo.AssertNotCalled(t, "Create")
	})

	t.Run("Failure - unsupported payment method rejected", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		_, appErr := svc.CreateOrder(context.Background(), userID, validCreateRequest("BITCOIN"))

		assert.NotNil(t, appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
	})

	t.Run("Failure - non-positive total rejected", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		req := validCreateRequest("COD")
		req.Total = 0

		_, appErr := svc.CreateOrder(context.Background(), userID, req)

		assert.NotNil(t, appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
	})
}

func TestConfirmPayment(t *testing.T) {
	orderOID := primitive.NewObjectID()
	userOID := primitive.NewObjectID()

	t.Run("Success - confirming an already confirmed order is a no-op", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		order := &models.Order{ID: orderOID, User: userOID, Status: models.OrderConfirmed}
		orderRepo.On("FindByIDAndUserID", mock.Anything, orderOID, userOID).Return(order, nil).Once()

		outcome, appErr := svc.ConfirmPayment(context.Background(), orderOID.Hex(), userOID.Hex(), true)

		assert.Nil(t, appErr)
		assert.Equal(t, "success", outcome.Status)
		orderRepo.AssertNotCalled(t, "Save")
	})

	t.Run("Success - late confirmation expires the order instead", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		deadline := time.Now().Add(-time.Minute)
		order := &models.Order{ID: orderOID, User: userOID, Status: models.OrderPending, PaymentDeadline: &deadline}
		orderRepo.On("FindByIDAndUserID", mock.Anything, orderOID, userOID).Return(order, nil).Once()
		orderRepo.On("Save", mock.Anything, mock.MatchedBy(func(o *models.Order) bool {
			return o.Status == models.OrderExpired
		})).Return(nil).Once()

		outcome, appErr := svc.ConfirmPayment(context.Background(), orderOID.Hex(), userOID.Hex(), true)

		assert.Nil(t, appErr)
		assert.Equal(t, "expired", outcome.Status)
		orderRepo.AssertExpectations(t)
	})

	t.Run("Success - confirmation inside the window confirms", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		deadline := time.Now().Add(10 * time.Minute)
		order := &models.Order{ID: orderOID, User: userOID, Status: models.OrderPending, PaymentDeadline: &deadline}
		orderRepo.On("FindByIDAndUserID", mock.Anything, orderOID, userOID).Return(order, nil).Once()
		orderRepo.On("Save", mock.Anything, mock.MatchedBy(func(o *models.Order) bool {
			return o.Status == models.OrderConfirmed && o.PaymentConfirmed
		})).Return(nil).Once()

		outcome, appErr := svc.ConfirmPayment(context.Background(), orderOID.Hex(), userOID.Hex(), true)

		assert.Nil(t, appErr)
		assert.Equal(t, "success", outcome.Status)
		orderRepo.AssertExpectations(t)
	})

	t.Run("Success - declining cancels the order", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		deadline := time.Now().Add(10 * time.Minute)
		order := &models.Order{ID: orderOID, User: userOID, Status: models.OrderPending, PaymentDeadline: &deadline}
		orderRepo.On("FindByIDAndUserID", mock.Anything, orderOID, userOID).Return(order, nil).Once()
		orderRepo.On("Save", mock.Anything, mock.MatchedBy(func(o *models.Order) bool {
			return o.Status == models.OrderCancelled
		})).Return(nil).Once()

		outcome, appErr := svc.ConfirmPayment(context.Background(), orderOID.Hex(), userOID.Hex(), false)

		assert.Nil(t, appErr)
		assert.Equal(t, "cancelled", outcome.Status)
		orderRepo.AssertExpectations(t)
	})

	t.Run("Failure - unknown order is 404", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		orderRepo.On("FindByIDAndUserID", mock.Anything, orderOID, userOID).Return(nil, notFoundErr).Once()

		_, appErr := svc.ConfirmPayment(context.Background(), orderOID.Hex(), userOID.Hex(), true)

		assert.NotNil(t, appErr)
		assert.Equal(t, http.StatusNotFound, appErr.Code)
	})
}

func TestVerifyPaymentStatus(t *testing.T) {
	orderOID := primitive.NewObjectID()
	userOID := primitive.NewObjectID()

	t.Run("Success - COD orders always verify", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		order := &models.Order{ID: orderOID, User: userOID, Status: models.OrderPending, PaymentMethod: models.MethodCOD}
		orderRepo.On("FindByIDAndUserID", mock.Anything, orderOID, userOID).Return(order, nil).Once()

		outcome, appErr := svc.VerifyPaymentStatus(context.Background(), orderOID.Hex(), userOID.Hex())

		assert.Nil(t, appErr)
		assert.Equal(t, "success", outcome.Status)
	})

	t.Run("Success - overdue gateway order is lazily expired", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		deadline := time.Now().Add(-time.Hour)
		order := &models.Order{ID: orderOID, User: userOID, Status: models.OrderPending, PaymentMethod: models.MethodRazorpay, PaymentDeadline: &deadline}
		orderRepo.On("FindByIDAndUserID", mock.Anything, orderOID, userOID).Return(order, nil).Once()
		orderRepo.On("Save", mock.Anything, mock.MatchedBy(func(o *models.Order) bool {
			return o.Status == models.OrderExpired
		})).Return(nil).Once()

		outcome, appErr := svc.VerifyPaymentStatus(context.Background(), orderOID.Hex(), userOID.Hex())

		assert.Nil(t, appErr)
		assert.Equal(t, "expired", outcome.Status)
		orderRepo.AssertExpectations(t)
	})

	t.Run("Success - unconfirmed inside the window reads pending", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		deadline := time.Now().Add(10 * time.Minute)
		order := &models.Order{ID: orderOID, User: userOID, Status: models.OrderPending, PaymentMethod: models.MethodRazorpay, PaymentDeadline: &deadline}
		orderRepo.On("FindByIDAndUserID", mock.Anything, orderOID, userOID).Return(order, nil).Once()

		outcome, appErr := svc.VerifyPaymentStatus(context.Background(), orderOID.Hex(), userOID.Hex())

		assert.Nil(t, appErr)
		assert.Equal(t, "pending", outcome.Status)
		orderRepo.AssertNotCalled(t, "Save")
	})
}

func TestCancelOrder(t *testing.T) {
	orderOID := primitive.NewObjectID()
	userOID := primitive.NewObjectID()

	t.Run("Success - pending order cancels", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		order := &models.Order{ID: orderOID, User: userOID, Status: models.OrderPending}
		orderRepo.On("FindByIDAndUserID", mock.Anything, orderOID, userOID).Return(order, nil).Once()
		orderRepo.On("Save", mock.Anything, mock.MatchedBy(func(o *models.Order) bool {
			return o.Status == models.OrderCancelled
		})).Return(nil).Once()

		appErr := svc.CancelOrder(context.Background(), orderOID.Hex(), userOID.Hex())

		assert.Nil(t, appErr)
		orderRepo.AssertExpectations(t)
	})

	t.Run("Failure - delivered order cannot cancel", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		order := &models.Order{ID: orderOID, User: userOID, Status: models.OrderDelivered}
		orderRepo.On("FindByIDAndUserID", mock.Anything, orderOID, userOID).Return(order, nil).Once()

		appErr := svc.CancelOrder(context.Background(), orderOID.Hex(), userOID.Hex())

		assert.NotNil(t, appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
		orderRepo.AssertNotCalled(t, "Save")
	})

	t.Run("Failure - already cancelled order cannot cancel again", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		order := &models.Order{ID: orderOID, User: userOID, Status: models.OrderCancelled}
		orderRepo.On("FindByIDAndUserID", mock.Anything, orderOID, userOID).Return(order, nil).Once()

		appErr := svc.CancelOrder(context.Background(), orderOID.Hex(), userOID.Hex())

		assert.NotNil(t, appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
	})
}

func TestHandlePaymentTimeout(t *testing.T) {
	orderOID := primitive.NewObjectID()

	t.Run("Success - pending order with pending payment expires", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		order := &models.Order{ID: orderOID, Status: models.OrderPending}
		payment := &models.Payment{ID: primitive.NewObjectID(), OrderID: orderOID, Status: models.PaymentPending}

		orderRepo.On("FindByID", mock.Anything, orderOID).Return(order, nil).Once()
		paymentRepo.On("FindPendingByOrderID", mock.Anything, orderOID).Return(payment, nil).Once()
		paymentRepo.On("Save", mock.Anything, mock.MatchedBy(func(p *models.Payment) bool {
			return p.Status == models.PaymentTimeout
		})).Return(nil).Once()
		orderRepo.On("Save", mock.Anything, mock.MatchedBy(func(o *models.Order) bool {
			return o.Status == models.OrderExpired
		})).Return(nil).Once()

		outcome, appErr := svc.HandlePaymentTimeout(context.Background(), orderOID.Hex())

		assert.Nil(t, appErr)
		assert.Equal(t, "success", outcome.Status)
		orderRepo.AssertExpectations(t)
		paymentRepo.AssertExpectations(t)
	})

	t.Run("Failure - confirmed order is not eligible", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		order := &models.Order{ID: orderOID, Status: models.OrderConfirmed, PaymentConfirmed: true}
		orderRepo.On("FindByID", mock.Anything, orderOID).Return(order, nil).Once()

		_, appErr := svc.HandlePaymentTimeout(context.Background(), orderOID.Hex())

		assert.NotNil(t, appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
		paymentRepo.AssertNotCalled(t, "FindPendingByOrderID")
	})

	t.Run("Failure - missing pending payment is 404", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := newOrderService(orderRepo, paymentRepo)

		order := &models.Order{ID: orderOID, Status: models.OrderPending}
		orderRepo.On("FindByID", mock.Anything, orderOID).Return(order, nil).Once()
		paymentRepo.On("FindPendingByOrderID", mock.Anything, orderOID).Return(nil, notFoundErr).Once()

		_, appErr := svc.HandlePaymentTimeout(context.Background(), orderOID.Hex())

		assert.NotNil(t, appErr)
		assert.Equal(t, http.StatusNotFound, appErr.Code)
		orderRepo.AssertNotCalled(t, "Save")
	})
}
