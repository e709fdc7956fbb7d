package services

import (
	"context"

	"github.com/lingamvamshikrishnareddy/curry/gateway"
	"github.com/lingamvamshikrishnareddy/curry/kafka"
	"github.com/lingamvamshikrishnareddy/curry/models"
	"github.com/lingamvamshikrishnareddy/curry/notifier"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// --- Mock Repositories ---

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}
func (m *MockOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}
func (m *MockOrderRepository) FindByIDAndUserID(ctx context.Context, id, userID primitive.ObjectID) (*models.Order, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}
func (m *MockOrderRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}
func (m *MockOrderRepository) Save(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}
func (m *MockPaymentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}
func (m *MockPaymentRepository) FindPendingByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}
func (m *MockPaymentRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error) {
	args := m.Called(ctx, gatewayOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}
func (m *MockPaymentRepository) Save(ctx context.Context, payment *models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

type MockDeliveryRepository struct {
	mock.Mock
}

func (m *MockDeliveryRepository) Create(ctx context.Context, delivery *models.Delivery) error {
	args := m.Called(ctx, delivery)
	return args.Error(0)
}
func (m *MockDeliveryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Delivery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Delivery), args.Error(1)
}
func (m *MockDeliveryRepository) FindByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Delivery, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Delivery), args.Error(1)
}
func (m *MockDeliveryRepository) Save(ctx context.Context, delivery *models.Delivery) error {
	args := m.Called(ctx, delivery)
	return args.Error(0)
}
func (m *MockDeliveryRepository) FindNearby(ctx context.Context, lon, lat float64, maxDistanceMeters float64) ([]models.Delivery, error) {
	args := m.Called(ctx, lon, lat, maxDistanceMeters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Delivery), args.Error(1)
}
func (m *MockDeliveryRepository) IsDuplicate(err error) bool {
	args := m.Called(err)
	return args.Bool(0)
}

// --- Mock Collaborators ---

type MockStatusCache struct {
	mock.Mock
}

func (m *MockStatusCache) Get(ctx context.Context, orderID string, dest interface{}) (bool, error) {
	args := m.Called(ctx, orderID, dest)
	return args.Bool(0), args.Error(1)
}
func (m *MockStatusCache) Set(ctx context.Context, orderID string, value interface{}) error {
	args := m.Called(ctx, orderID, value)
	return args.Error(0)
}
func (m *MockStatusCache) Invalidate(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) BroadcastDeliveryUpdate(ctx context.Context, delivery *models.Delivery) {
	m.Called(ctx, delivery)
}
func (m *MockBroadcaster) EmitDeliveryUpdate(orderID string, update interface{}) {
	m.Called(orderID, update)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID string, event notifier.Event) {
	m.Called(ctx, userID, event)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(ctx context.Context, amountPaise int64, receipt string) (*gateway.GatewayOrder, error) {
	args := m.Called(ctx, amountPaise, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.GatewayOrder), args.Error(1)
}
func (m *MockGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	args := m.Called(gatewayOrderID, gatewayPaymentID, signature)
	return args.Bool(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) PublishLifecycleEvent(evt kafka.LifecycleEvent) error {
	args := m.Called(evt)
	return args.Error(0)
}
func (m *MockProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

// notFoundErr mirrors the driver's sentinel for absent documents.
var notFoundErr = mongo.ErrNoDocuments
