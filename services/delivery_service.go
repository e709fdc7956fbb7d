package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/lingamvamshikrishnareddy/curry/apperrors"
	"github.com/lingamvamshikrishnareddy/curry/cache"
	"github.com/lingamvamshikrishnareddy/curry/kafka"
	"github.com/lingamvamshikrishnareddy/curry/models"
	"github.com/lingamvamshikrishnareddy/curry/notifier"
	"github.com/lingamvamshikrishnareddy/curry/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	defaultETAWindow = 45 * time.Minute
	otpWindow        = 5 * time.Minute
)

// errDeliveryImmutable aborts a transaction that would mutate a delivery
// already in a terminal state.
var errDeliveryImmutable = errors.New("delivery is already finalized")

// errOrderFinalized aborts a transaction whose Delivered mirror would move
// an order out of a terminal state (e.g. one the user already cancelled).
var errOrderFinalized = errors.New("order is already finalized")

// DeliveryStatusView is the combined, cacheable delivery+order read model.
// The confirmation code is deliberately absent.
type DeliveryStatusView struct {
	OrderID               string                `json:"orderId"`
	OrderStatus           models.OrderStatus    `json:"orderStatus"`
	DeliveryID            string                `json:"deliveryId,omitempty"`
	Status                models.DeliveryStatus `json:"status"`
	DeliveryAgent         *models.DeliveryAgent `json:"deliveryAgent,omitempty"`
	Location              *models.GeoPoint      `json:"location,omitempty"`
	EstimatedDeliveryTime *time.Time            `json:"estimatedDeliveryTime,omitempty"`
	ActualDeliveryTime    *time.Time            `json:"actualDeliveryTime,omitempty"`
	Feedback              *models.Feedback      `json:"feedback,omitempty"`
}

// UpdateDeliveryStatusRequest carries an agent/ops status or location update.
type UpdateDeliveryStatusRequest struct {
	OrderID  string                 `json:"orderId" binding:"required"`
	Status   *models.DeliveryStatus `json:"status,omitempty"`
	Location *models.GeoPoint       `json:"location,omitempty"`
}

// AgentAssignment is the metadata recorded when an agent takes a delivery.
type AgentAssignment struct {
	AgentID       string `json:"agentId" binding:"required"`
	Name          string `json:"name"`
	Contact       string `json:"contact"`
	VehicleNumber string `json:"vehicleNumber"`
}

// DeliveryService owns the Delivery state machine: assignment, route
// tracking, OTP confirmation and feedback. The delivery status view is the
// only cached read path; every mutation invalidates it.
type DeliveryService struct {
	deliveryRepo repository.DeliveryRepository
	orderRepo    repository.OrderRepository
	tx           repository.TxRunner
	statusCache  cache.StatusCache
	broadcaster  Broadcaster
	notify       notifier.Notifier
	producer     kafka.ProducerAPI
	logger       *zap.Logger
}

func NewDeliveryService(
	deliveryRepo repository.DeliveryRepository,
	orderRepo repository.OrderRepository,
	tx repository.TxRunner,
	statusCache cache.StatusCache,
	broadcaster Broadcaster,
	notify notifier.Notifier,
	producer kafka.ProducerAPI,
	logger *zap.Logger,
) *DeliveryService {
	return &DeliveryService{
		deliveryRepo: deliveryRepo,
		orderRepo:    orderRepo,
		tx:           tx,
		statusCache:  statusCache,
		broadcaster:  broadcaster,
		notify:       notify,
		producer:     producer,
		logger:       logger,
	}
}

// GetDeliveryStatus serves the cached delivery+order view. On a miss the
// view is rebuilt from the store and written back with a 5 minute TTL. If
// no delivery record exists yet, an ephemeral Pending projection with the
// default 45 minute ETA is returned without persisting anything.
func (s *DeliveryService) GetDeliveryStatus(ctx context.Context, orderID string) (*DeliveryStatusView, *apperrors.Error) {
	orderOID, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, apperrors.Validation("Invalid order ID format")
	}

	var view DeliveryStatusView
	if hit, err := s.statusCache.Get(ctx, orderID, &view); err != nil {
		s.logger.Warn("status cache read failed", zap.String("order_id", orderID), zap.Error(err))
	} else if hit {
		return &view, nil
	}

	order, err := s.orderRepo.FindByID(ctx, orderOID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NotFound("Order not found")
		}
		return nil, apperrors.Internal("Failed to load order", err)
	}

	delivery, err := s.deliveryRepo.FindByOrderID(ctx, orderOID)
	if err != nil && err != mongo.ErrNoDocuments {
		return nil, apperrors.Internal("Failed to load delivery", err)
	}

	if delivery == nil || err == mongo.ErrNoDocuments {
		eta := time.Now().Add(defaultETAWindow)
		view = DeliveryStatusView{
			OrderID:               orderID,
			OrderStatus:           order.Status,
			Status:                models.DeliveryPending,
			EstimatedDeliveryTime: &eta,
		}
	} else {
		view = buildStatusView(order, delivery)
	}

	if err := s.statusCache.Set(ctx, orderID, &view); err != nil {
		s.logger.Warn("status cache write failed", zap.String("order_id", orderID), zap.Error(err))
	}
	return &view, nil
}

// UpdateDeliveryStatus applies an agent/ops status or location update. A
// transition to Delivered mirrors onto the order within the same
// transaction: both writes commit or both roll back.
func (s *DeliveryService) UpdateDeliveryStatus(ctx context.Context, req *UpdateDeliveryStatusRequest) (*models.Delivery, *apperrors.Error) {
	orderOID, err := primitive.ObjectIDFromHex(req.OrderID)
	if err != nil {
		return nil, apperrors.Validation("Invalid order ID format")
	}
	if req.Status != nil && !models.ValidDeliveryStatus(*req.Status) {
		return nil, apperrors.Validation("Invalid delivery status")
	}
	if req.Location != nil && !req.Location.Valid() {
		return nil, apperrors.Validation("Invalid location")
	}

	order, err := s.orderRepo.FindByID(ctx, orderOID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NotFound("Order not found")
		}
		return nil, apperrors.Internal("Failed to load order", err)
	}

	var delivery *models.Delivery
	txErr := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		delivery, err = s.ensureDelivery(txCtx, order)
		if err != nil {
			return err
		}

		if delivery.Status.IsTerminal() {
			return errDeliveryImmutable
		}

		now := time.Now().UTC()

		if req.Location != nil {
			delivery.Location = req.Location
			delivery.Route = append(delivery.Route, models.RoutePoint{
				Location:  *req.Location,
				Timestamp: now,
			})
		}

		if req.Status != nil {
			delivery.Status = *req.Status

			switch *req.Status {
			case models.DeliveryOutForDelivery:
				eta := now.Add(defaultETAWindow)
				delivery.EstimatedDeliveryTime = &eta

			case models.DeliveryDelivered:
				if order.Status.IsTerminal() {
					return errOrderFinalized
				}
				delivery.ActualDeliveryTime = &now
				order.Status = models.OrderDelivered
				if err := s.orderRepo.Save(txCtx, order); err != nil {
					return err
				}
			}
		}

		return s.deliveryRepo.Save(txCtx, delivery)
	})
	if txErr != nil {
		if errors.Is(txErr, errDeliveryImmutable) {
			return nil, apperrors.InvalidState("Delivery is already finalized")
		}
		if errors.Is(txErr, errOrderFinalized) {
			return nil, apperrors.InvalidState("Order is already finalized")
		}
		s.logger.Error("delivery status transaction failed", zap.String("order_id", req.OrderID), zap.Error(txErr))
		return nil, apperrors.Internal("Error updating delivery status", txErr)
	}

	s.afterMutation(ctx, order, delivery)

	if req.Status != nil && *req.Status == models.DeliveryOutForDelivery && s.notify != nil {
		s.notify.Notify(ctx, delivery.UserID.Hex(), notifier.Event{
			Type:    "out_for_delivery",
			Message: "Your order is out for delivery!",
			OrderID: req.OrderID,
		})
	}

	return delivery, nil
}

// AssignDeliveryAgent records agent metadata and moves the delivery to
// Assigned. The delivery must already exist.
func (s *DeliveryService) AssignDeliveryAgent(ctx context.Context, orderID string, assignment *AgentAssignment) (*models.Delivery, *apperrors.Error) {
	orderOID, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, apperrors.Validation("Invalid order ID format")
	}
	agentOID, err := primitive.ObjectIDFromHex(assignment.AgentID)
	if err != nil {
		return nil, apperrors.Validation("Invalid agent ID format")
	}

	delivery, err := s.deliveryRepo.FindByOrderID(ctx, orderOID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NotFound("Delivery not found")
		}
		return nil, apperrors.Internal("Failed to load delivery", err)
	}

	if delivery.Status.IsTerminal() {
		return nil, apperrors.InvalidState("Delivery is already finalized")
	}

	now := time.Now().UTC()
	delivery.DeliveryAgent = &models.DeliveryAgent{
		ID:            agentOID,
		Name:          assignment.Name,
		Contact:       assignment.Contact,
		VehicleNumber: assignment.VehicleNumber,
		AssignedAt:    &now,
	}
	delivery.Status = models.DeliveryAssigned

	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		return nil, apperrors.Internal("Failed to assign agent", err)
	}

	s.invalidateCache(ctx, orderID)
	s.broadcast(ctx, orderID, delivery)
	s.publishEvent(orderID, string(delivery.Status))

	if s.notify != nil {
		s.notify.Notify(ctx, assignment.AgentID, notifier.Event{
			Type:    "delivery_assigned",
			Message: "A new delivery has been assigned to you.",
			OrderID: orderID,
		})
	}

	return delivery, nil
}

// GenerateDeliveryOTP issues a fresh confirmation code, replacing any prior
// unverified one, and sends it to the order's user out-of-band. The code is
// single-use and expires 5 minutes after generation.
func (s *DeliveryService) GenerateDeliveryOTP(ctx context.Context, orderID string) (*time.Time, *apperrors.Error) {
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

	delivery, err := s.ensureDelivery(ctx, order)
	if err != nil {
		return nil, apperrors.Internal("Failed to load delivery", err)
	}

	if delivery.Status.IsTerminal() {
		return nil, apperrors.InvalidState("Delivery is already finalized")
	}

	code, err := generateOTP()
	if err != nil {
		return nil, apperrors.Internal("Failed to generate code", err)
	}

	now := time.Now().UTC()
	delivery.OTP = code
	delivery.OTPGeneratedAt = &now
	delivery.OTPVerified = false

	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		return nil, apperrors.Internal("Failed to store code", err)
	}

	s.invalidateCache(ctx, orderID)

	if s.notify != nil {
		s.notify.Notify(ctx, delivery.UserID.Hex(), notifier.Event{
			Type:    "delivery_otp",
			Message: fmt.Sprintf("Your delivery confirmation code is %s. It expires in 5 minutes.", code),
			OrderID: orderID,
		})
	}

	expiresAt := now.Add(otpWindow)
	return &expiresAt, nil
}

// VerifyDeliveryOTP redeems a confirmation code. A mismatched code fails
// without touching status; an aged code fails as expired (age measured from
// generation, not request drift). Success completes the delivery AND the
// order atomically, clears the code fields, and notifies the user.
func (s *DeliveryService) VerifyDeliveryOTP(ctx context.Context, orderID, submittedCode string) (*models.Delivery, *apperrors.Error) {
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

	delivery, err := s.deliveryRepo.FindByOrderID(ctx, orderOID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NotFound("Delivery not found")
		}
		return nil, apperrors.Internal("Failed to load delivery", err)
	}

	if delivery.OTP == "" || delivery.OTP != submittedCode {
		return nil, apperrors.Validation("Invalid confirmation code")
	}
	if delivery.OTPExpired(time.Now()) {
		return nil, apperrors.Expired("Confirmation code has expired")
	}

	txErr := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if order.Status.IsTerminal() {
			return errOrderFinalized
		}

		now := time.Now().UTC()
		delivery.Status = models.DeliveryDelivered
		delivery.ActualDeliveryTime = &now
		delivery.OTP = ""
		delivery.OTPGeneratedAt = nil
		delivery.OTPVerified = true

		if err := s.deliveryRepo.Save(txCtx, delivery); err != nil {
			return err
		}

		order.Status = models.OrderDelivered
		return s.orderRepo.Save(txCtx, order)
	})
	if txErr != nil {
		if errors.Is(txErr, errOrderFinalized) {
			return nil, apperrors.InvalidState("Order is already finalized")
		}
		s.logger.Error("otp verification transaction failed", zap.String("order_id", orderID), zap.Error(txErr))
		return nil, apperrors.Internal("Error completing delivery", txErr)
	}

	s.afterMutation(ctx, order, delivery)

	if s.notify != nil {
		s.notify.Notify(ctx, delivery.UserID.Hex(), notifier.Event{
			Type:    "order_delivered",
			Message: "Your order has been delivered. Enjoy your meal!",
			OrderID: orderID,
		})
	}

	return delivery, nil
}

// UpdateDeliveryRoute replaces the stored route wholesale.
func (s *DeliveryService) UpdateDeliveryRoute(ctx context.Context, orderID string, route []models.RoutePoint) (*models.Delivery, *apperrors.Error) {
	orderOID, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, apperrors.Validation("Invalid order ID format")
	}

	now := time.Now().UTC()
	for i := range route {
		if !route[i].Location.Valid() {
			return nil, apperrors.Validation("Invalid location in route")
		}
		if route[i].Timestamp.IsZero() {
			route[i].Timestamp = now
		}
	}

	delivery, err := s.deliveryRepo.FindByOrderID(ctx, orderOID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NotFound("Delivery not found")
		}
		return nil, apperrors.Internal("Failed to load delivery", err)
	}

	if delivery.Status.IsTerminal() {
		return nil, apperrors.InvalidState("Delivery is already finalized")
	}

	delivery.Route = route
	if len(route) > 0 {
		last := route[len(route)-1].Location
		delivery.Location = &last
	}

	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		return nil, apperrors.Internal("Failed to update route", err)
	}

	s.invalidateCache(ctx, orderID)
	return delivery, nil
}

// GetNearbyDeliveries returns active deliveries within the radius,
// nearest first.
func (s *DeliveryService) GetNearbyDeliveries(ctx context.Context, lat, lon, maxDistanceMeters float64) ([]models.Delivery, *apperrors.Error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, apperrors.Validation("Invalid coordinates")
	}
	if maxDistanceMeters <= 0 {
		maxDistanceMeters = 5000
	}

	deliveries, err := s.deliveryRepo.FindNearby(ctx, lon, lat, maxDistanceMeters)
	if err != nil {
		return nil, apperrors.Internal("Failed to query nearby deliveries", err)
	}
	return deliveries, nil
}

// SubmitDeliveryFeedback attaches a rating and comment. No status side
// effect: feedback is the one mutation allowed after the terminal state.
func (s *DeliveryService) SubmitDeliveryFeedback(ctx context.Context, orderID string, rating int, comment string) *apperrors.Error {
	if rating < 1 || rating > 5 {
		return apperrors.Validation("Rating must be between 1 and 5")
	}
	orderOID, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return apperrors.Validation("Invalid order ID format")
	}

	delivery, err := s.deliveryRepo.FindByOrderID(ctx, orderOID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return apperrors.NotFound("Delivery not found")
		}
		return apperrors.Internal("Failed to load delivery", err)
	}

	delivery.Feedback = &models.Feedback{Rating: rating, Comment: comment}
	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		return apperrors.Internal("Failed to store feedback", err)
	}

	s.invalidateCache(ctx, orderID)
	return nil
}

// ensureDelivery loads the order's delivery, creating the record lazily on
// first use. A duplicate-key rejection from the uniqueness constraint on
// orderId means a concurrent caller won the creation race: reload.
func (s *DeliveryService) ensureDelivery(ctx context.Context, order *models.Order) (*models.Delivery, error) {
	delivery, err := s.deliveryRepo.FindByOrderID(ctx, order.ID)
	if err == nil {
		return delivery, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	eta := time.Now().UTC().Add(defaultETAWindow)
	delivery = &models.Delivery{
		OrderID:               order.ID,
		UserID:                order.User,
		Status:                models.DeliveryPending,
		EstimatedDeliveryTime: &eta,
	}
	if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
		if s.deliveryRepo.IsDuplicate(err) {
			return s.deliveryRepo.FindByOrderID(ctx, order.ID)
		}
		return nil, err
	}
	return delivery, nil
}

// afterMutation runs the post-commit side effects: cache invalidation and
// both realtime fan-outs. All best-effort; the transaction has already
// committed.
func (s *DeliveryService) afterMutation(ctx context.Context, order *models.Order, delivery *models.Delivery) {
	orderID := order.ID.Hex()
	s.invalidateCache(ctx, orderID)
	s.broadcast(ctx, orderID, delivery)
	s.publishEvent(orderID, string(delivery.Status))
}

func (s *DeliveryService) invalidateCache(ctx context.Context, orderID string) {
	if err := s.statusCache.Invalidate(ctx, orderID); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

func (s *DeliveryService) broadcast(ctx context.Context, orderID string, delivery *models.Delivery) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastDeliveryUpdate(ctx, delivery)
	s.broadcaster.EmitDeliveryUpdate(orderID, map[string]interface{}{
		"status":                delivery.Status,
		"location":              delivery.Location,
		"estimatedDeliveryTime": delivery.EstimatedDeliveryTime,
	})
}

func (s *DeliveryService) publishEvent(orderID, status string) {
	if s.producer == nil {
		return
	}
	evt := kafka.LifecycleEvent{
		OrderID:   orderID,
		Entity:    "delivery",
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
	if err := s.producer.PublishLifecycleEvent(evt); err != nil {
		s.logger.Warn("lifecycle event publish failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

func buildStatusView(order *models.Order, delivery *models.Delivery) DeliveryStatusView {
	return DeliveryStatusView{
		OrderID:               order.ID.Hex(),
		OrderStatus:           order.Status,
		DeliveryID:            delivery.ID.Hex(),
		Status:                delivery.Status,
		DeliveryAgent:         delivery.DeliveryAgent,
		Location:              delivery.Location,
		EstimatedDeliveryTime: delivery.EstimatedDeliveryTime,
		ActualDeliveryTime:    delivery.ActualDeliveryTime,
		Feedback:              delivery.Feedback,
	}
}

// generateOTP returns a 6 digit numeric code from crypto/rand.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
