package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/lingamvamshikrishnareddy/curry/cache"
	"github.com/lingamvamshikrishnareddy/curry/models"
	"github.com/lingamvamshikrishnareddy/curry/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Client-to-server message types.
const (
	TypeSubscribeDelivery   = "SUBSCRIBE_DELIVERY"
	TypeUnsubscribeDelivery = "UNSUBSCRIBE_DELIVERY"
	TypeGetDeliveryStatus   = "GET_DELIVERY_STATUS"
	TypeJoinOrder           = "JOIN_ORDER"
	TypeLeaveOrder          = "LEAVE_ORDER"
)

// Server-to-client message types.
const (
	TypeDeliveryStatus = "DELIVERY_STATUS"
	TypeDeliveryUpdate = "DELIVERY_UPDATE"
)

// Envelope is the wire format on the live channel.
type Envelope struct {
	Type       string `json:"type"`
	DeliveryID string `json:"deliveryId,omitempty"`
	OrderID    string `json:"orderId,omitempty"`
}

// DeliveryUpdate is the minimal status payload pushed to subscribers.
type DeliveryUpdate struct {
	ID                    string           `json:"id"`
	Status                string           `json:"status"`
	Location              *models.GeoPoint `json:"location,omitempty"`
	EstimatedDeliveryTime *time.Time       `json:"estimatedDeliveryTime,omitempty"`
}

// Hub maintains the set of live connections and two independent fan-out
// tables: the delivery-id subscription registry (mirrored into the durable
// store) and the coarser order-keyed broadcast rooms. They are deliberately
// not unified; both are externally observable mechanisms.
type Hub struct {
	// Registered clients per user ID
	clients map[string]map[*Client]bool

	// delivery id -> set of subscribed user ids
	deliverySubs map[string]map[string]bool

	// room name (order_<id>) -> set of member connections
	rooms map[string]map[*Client]bool

	// Register requests from the clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	mu sync.RWMutex

	deliveries  repository.DeliveryRepository
	subscribers cache.SubscriberStore
	logger      *zap.Logger
}

// NewHub creates a new Hub instance. subscribers may be nil, in which case
// subscription state is kept in-process only.
func NewHub(deliveries repository.DeliveryRepository, subscribers cache.SubscriberStore, logger *zap.Logger) *Hub {
	return &Hub{
		clients:      make(map[string]map[*Client]bool),
		deliverySubs: make(map[string]map[string]bool),
		rooms:        make(map[string]map[*Client]bool),
		Register:     make(chan *Client),
		Unregister:   make(chan *Client),
		deliveries:   deliveries,
		subscribers:  subscribers,
		logger:       logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			client.rooms = make(map[string]bool)
			h.mu.Unlock()
			h.logger.Info("client connected", zap.String("user_id", client.UserID))

		case client := <-h.Unregister:
			h.removeClient(client)
		}
	}
}

// removeClient drops the connection from every in-process table right away.
// The durable subscriber registry is left to asynchronous pruning.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	client.closed = true
	close(client.Send)

	for room := range client.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}

	if len(clients) == 0 {
		delete(h.clients, client.UserID)
		// Last connection for this user is gone; drop their delivery
		// subscriptions from the in-process table.
		for deliveryID, subs := range h.deliverySubs {
			delete(subs, client.UserID)
			if len(subs) == 0 {
				delete(h.deliverySubs, deliveryID)
			}
		}
	}
	h.logger.Info("client disconnected", zap.String("user_id", client.UserID))
}

// handleMessage dispatches one envelope read from a connection.
func (h *Hub) handleMessage(c *Client, raw []byte) {
	var msg Envelope
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.sendToClient(c, []byte(`{"error":"Invalid message format"}`))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch msg.Type {
	case TypeSubscribeDelivery:
		h.subscribeToDelivery(ctx, c.UserID, msg.DeliveryID)

	case TypeUnsubscribeDelivery:
		h.unsubscribeFromDelivery(ctx, c.UserID, msg.DeliveryID)

	case TypeGetDeliveryStatus:
		h.SendDeliveryStatus(ctx, c.UserID, msg.DeliveryID)

	case TypeJoinOrder:
		if msg.OrderID != "" {
			h.joinRoom(c, orderRoom(msg.OrderID))
		}

	case TypeLeaveOrder:
		if msg.OrderID != "" {
			h.leaveRoom(c, orderRoom(msg.OrderID))
		}

	default:
		h.sendToClient(c, []byte(`{"error":"Unknown message type"}`))
	}
}

func orderRoom(orderID string) string {
	return "order_" + orderID
}

func (h *Hub) subscribeToDelivery(ctx context.Context, userID, deliveryID string) {
	id, err := primitive.ObjectIDFromHex(deliveryID)
	if err != nil {
		return
	}
	if _, err := h.deliveries.FindByID(ctx, id); err != nil {
		return
	}

	h.mu.Lock()
	if h.deliverySubs[deliveryID] == nil {
		h.deliverySubs[deliveryID] = make(map[string]bool)
	}
	h.deliverySubs[deliveryID][userID] = true
	h.mu.Unlock()

	if h.subscribers != nil {
		if err := h.subscribers.Add(ctx, deliveryID, userID); err != nil {
			h.logger.Warn("failed to persist subscription", zap.String("delivery_id", deliveryID), zap.Error(err))
		}
	}
}

func (h *Hub) unsubscribeFromDelivery(ctx context.Context, userID, deliveryID string) {
	h.mu.Lock()
	if subs, ok := h.deliverySubs[deliveryID]; ok {
		delete(subs, userID)
		if len(subs) == 0 {
			delete(h.deliverySubs, deliveryID)
		}
	}
	h.mu.Unlock()

	if h.subscribers != nil {
		if err := h.subscribers.Remove(ctx, deliveryID, userID); err != nil {
			h.logger.Warn("failed to remove subscription", zap.String("delivery_id", deliveryID), zap.Error(err))
		}
	}
}

// SendDeliveryStatus pushes the current delivery view to a single user's
// connections. The confirmation code never crosses this channel.
func (h *Hub) SendDeliveryStatus(ctx context.Context, userID, deliveryID string) {
	id, err := primitive.ObjectIDFromHex(deliveryID)
	if err != nil {
		return
	}
	delivery, err := h.deliveries.FindByID(ctx, id)
	if err != nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type":     TypeDeliveryStatus,
		"delivery": delivery,
	})
	if err != nil {
		return
	}
	h.SendToUser(userID, payload)
}

// BroadcastDeliveryUpdate pushes a minimal status payload to every
// subscriber of the delivery. Connections that are not currently open are
// silently skipped: at-most-once, best-effort.
func (h *Hub) BroadcastDeliveryUpdate(ctx context.Context, delivery *models.Delivery) {
	deliveryID := delivery.ID.Hex()

	userIDs := make(map[string]bool)
	h.mu.RLock()
	for userID := range h.deliverySubs[deliveryID] {
		userIDs[userID] = true
	}
	h.mu.RUnlock()

	// Merge in the durable registry so subscribers registered before a
	// restart (or on a sibling instance) are still reached.
	if h.subscribers != nil {
		if members, err := h.subscribers.Members(ctx, deliveryID); err == nil {
			for _, userID := range members {
				userIDs[userID] = true
			}
		}
	}

	if len(userIDs) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type": TypeDeliveryUpdate,
		"delivery": DeliveryUpdate{
			ID:                    deliveryID,
			Status:                string(delivery.Status),
			Location:              delivery.Location,
			EstimatedDeliveryTime: delivery.EstimatedDeliveryTime,
		},
	})
	if err != nil {
		return
	}

	for userID := range userIDs {
		h.SendToUser(userID, payload)
	}
}

// EmitDeliveryUpdate broadcasts a deliveryUpdate event on the order-keyed
// room. This is a coarser channel than the delivery subscription registry.
func (h *Hub) EmitDeliveryUpdate(orderID string, update interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"type":     "deliveryUpdate",
		"orderId":  orderID,
		"delivery": update,
	})
	if err != nil {
		return
	}
	h.emitToRoom(orderRoom(orderID), payload)
}

func (h *Hub) joinRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	if c.rooms == nil {
		c.rooms = make(map[string]bool)
	}
	c.rooms[room] = true
}

func (h *Hub) leaveRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

func (h *Hub) emitToRoom(room string, message []byte) {
	h.mu.RLock()
	members, ok := h.rooms[room]
	if !ok {
		h.mu.RUnlock()
		return
	}
	clientList := make([]*Client, 0, len(members))
	for client := range members {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	for _, client := range clientList {
		h.trySend(client, message)
	}
}

// SendToUser sends a message to all open connections of a specific user.
func (h *Hub) SendToUser(userID string, message []byte) {
	h.mu.RLock()
	clients, ok := h.clients[userID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Copy the client list so the lock is not held while sending.
	clientList := make([]*Client, 0, len(clients))
	for client := range clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	for _, client := range clientList {
		h.trySend(client, message)
	}
}

func (h *Hub) sendToClient(c *Client, message []byte) {
	h.trySend(c, message)
}

// trySend delivers without blocking; a client whose send buffer is full is
// treated as dead and evicted. The send happens under the read lock while
// eviction closes the channel under the write lock, so a concurrent
// broadcast can never send on a channel that is being closed.
func (h *Hub) trySend(client *Client, message []byte) {
	h.mu.RLock()
	if client.closed {
		h.mu.RUnlock()
		return
	}
	select {
	case client.Send <- message:
		h.mu.RUnlock()
	default:
		h.mu.RUnlock()
		h.removeClient(client)
	}
}
