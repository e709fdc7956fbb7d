package services

import (
	"context"

	"github.com/lingamvamshikrishnareddy/curry/models"
)

// Broadcaster is the realtime fan-out the delivery engine pushes state
// changes through. The hub implements it; tests substitute a recorder.
type Broadcaster interface {
	BroadcastDeliveryUpdate(ctx context.Context, delivery *models.Delivery)
	EmitDeliveryUpdate(orderID string, update interface{})
}
