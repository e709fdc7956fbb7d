package notifier

import (
	"context"
)

// Event is an off-band alert for a user: push, SMS or email delivery is the
// collaborator's concern, only the contract matters here.
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	OrderID string `json:"orderId,omitempty"`
}

// Notifier is fire-and-forget: implementations log failures and never block
// or fail the caller's transaction.
type Notifier interface {
	Notify(ctx context.Context, userID string, event Event)
}
