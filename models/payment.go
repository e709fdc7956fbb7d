package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus is the lifecycle state of a payment record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentTimeout   PaymentStatus = "TIMEOUT"
)

// Payment records a financial transaction tied to exactly one order.
// A COMPLETED payment is immutable; at most one PENDING payment exists
// per order at a time.
type Payment struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID           primitive.ObjectID `bson:"orderId" json:"orderId"`
	Amount            float64            `bson:"amount" json:"amount"`
	Method            PaymentMethod      `bson:"method" json:"method"`
	Status            PaymentStatus      `bson:"status" json:"status"`
	RazorpayOrderID   string             `bson:"razorpayOrderId,omitempty" json:"razorpayOrderId,omitempty"`
	RazorpayPaymentID string             `bson:"razorpayPaymentId,omitempty" json:"razorpayPaymentId,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}
