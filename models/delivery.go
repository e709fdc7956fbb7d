package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeliveryStatus is the lifecycle state of a delivery.
type DeliveryStatus string

const (
	DeliveryPending        DeliveryStatus = "Pending"
	DeliveryAssigned       DeliveryStatus = "Assigned"
	DeliveryOutForDelivery DeliveryStatus = "Out for Delivery"
	DeliveryNearLocation   DeliveryStatus = "Near Location"
	DeliveryArrived        DeliveryStatus = "Arrived"
	DeliveryDelivered      DeliveryStatus = "Delivered"
	DeliveryCancelled      DeliveryStatus = "Cancelled"
)

// IsTerminal reports whether the delivery is immutable (except feedback).
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryDelivered || s == DeliveryCancelled
}

// ValidDeliveryStatus reports whether s is a member of the status enum.
func ValidDeliveryStatus(s DeliveryStatus) bool {
	switch s {
	case DeliveryPending, DeliveryAssigned, DeliveryOutForDelivery,
		DeliveryNearLocation, DeliveryArrived, DeliveryDelivered, DeliveryCancelled:
		return true
	}
	return false
}

// GeoPoint is a GeoJSON point: [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
}

// Valid checks the shape required of a location update: type "Point" with
// exactly two numeric coordinates.
func (p *GeoPoint) Valid() bool {
	return p != nil && p.Type == "Point" && len(p.Coordinates) == 2
}

// RoutePoint is one timestamped position in a delivery's route history.
type RoutePoint struct {
	Location  GeoPoint  `bson:"location" json:"location"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// DeliveryAgent is the summary of the agent assigned to a delivery.
type DeliveryAgent struct {
	ID            primitive.ObjectID `bson:"id,omitempty" json:"id,omitempty"`
	Name          string             `bson:"name,omitempty" json:"name,omitempty"`
	Contact       string             `bson:"contact,omitempty" json:"contact,omitempty"`
	VehicleNumber string             `bson:"vehicleNumber,omitempty" json:"vehicleNumber,omitempty"`
	AssignedAt    *time.Time         `bson:"assignedAt,omitempty" json:"assignedAt,omitempty"`
}

// Feedback is a customer rating attached after delivery.
type Feedback struct {
	Rating  int    `bson:"rating" json:"rating"`
	Comment string `bson:"comment,omitempty" json:"comment,omitempty"`
}

// DeliveryAttempt logs one attempt at handing over the order.
type DeliveryAttempt struct {
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Outcome   string    `bson:"outcome" json:"outcome"`
	Notes     string    `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Delivery tracks an order's physical transit to the customer. Exactly one
// delivery exists per order, enforced by a unique index on orderId.
type Delivery struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID       primitive.ObjectID `bson:"orderId" json:"orderId"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	Status        DeliveryStatus     `bson:"status" json:"status"`
	DeliveryAgent *DeliveryAgent     `bson:"deliveryAgent,omitempty" json:"deliveryAgent,omitempty"`
	Location      *GeoPoint          `bson:"location,omitempty" json:"location,omitempty"`
	Route         []RoutePoint       `bson:"route,omitempty" json:"route,omitempty"`

	// One-time confirmation code. OTP expires 5 minutes after generation;
	// it is cleared on successful verification and never sent over the
	// realtime channel.
	OTP            string     `bson:"otp,omitempty" json:"-"`
	OTPGeneratedAt *time.Time `bson:"otpGeneratedAt,omitempty" json:"-"`
	OTPVerified    bool       `bson:"otpVerified" json:"otpVerified"`

	EstimatedDeliveryTime *time.Time        `bson:"estimatedDeliveryTime,omitempty" json:"estimatedDeliveryTime,omitempty"`
	ActualDeliveryTime    *time.Time        `bson:"actualDeliveryTime,omitempty" json:"actualDeliveryTime,omitempty"`
	Attempts              []DeliveryAttempt `bson:"attempts,omitempty" json:"attempts,omitempty"`
	Feedback              *Feedback         `bson:"feedback,omitempty" json:"feedback,omitempty"`
	DeliveryInstructions  string            `bson:"deliveryInstructions,omitempty" json:"deliveryInstructions,omitempty"`
	SpecialNotes          string            `bson:"specialNotes,omitempty" json:"specialNotes,omitempty"`
	CreatedAt             time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// Duration returns how long the delivery took, in minutes, or -1 if it has
// not completed yet.
func (d *Delivery) Duration() float64 {
	if d.ActualDeliveryTime == nil || d.CreatedAt.IsZero() {
		return -1
	}
	return d.ActualDeliveryTime.Sub(d.CreatedAt).Minutes()
}

// Delay returns how far past the estimate the delivery arrived, in minutes.
// Early or on-time deliveries report zero; incomplete ones report -1.
func (d *Delivery) Delay() float64 {
	if d.ActualDeliveryTime == nil || d.EstimatedDeliveryTime == nil {
		return -1
	}
	delay := d.ActualDeliveryTime.Sub(*d.EstimatedDeliveryTime).Minutes()
	if delay < 0 {
		return 0
	}
	return delay
}

// OTPExpired reports whether the code generated at OTPGeneratedAt has aged
// past the 5 minute window at now.
func (d *Delivery) OTPExpired(now time.Time) bool {
	if d.OTPGeneratedAt == nil {
		return true
	}
	return now.Sub(*d.OTPGeneratedAt) > 5*time.Minute
}
