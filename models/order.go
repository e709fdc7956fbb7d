package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderConfirmed  OrderStatus = "Confirmed"
	OrderProcessing OrderStatus = "Processing"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
	OrderExpired    OrderStatus = "Expired"
)

// IsTerminal reports whether no further transition is permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled || s == OrderExpired
}

// PaymentMethod identifies how an order is paid for.
type PaymentMethod string

const (
	MethodCOD      PaymentMethod = "COD"
	MethodRazorpay PaymentMethod = "RAZORPAY"
)

// Valid reports whether the method is one of the supported set.
func (m PaymentMethod) Valid() bool {
	return m == MethodCOD || m == MethodRazorpay
}

// OrderItem is a single line item referencing a menu item.
type OrderItem struct {
	MenuItem primitive.ObjectID `bson:"menuItem" json:"menuItem"`
	Quantity int                `bson:"quantity" json:"quantity"`
}

// Order is a customer's purchase request. Orders are never physically
// deleted; terminal states are retained for history.
type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User             primitive.ObjectID `bson:"user" json:"user"`
	Items            []OrderItem        `bson:"items" json:"items"`
	Total            float64            `bson:"total" json:"total"`
	Status           OrderStatus        `bson:"status" json:"status"`
	PaymentMethod    PaymentMethod      `bson:"paymentMethod" json:"paymentMethod"`
	PaymentConfirmed bool               `bson:"paymentConfirmed" json:"paymentConfirmed"`
	// PaymentDeadline is set if and only if the method is not COD.
	PaymentDeadline *time.Time `bson:"paymentDeadline,omitempty" json:"paymentDeadline,omitempty"`
	Name            string     `bson:"name" json:"name"`
	Phone           string     `bson:"phone" json:"phone"`
	Address         string     `bson:"address" json:"address"`
	CreatedAt       time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// DeadlinePassed reports whether the payment deadline has elapsed at now.
// COD orders carry no deadline and never expire.
func (o *Order) DeadlinePassed(now time.Time) bool {
	return o.PaymentDeadline != nil && now.After(*o.PaymentDeadline)
}
