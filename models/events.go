package models

import "time"

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventPaymentVerified    = "payment.verified"
)

// DomainEvent is the payload published to SNS or Kafka.
type DomainEvent struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId,omitempty"`
	CheckoutID string    `json:"checkoutId,omitempty"`
	UserID     string    `json:"userId"`
	TotalPrice float64   `json:"totalPrice,omitempty"`
	Status     string    `json:"status,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// PaymentOrder is what the client needs to open the gateway checkout.
type PaymentOrder struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId,omitempty"`
	Provider string `json:"provider"`
}

type CreatePaymentOrderRequest struct {
	CheckoutID string `json:"checkoutId" binding:"required"`
}

// VerifyPaymentRequest keeps the field names the Razorpay checkout widget posts.
type VerifyPaymentRequest struct {
	CheckoutID string `json:"checkoutId"`
	OrderID    string `json:"razorpay_order_id"`
	PaymentID  string `json:"razorpay_payment_id"`
	Signature  string `json:"razorpay_signature"`
}
