package payment

import (
	"context"
	"errors"
)

const (
	ProviderRazorpay = "razorpay"
	ProviderStripe   = "stripe"
)

// ErrInvalidSignature is returned when a payment confirmation does not check out.
var ErrInvalidSignature = errors.New("invalid payment signature")

// Order is a gateway-side order the client pays against.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	// ClientSecret is set by gateways that confirm payments client-side.
	ClientSecret string
}

type CreateOrderInput struct {
	Amount   int64 // minor units
	Currency string
	Receipt  string
	Notes    map[string]string
}

type VerifyInput struct {
	CheckoutID string
	OrderID    string
	PaymentID  string
	Signature  string
}

// Gateway creates orders and verifies completed payments.
type Gateway interface {
	Name() string
	// KeyID is the public key the frontend needs to open the checkout widget.
	KeyID() string
	CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error)
	Verify(ctx context.Context, in VerifyInput) error
}
