package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/webhook"
)

const EventPaymentIntentSucceeded = "payment_intent.succeeded"

type StripeGateway struct {
	publishableKey string
	webhookKey     string

	newIntent func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	getIntent func(string, *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

func NewStripeGateway(secretKey, publishableKey, webhookKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{
		publishableKey: publishableKey,
		webhookKey:     webhookKey,
		newIntent:      paymentintent.New,
		getIntent:      paymentintent.Get,
	}
}

func (g *StripeGateway) Name() string  { return ProviderStripe }
func (g *StripeGateway) KeyID() string { return g.publishableKey }

// CreateOrder creates a PaymentIntent tagged with the checkout id.
func (g *StripeGateway) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.Amount),
		Currency: stripe.String(strings.ToLower(in.Currency)),
	}
	params.Context = ctx
	for k, v := range in.Notes {
		params.AddMetadata(k, v)
	}
	params.AddMetadata("receipt", in.Receipt)

	pi, err := g.newIntent(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return &Order{
		ID:           pi.ID,
		Amount:       pi.Amount,
		Currency:     strings.ToUpper(string(pi.Currency)),
		ClientSecret: pi.ClientSecret,
	}, nil
}

// Verify retrieves the intent and requires it to have succeeded for this checkout.
func (g *StripeGateway) Verify(ctx context.Context, in VerifyInput) error {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.getIntent(in.OrderID, params)
	if err != nil {
		return fmt.Errorf("stripe get payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded || pi.Metadata["checkoutId"] != in.CheckoutID {
		return ErrInvalidSignature
	}
	return nil
}

// WebhookEvent is the subset of a Stripe event the application acts on.
type WebhookEvent struct {
	ID         string
	Type       string
	IntentID   string
	CheckoutID string
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (g *StripeGateway) ParseWebhook(payload []byte, sigHeader string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, g.webhookKey,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, err
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "payment_intent.") && event.Data != nil {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("unmarshal payment intent: %w", err)
		}
		out.IntentID = pi.ID
		out.CheckoutID = pi.Metadata["checkoutId"]
	}
	return out, nil
}
