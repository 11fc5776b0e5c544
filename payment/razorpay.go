package payment

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type RazorpayGateway struct {
	keyID     string
	keySecret string
	orders    orderCreator
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayGateway{keyID: keyID, keySecret: keySecret, orders: client.Order}
}

func (g *RazorpayGateway) Name() string  { return ProviderRazorpay }
func (g *RazorpayGateway) KeyID() string { return g.keyID }

func (g *RazorpayGateway) CreateOrder(_ context.Context, in CreateOrderInput) (*Order, error) {
	notes := map[string]interface{}{}
	for k, v := range in.Notes {
		notes[k] = v
	}
	body, err := g.orders.Create(map[string]interface{}{
		"amount":   in.Amount,
		"currency": in.Currency,
		"receipt":  in.Receipt,
		"notes":    notes,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay create order: response has no id")
	}
	order := &Order{ID: id, Amount: in.Amount, Currency: in.Currency}
	// JSON numbers decode as float64.
	if amount, ok := body["amount"].(float64); ok {
		order.Amount = int64(amount)
	}
	if currency, ok := body["currency"].(string); ok && currency != "" {
		order.Currency = currency
	}
	return order, nil
}

// Verify checks signature = hex(HMAC-SHA256(secret, orderId|paymentId)).
func (g *RazorpayGateway) Verify(_ context.Context, in VerifyInput) error {
	attrs := map[string]interface{}{
		"razorpay_order_id":   in.OrderID,
		"razorpay_payment_id": in.PaymentID,
	}
	if !utils.VerifyPaymentSignature(attrs, in.Signature, g.keySecret) {
		return ErrInvalidSignature
	}
	return nil
}
