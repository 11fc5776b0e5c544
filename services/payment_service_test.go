package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shivamdarekar/TrendsWave/models"
	"github.com/shivamdarekar/TrendsWave/payment"
)

type MockGateway struct{ mock.Mock }

func (m *MockGateway) Name() string  { return m.Called().String(0) }
func (m *MockGateway) KeyID() string { return m.Called().String(0) }

func (m *MockGateway) CreateOrder(ctx context.Context, in payment.CreateOrderInput) (*payment.Order, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Order), args.Error(1)
}

func (m *MockGateway) Verify(ctx context.Context, in payment.VerifyInput) error {
	return m.Called(ctx, in).Error(0)
}

type MockWebhookGateway struct {
	MockGateway
}

func (m *MockWebhookGateway) ParseWebhook(payload []byte, sigHeader string) (*payment.WebhookEvent, error) {
	args := m.Called(payload, sigHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.WebhookEvent), args.Error(1)
}

const testRazorpaySecret = "rzp_test_secret"

func razorpaySignature(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testRazorpaySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func pendingCheckout(userID primitive.ObjectID, total float64) models.Checkout {
	return models.Checkout{
		ID:            primitive.NewObjectID(),
		User:          userID,
		TotalPrice:    total,
		PaymentStatus: models.PaymentStatusPending,
	}
}

func TestPaymentService_CreateOrder(t *testing.T) {
	userID := primitive.NewObjectID()
	checkout := pendingCheckout(userID, 1499.5)
	gw := new(MockGateway)
	gw.On("Name").Return(payment.ProviderRazorpay)
	gw.On("KeyID").Return("rzp_key")
	gw.On("CreateOrder", mock.Anything, payment.CreateOrderInput{
		Amount:   149950,
		Currency: "INR",
		Receipt:  "rcpt_" + checkout.ID.Hex(),
		Notes:    map[string]string{"checkoutId": checkout.ID.Hex(), "userId": userID.Hex()},
	}).Return(&payment.Order{ID: "order_1", Amount: 149950, Currency: "INR"}, nil)

	svc := NewPaymentService(newMemCheckoutRepo(checkout), gw, &fakeTx{}, nil, nil, nil, "")
	order, err := svc.CreateOrder(context.Background(), userID, checkout.ID.Hex())

	require.NoError(t, err)
	assert.Equal(t, &models.PaymentOrder{OrderID: "order_1", Amount: 149950, Currency: "INR", KeyID: "rzp_key", Provider: payment.ProviderRazorpay}, order)
	gw.AssertExpectations(t)
}

func TestPaymentService_CreateOrderRejections(t *testing.T) {
	userID := primitive.NewObjectID()
	zero := pendingCheckout(userID, 0.004)
	paid := pendingCheckout(userID, 10)
	paid.IsPaid = true
	svc := NewPaymentService(newMemCheckoutRepo(zero, paid), new(MockGateway), &fakeTx{}, nil, nil, nil, "inr")

	_, err := svc.CreateOrder(context.Background(), userID, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, errCheckoutNotFound)

	_, err = svc.CreateOrder(context.Background(), primitive.NewObjectID(), zero.ID.Hex())
	assert.ErrorIs(t, err, errCheckoutNotOwned)

	_, err = svc.CreateOrder(context.Background(), userID, paid.ID.Hex())
	assert.ErrorIs(t, err, errCheckoutAlreadyPaid)

	_, err = svc.CreateOrder(context.Background(), userID, zero.ID.Hex())
	assert.ErrorIs(t, err, errInvalidAmount)
}

func TestPaymentService_Verify(t *testing.T) {
	userID := primitive.NewObjectID()
	checkout := pendingCheckout(userID, 250)
	checkouts := newMemCheckoutRepo(checkout)
	publisher := &recordingPublisher{}
	gw := payment.NewRazorpayGateway("rzp_key", testRazorpaySecret)
	svc := NewPaymentService(checkouts, gw, &fakeTx{}, nil, publisher, nil, "")
	ctx := context.Background()

	req := models.VerifyPaymentRequest{
		CheckoutID: checkout.ID.Hex(),
		OrderID:    "order_abc",
		PaymentID:  "pay_xyz",
		Signature:  razorpaySignature("order_abc", "pay_xyz"),
	}

	t.Run("missing params", func(t *testing.T) {
		bad := req
		bad.Signature = ""
		_, err := svc.Verify(ctx, userID, bad)
		assert.ErrorIs(t, err, errMissingPayParams)
	})

	t.Run("tampered ids are rejected", func(t *testing.T) {
		tampered := req
		tampered.PaymentID = "pay_other"
		_, err := svc.Verify(ctx, userID, tampered)
		assert.ErrorIs(t, err, errInvalidSignature)

		tampered = req
		tampered.OrderID = "order_other"
		_, err = svc.Verify(ctx, userID, tampered)
		assert.ErrorIs(t, err, errInvalidSignature)
	})

	t.Run("other users cannot verify", func(t *testing.T) {
		_, err := svc.Verify(ctx, primitive.NewObjectID(), req)
		assert.ErrorIs(t, err, errCheckoutNotOwned)
	})

	t.Run("valid signature marks the checkout paid", func(t *testing.T) {
		result, err := svc.Verify(ctx, userID, req)
		require.NoError(t, err)
		assert.False(t, result.AlreadyProcessed)
		assert.True(t, result.Checkout.IsPaid)
		assert.Equal(t, models.PaymentDetails{
			"provider":  payment.ProviderRazorpay,
			"orderId":   "order_abc",
			"paymentId": "pay_xyz",
			"signature": req.Signature,
		}, result.Checkout.PaymentDetails)
		assert.Equal(t, []string{models.EventPaymentVerified}, publisher.types())
	})

	t.Run("second verify is a no-op", func(t *testing.T) {
		result, err := svc.Verify(ctx, userID, req)
		require.NoError(t, err)
		assert.True(t, result.AlreadyProcessed)
		assert.Len(t, publisher.types(), 1)
	})
}

func TestPaymentService_Webhook(t *testing.T) {
	userID := primitive.NewObjectID()
	checkout := pendingCheckout(userID, 80)
	checkouts := newMemCheckoutRepo(checkout)
	gw := new(MockWebhookGateway)
	gw.On("Name").Return(payment.ProviderStripe)
	gw.On("ParseWebhook", []byte("bad"), "sig").Return(nil, assert.AnError)
	gw.On("ParseWebhook", []byte("other"), "sig").Return(&payment.WebhookEvent{ID: "evt_0", Type: "charge.refunded"}, nil)
	gw.On("ParseWebhook", []byte("ok"), "sig").Return(&payment.WebhookEvent{
		ID:         "evt_1",
		Type:       payment.EventPaymentIntentSucceeded,
		IntentID:   "pi_1",
		CheckoutID: checkout.ID.Hex(),
	}, nil)
	svc := NewPaymentService(checkouts, gw, &fakeTx{}, nil, nil, nil, "")
	ctx := context.Background()

	assert.ErrorIs(t, svc.HandleWebhook(ctx, []byte("bad"), "sig"), errWebhookSignature)
	assert.NoError(t, svc.HandleWebhook(ctx, []byte("other"), "sig"))

	stored, _ := checkouts.FindByID(ctx, checkout.ID)
	assert.False(t, stored.IsPaid)

	require.NoError(t, svc.HandleWebhook(ctx, []byte("ok"), "sig"))
	stored, _ = checkouts.FindByID(ctx, checkout.ID)
	assert.True(t, stored.IsPaid)
	assert.Equal(t, "pi_1", stored.PaymentDetails["paymentId"])

	// Redelivery of the same event is harmless.
	require.NoError(t, svc.HandleWebhook(ctx, []byte("ok"), "sig"))
}

func TestPaymentService_WebhookNotConfigured(t *testing.T) {
	svc := NewPaymentService(newMemCheckoutRepo(), payment.NewRazorpayGateway("k", "s"), &fakeTx{}, nil, nil, nil, "")
	assert.ErrorIs(t, svc.HandleWebhook(context.Background(), []byte("{}"), ""), errWebhookDisabled)
}
