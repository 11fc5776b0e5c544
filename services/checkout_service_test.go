package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shivamdarekar/TrendsWave/models"
)

type checkoutFixture struct {
	svc       *CheckoutService
	checkouts *memCheckoutRepo
	orders    *memOrderRepo
	carts     *memCartRepo
	publisher *recordingPublisher
	userID    primitive.ObjectID
}

func newCheckoutFixture(checkouts ...models.Checkout) *checkoutFixture {
	f := &checkoutFixture{
		checkouts: newMemCheckoutRepo(checkouts...),
		orders:    &memOrderRepo{},
		carts:     newMemCartRepo(),
		publisher: &recordingPublisher{},
		userID:    primitive.NewObjectID(),
	}
	f.svc = NewCheckoutService(f.checkouts, f.orders, f.carts, &fakeTx{}, nil, f.publisher, nil)
	return f
}

func checkoutRequest() models.CreateCheckoutRequest {
	return models.CreateCheckoutRequest{
		CheckoutItems: []models.CheckoutItemInput{
			{ProductID: primitive.NewObjectID().Hex(), Name: "Shirt", Price: 40, DiscountPrice: floatPtr(29.99), Quantity: 2},
			{ProductID: primitive.NewObjectID().Hex(), Name: "Belt", Price: 15, Quantity: 1},
		},
		ShippingAddress: models.CheckoutShippingAddress{Address: "12 MG Road", State: "MH", PostalCode: "411001", Country: "India"},
		PaymentMethod:   "Razorpay",
		TotalPrice:      1,
	}
}

func (f *checkoutFixture) paidCheckout(t *testing.T) *models.Checkout {
	t.Helper()
	checkout, err := f.svc.Create(context.Background(), f.userID, checkoutRequest(), "")
	require.NoError(t, err)
	_, err = f.svc.Pay(context.Background(), f.userID, checkout.ID.Hex(), models.PayCheckoutRequest{PaymentStatus: "paid"})
	require.NoError(t, err)
	return checkout
}

func TestCheckoutService_CreateComputesTotal(t *testing.T) {
	f := newCheckoutFixture()

	checkout, err := f.svc.Create(context.Background(), f.userID, checkoutRequest(), "")
	require.NoError(t, err)

	assert.Equal(t, f.userID, checkout.User)
	assert.False(t, checkout.IsPaid)
	assert.Equal(t, models.PaymentStatusPending, checkout.PaymentStatus)
	// The client total is ignored.
	assert.Equal(t, 74.98, checkout.TotalPrice)
}

func TestCheckoutService_CreateValidation(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.svc.Create(context.Background(), f.userID, models.CreateCheckoutRequest{}, "")
	assert.ErrorIs(t, err, errNoCheckoutItems)

	req := checkoutRequest()
	req.CheckoutItems[0].ProductID = "bogus"
	_, err = f.svc.Create(context.Background(), f.userID, req, "")
	assert.ErrorIs(t, err, errInvalidCheckoutItem)
}

func TestCheckoutService_Pay(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	checkout, err := f.svc.Create(ctx, f.userID, checkoutRequest(), "")
	require.NoError(t, err)

	_, err = f.svc.Pay(ctx, primitive.NewObjectID(), checkout.ID.Hex(), models.PayCheckoutRequest{PaymentStatus: "paid"})
	assert.ErrorIs(t, err, errCheckoutNotOwned)

	_, err = f.svc.Pay(ctx, f.userID, checkout.ID.Hex(), models.PayCheckoutRequest{PaymentStatus: "failed"})
	assert.ErrorIs(t, err, errInvalidPayStatus)

	_, err = f.svc.Pay(ctx, f.userID, primitive.NewObjectID().Hex(), models.PayCheckoutRequest{PaymentStatus: "paid"})
	assert.ErrorIs(t, err, errCheckoutNotFound)

	paid, err := f.svc.Pay(ctx, f.userID, checkout.ID.Hex(), models.PayCheckoutRequest{
		PaymentStatus:  "paid",
		PaymentDetails: models.PaymentDetails{"transactionId": "tx_1"},
	})
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.NotNil(t, paid.PaidAt)
	assert.Equal(t, "tx_1", paid.PaymentDetails["transactionId"])

	// Paying again leaves the first payment in place.
	again, err := f.svc.Pay(ctx, f.userID, checkout.ID.Hex(), models.PayCheckoutRequest{
		PaymentStatus:  "paid",
		PaymentDetails: models.PaymentDetails{"transactionId": "tx_2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "tx_1", again.PaymentDetails["transactionId"])
}

func TestCheckoutService_FinalizeGuards(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	unpaid, err := f.svc.Create(ctx, f.userID, checkoutRequest(), "")
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, f.userID, unpaid.ID.Hex())
	assert.ErrorIs(t, err, errCheckoutNotPaid)

	_, err = f.svc.Finalize(ctx, primitive.NewObjectID(), unpaid.ID.Hex())
	assert.ErrorIs(t, err, errCheckoutNotOwned)

	_, err = f.svc.Finalize(ctx, f.userID, "nope")
	assert.ErrorIs(t, err, errCheckoutNotFound)
}

func TestCheckoutService_FinalizeCreatesOrderOnce(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	uid := f.userID
	require.NoError(t, f.carts.Create(ctx, &models.Cart{User: &uid, Products: []models.CartItem{}}))

	checkout := f.paidCheckout(t)

	order, err := f.svc.Finalize(ctx, f.userID, checkout.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, checkout.ID, order.Checkout)
	assert.Equal(t, 74.98, order.TotalPrice)
	assert.Equal(t, 29.99, order.OrderItems[0].Price)
	assert.True(t, order.IsPaid)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Equal(t, models.DefaultShippingMethod, order.ShippingAddress.ShippingMethod)
	assert.Equal(t, 0, f.carts.count(), "user cart is cleared")
	assert.Equal(t, []string{models.EventOrderCreated}, f.publisher.types())

	_, err = f.svc.Finalize(ctx, f.userID, checkout.ID.Hex())
	assert.ErrorIs(t, err, errCheckoutFinalized)
	assert.Equal(t, 1, f.orders.count())
}

func TestCheckoutService_FinalizeConcurrent(t *testing.T) {
	f := newCheckoutFixture()
	checkout := f.paidCheckout(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Finalize(context.Background(), f.userID, checkout.ID.Hex())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, errCheckoutFinalized)
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, rejected)
	assert.Equal(t, 1, f.orders.count())
}

func TestBuildOrder_FreezesDiscountPrice(t *testing.T) {
	paidAt := time.Now().UTC()
	checkout := &models.Checkout{
		ID:   primitive.NewObjectID(),
		User: primitive.NewObjectID(),
		CheckoutItems: []models.CheckoutItem{
			{ProductID: primitive.NewObjectID(), Name: "Jacket", Price: 120, DiscountPrice: floatPtr(99.5), Quantity: 2},
			{ProductID: primitive.NewObjectID(), Name: "Cap", Price: 20, Quantity: 1},
			{ProductID: primitive.NewObjectID(), Name: "Sock", Price: 5, DiscountPrice: floatPtr(-1), Quantity: 3},
		},
		IsPaid: true,
		PaidAt: &paidAt,
	}

	order := BuildOrder(checkout)

	require.Len(t, order.OrderItems, 3)
	assert.Equal(t, 99.5, order.OrderItems[0].Price)
	assert.Equal(t, 20.0, order.OrderItems[1].Price)
	assert.Equal(t, 5.0, order.OrderItems[2].Price, "negative discount is ignored")
	assert.Equal(t, 234.0, order.TotalPrice)
	assert.Equal(t, &paidAt, order.PaidAt)

	// Later edits to the checkout (or the product) do not reach the order.
	checkout.CheckoutItems[0].DiscountPrice = floatPtr(10)
	assert.Equal(t, 99.5, order.OrderItems[0].Price)
}
