package services

import (
	"context"
	stderrors "errors"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/shivamdarekar/TrendsWave/cache"
	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/common/logger"
	"github.com/shivamdarekar/TrendsWave/database"
	"github.com/shivamdarekar/TrendsWave/events"
	"github.com/shivamdarekar/TrendsWave/models"
	awspkg "github.com/shivamdarekar/TrendsWave/pkg/aws"
	"github.com/shivamdarekar/TrendsWave/repository"
)

const (
	idemScopeCheckout = "checkout"

	// A request that loses the key race waits this long for the winner's
	// checkout to be stored.
	idemReplayAttempts = 20
	idemReplayInterval = 25 * time.Millisecond
)

var (
	errNoCheckoutItems     = apperrors.BadRequest("No items in checkout")
	errCheckoutNotFound    = apperrors.NotFound("Checkout not found")
	errCheckoutNotOwned    = apperrors.Forbidden("Not authorized for this checkout")
	errInvalidPayStatus    = apperrors.BadRequest("Invalid Payment Status")
	errCheckoutNotPaid     = apperrors.BadRequest("Checkout is not paid")
	errCheckoutFinalized   = apperrors.BadRequest("Checkout already finalized")
	errInvalidCheckoutItem = apperrors.BadRequest("Invalid product id in checkout items")
	errCheckoutInProgress  = apperrors.Conflict("A checkout with this Idempotency-Key is still being created")
)

type CheckoutService struct {
	checkoutRepo repository.CheckoutRepository
	orderRepo    repository.OrderRepository
	cartRepo     repository.CartRepository
	tx           database.Transactor
	idem         *cache.IdempotencyStore
	publisher    events.Publisher
	metrics      awspkg.MetricsRecorder
}

func NewCheckoutService(
	checkoutRepo repository.CheckoutRepository,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	tx database.Transactor,
	idem *cache.IdempotencyStore,
	publisher events.Publisher,
	metrics awspkg.MetricsRecorder,
) *CheckoutService {
	return &CheckoutService{
		checkoutRepo: checkoutRepo,
		orderRepo:    orderRepo,
		cartRepo:     cartRepo,
		tx:           tx,
		idem:         idem,
		publisher:    publisher,
		metrics:      metrics,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Create stores a pending checkout. A repeated idempotency key returns the
// checkout created by the first request. The key is claimed with SETNX before
// the insert, so concurrent requests with one key produce one checkout.
func (s *CheckoutService) Create(ctx context.Context, userID primitive.ObjectID, req models.CreateCheckoutRequest, idemKey string) (*models.Checkout, error) {
	if len(req.CheckoutItems) == 0 {
		return nil, errNoCheckoutItems
	}

	scopedKey := ""
	if idemKey != "" {
		scopedKey = userID.Hex() + ":" + idemKey
		if existing, err := s.replay(ctx, userID, scopedKey, false); err != nil || existing != nil {
			return existing, err
		}
	}

	items := make([]models.CheckoutItem, 0, len(req.CheckoutItems))
	total := 0.0
	for _, in := range req.CheckoutItems {
		productID, err := primitive.ObjectIDFromHex(in.ProductID)
		if err != nil {
			return nil, errInvalidCheckoutItem
		}
		item := models.CheckoutItem{
			ProductID:     productID,
			Name:          in.Name,
			Image:         in.Image,
			Price:         in.Price,
			DiscountPrice: in.DiscountPrice,
			Quantity:      in.Quantity,
			Size:          in.Size,
			Color:         in.Color,
		}
		if owner, err := primitive.ObjectIDFromHex(in.Owner); err == nil {
			item.Owner = owner
		}
		items = append(items, item)
		total += item.FrozenPrice() * float64(item.Quantity)
	}

	checkout := &models.Checkout{
		ID:              primitive.NewObjectID(),
		User:            userID,
		CheckoutItems:   items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		TotalPrice:      roundCents(total),
		PaymentStatus:   models.PaymentStatusPending,
	}

	claimed := false
	if scopedKey != "" {
		won, err := s.idem.Set(ctx, idemScopeCheckout, scopedKey, checkout.ID.Hex())
		switch {
		case err != nil:
			logger.Warn(ctx, "Failed to claim idempotency key", zap.Error(err))
		case !won:
			return s.replay(ctx, userID, scopedKey, true)
		default:
			claimed = true
		}
	}

	if err := s.checkoutRepo.Create(ctx, checkout); err != nil {
		if claimed {
			if relErr := s.idem.Release(ctx, idemScopeCheckout, scopedKey); relErr != nil {
				logger.Warn(ctx, "Failed to release idempotency key", zap.Error(relErr))
			}
		}
		return nil, apperrors.Internal("Failed to create checkout", err)
	}

	countMetric(s.metrics, awspkg.MetricCheckoutsCreated, nil)
	return checkout, nil
}

// replay returns the checkout stored under scopedKey, or nil when the key is
// unclaimed. A claimed key whose checkout is not stored yet is polled until
// the claiming request inserts it. claimLost is set after this request's own
// SETNX lost, when a result must exist.
func (s *CheckoutService) replay(ctx context.Context, userID primitive.ObjectID, scopedKey string, claimLost bool) (*models.Checkout, error) {
	id, err := s.idem.Get(ctx, idemScopeCheckout, scopedKey)
	if err != nil {
		if claimLost {
			return nil, apperrors.Internal("Failed to read idempotency key", err)
		}
		logger.Warn(ctx, "Idempotency lookup failed", zap.Error(err))
		return nil, nil
	}
	if id == "" {
		if claimLost {
			// The claiming request failed and released the key.
			return nil, errCheckoutInProgress
		}
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.Internal("Corrupt idempotency record", err)
	}

	for i := 0; i < idemReplayAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(idemReplayInterval):
			}
		}
		checkout, err := s.checkoutRepo.FindByID(ctx, oid)
		if err == nil {
			if checkout.User != userID {
				return nil, errCheckoutNotOwned
			}
			return checkout, nil
		}
		if !stderrors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Internal("Failed to fetch checkout", err)
		}
	}
	return nil, errCheckoutInProgress
}

// load fetches a checkout and checks the caller owns it.
func (s *CheckoutService) load(ctx context.Context, userID primitive.ObjectID, checkoutID string) (*models.Checkout, error) {
	oid, err := primitive.ObjectIDFromHex(checkoutID)
	if err != nil {
		return nil, errCheckoutNotFound
	}
	checkout, err := s.checkoutRepo.FindByID(ctx, oid)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errCheckoutNotFound
		}
		return nil, apperrors.Internal("Failed to fetch checkout", err)
	}
	if checkout.User != userID {
		return nil, errCheckoutNotOwned
	}
	return checkout, nil
}

// Pay records a payment reported by the client. Only the first call flips
// the checkout to paid; later calls return it unchanged.
func (s *CheckoutService) Pay(ctx context.Context, userID primitive.ObjectID, checkoutID string, req models.PayCheckoutRequest) (*models.Checkout, error) {
	checkout, err := s.load(ctx, userID, checkoutID)
	if err != nil {
		return nil, err
	}
	if req.PaymentStatus != models.PaymentStatusPaid {
		return nil, errInvalidPayStatus
	}

	if _, err := s.checkoutRepo.MarkPaid(ctx, checkout.ID, time.Now().UTC(), req.PaymentDetails); err != nil {
		return nil, apperrors.Internal("Failed to update checkout", err)
	}
	updated, err := s.checkoutRepo.FindByID(ctx, checkout.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to update checkout", err)
	}
	return updated, nil
}

// BuildOrder converts a paid checkout into an order, freezing each item at
// the price the shopper paid.
func BuildOrder(checkout *models.Checkout) *models.Order {
	items := make([]models.OrderItem, 0, len(checkout.CheckoutItems))
	total := 0.0
	for _, it := range checkout.CheckoutItems {
		price := it.FrozenPrice()
		items = append(items, models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Price:     price,
			Size:      it.Size,
			Color:     it.Color,
			Quantity:  it.Quantity,
			Owner:     it.Owner,
		})
		total += price * float64(it.Quantity)
	}

	addr := checkout.ShippingAddress
	return &models.Order{
		User:       checkout.User,
		Checkout:   checkout.ID,
		OrderItems: items,
		ShippingAddress: models.OrderShippingAddress{
			Address:        addr.Address,
			State:          addr.State,
			District:       addr.District,
			PostalCode:     addr.PostalCode,
			Country:        addr.Country,
			ShippingMethod: models.DefaultShippingMethod,
		},
		PaymentMethod:  checkout.PaymentMethod,
		TotalPrice:     roundCents(total),
		IsPaid:         true,
		PaidAt:         checkout.PaidAt,
		PaymentStatus:  models.PaymentStatusPaid,
		PaymentDetails: checkout.PaymentDetails,
		Status:         models.OrderStatusProcessing,
	}
}

// Finalize turns a paid checkout into an order at most once. The conditional
// update on isFinalized is the guard; the order insert and cart removal share
// its transaction.
func (s *CheckoutService) Finalize(ctx context.Context, userID primitive.ObjectID, checkoutID string) (*models.Order, error) {
	checkout, err := s.load(ctx, userID, checkoutID)
	if err != nil {
		return nil, err
	}
	if !checkout.IsPaid {
		return nil, errCheckoutNotPaid
	}
	if checkout.IsFinalized {
		return nil, errCheckoutFinalized
	}

	var order *models.Order
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		order = nil

		ok, err := s.checkoutRepo.MarkFinalized(ctx, checkout.ID, userID, time.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return errCheckoutFinalized
		}

		o := BuildOrder(checkout)
		if err := s.orderRepo.Create(ctx, o); err != nil {
			if stderrors.Is(err, repository.ErrDuplicate) {
				return errCheckoutFinalized
			}
			return err
		}
		if err := s.cartRepo.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		var appErr *apperrors.Error
		if stderrors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Internal("Failed to finalize checkout", err)
	}

	countMetric(s.metrics, awspkg.MetricOrdersCreated, nil)
	logger.Info(ctx, "Order created", zap.String("order_id", order.ID.Hex()), zap.String("checkout_id", checkoutID))
	events.PublishBestEffort(s.publisher, logger.Log, models.DomainEvent{
		Type:       models.EventOrderCreated,
		OrderID:    order.ID.Hex(),
		CheckoutID: checkout.ID.Hex(),
		UserID:     userID.Hex(),
		TotalPrice: order.TotalPrice,
		Status:     order.Status,
	})
	return order, nil
}
