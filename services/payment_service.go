package services

import (
	"context"
	stderrors "errors"
	"math"
	"strings"
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
	"github.com/shivamdarekar/TrendsWave/payment"
	"github.com/shivamdarekar/TrendsWave/repository"
)

const (
	idemScopePayment = "payment"
	DefaultCurrency  = "INR"
)

var (
	errCheckoutAlreadyPaid = apperrors.BadRequest("Checkout already paid")
	errInvalidAmount       = apperrors.BadRequest("Invalid amount")
	errMissingPayParams    = apperrors.BadRequest("Missing payment params")
	errInvalidSignature    = apperrors.BadRequest("Invalid signature")
	errWebhookDisabled     = apperrors.NotFound("Webhook not configured")
	errWebhookSignature    = apperrors.BadRequest("Invalid webhook signature")
	errPaymentReused       = apperrors.BadRequest("Payment already used for another checkout")
)

// WebhookParser is implemented by gateways that push payment events.
type WebhookParser interface {
	ParseWebhook(payload []byte, sigHeader string) (*payment.WebhookEvent, error)
}

// VerifyResult is returned by Verify. AlreadyProcessed is set when the
// checkout had been paid before this call.
type VerifyResult struct {
	Checkout         *models.Checkout
	AlreadyProcessed bool
}

type PaymentService struct {
	checkoutRepo repository.CheckoutRepository
	gateway      payment.Gateway
	tx           database.Transactor
	idem         *cache.IdempotencyStore
	publisher    events.Publisher
	metrics      awspkg.MetricsRecorder
	currency     string
}

func NewPaymentService(
	checkoutRepo repository.CheckoutRepository,
	gateway payment.Gateway,
	tx database.Transactor,
	idem *cache.IdempotencyStore,
	publisher events.Publisher,
	metrics awspkg.MetricsRecorder,
	currency string,
) *PaymentService {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &PaymentService{
		checkoutRepo: checkoutRepo,
		gateway:      gateway,
		tx:           tx,
		idem:         idem,
		publisher:    publisher,
		metrics:      metrics,
		currency:     strings.ToUpper(currency),
	}
}

func (s *PaymentService) findCheckout(ctx context.Context, checkoutID string) (*models.Checkout, error) {
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
	return checkout, nil
}

// CreateOrder opens a gateway order for the checkout total in minor units.
func (s *PaymentService) CreateOrder(ctx context.Context, userID primitive.ObjectID, checkoutID string) (*models.PaymentOrder, error) {
	checkout, err := s.findCheckout(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if checkout.User != userID {
		return nil, errCheckoutNotOwned
	}
	if checkout.IsPaid {
		return nil, errCheckoutAlreadyPaid
	}

	amount := int64(math.Round(checkout.TotalPrice * 100))
	if amount <= 0 {
		return nil, errInvalidAmount
	}

	order, err := s.gateway.CreateOrder(ctx, payment.CreateOrderInput{
		Amount:   amount,
		Currency: s.currency,
		Receipt:  "rcpt_" + checkout.ID.Hex(),
		Notes: map[string]string{
			"checkoutId": checkout.ID.Hex(),
			"userId":     userID.Hex(),
		},
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to create payment order", err)
	}

	return &models.PaymentOrder{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    s.gateway.KeyID(),
		Provider: s.gateway.Name(),
	}, nil
}

// Verify confirms a payment with the gateway and marks the checkout paid.
// Only the first successful verification changes the checkout.
func (s *PaymentService) Verify(ctx context.Context, userID primitive.ObjectID, req models.VerifyPaymentRequest) (*VerifyResult, error) {
	if req.OrderID == "" || req.PaymentID == "" || (req.Signature == "" && s.gateway.Name() == payment.ProviderRazorpay) {
		return nil, errMissingPayParams
	}

	checkout, err := s.findCheckout(ctx, req.CheckoutID)
	if err != nil {
		return nil, err
	}
	if checkout.IsPaid {
		return &VerifyResult{Checkout: checkout, AlreadyProcessed: true}, nil
	}
	if checkout.User != userID {
		return nil, errCheckoutNotOwned
	}

	if seen, err := s.idem.Get(ctx, idemScopePayment, req.PaymentID); err == nil && seen != "" && seen != checkout.ID.Hex() {
		return nil, errPaymentReused
	}

	err = s.gateway.Verify(ctx, payment.VerifyInput{
		CheckoutID: checkout.ID.Hex(),
		OrderID:    req.OrderID,
		PaymentID:  req.PaymentID,
		Signature:  req.Signature,
	})
	if err != nil {
		countMetric(s.metrics, awspkg.MetricPaymentFailed, map[string]string{"Provider": s.gateway.Name()})
		if stderrors.Is(err, payment.ErrInvalidSignature) {
			logger.Warn(ctx, "Payment signature rejected", zap.String("checkout_id", req.CheckoutID))
			return nil, errInvalidSignature
		}
		return nil, apperrors.Internal("Verification failed", err)
	}

	if err := s.bindPayment(ctx, req.PaymentID, checkout.ID); err != nil {
		return nil, err
	}

	details := models.PaymentDetails{
		"provider":  s.gateway.Name(),
		"orderId":   req.OrderID,
		"paymentId": req.PaymentID,
		"signature": req.Signature,
	}
	result, err := s.markPaid(ctx, checkout.ID, details)
	if err != nil {
		return nil, err
	}

	if !result.AlreadyProcessed {
		s.paymentSucceeded(ctx, result.Checkout)
	}
	return result, nil
}

// bindPayment claims a payment id for one checkout. A payment id can only
// ever pay for one checkout; the SETNX makes concurrent verifies agree.
func (s *PaymentService) bindPayment(ctx context.Context, paymentID string, checkoutID primitive.ObjectID) error {
	won, err := s.idem.Set(ctx, idemScopePayment, paymentID, checkoutID.Hex())
	if err != nil {
		logger.Warn(ctx, "Failed to store idempotency key", zap.Error(err))
		return nil
	}
	if won {
		return nil
	}
	owner, err := s.idem.Get(ctx, idemScopePayment, paymentID)
	if err != nil {
		return apperrors.Internal("Verification failed", err)
	}
	if owner != checkoutID.Hex() {
		logger.Warn(ctx, "Payment id reused", zap.String("checkout_id", checkoutID.Hex()), zap.String("bound_to", owner))
		return errPaymentReused
	}
	return nil
}

// markPaid flips isPaid inside a transaction and returns the stored checkout.
func (s *PaymentService) markPaid(ctx context.Context, checkoutID primitive.ObjectID, details models.PaymentDetails) (*VerifyResult, error) {
	var result *VerifyResult
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.checkoutRepo.MarkPaid(ctx, checkoutID, time.Now().UTC(), details)
		if err != nil {
			return err
		}
		checkout, err := s.checkoutRepo.FindByID(ctx, checkoutID)
		if err != nil {
			return err
		}
		result = &VerifyResult{Checkout: checkout, AlreadyProcessed: !ok}
		return nil
	})
	if err != nil {
		return nil, apperrors.Internal("Verification failed", err)
	}
	return result, nil
}

func (s *PaymentService) paymentSucceeded(ctx context.Context, checkout *models.Checkout) {
	countMetric(s.metrics, awspkg.MetricPaymentSucceeded, map[string]string{"Provider": s.gateway.Name()})
	logger.Info(ctx, "Payment verified", zap.String("checkout_id", checkout.ID.Hex()))
	events.PublishBestEffort(s.publisher, logger.Log, models.DomainEvent{
		Type:       models.EventPaymentVerified,
		CheckoutID: checkout.ID.Hex(),
		UserID:     checkout.User.Hex(),
		TotalPrice: checkout.TotalPrice,
	})
}

// HandleWebhook processes a gateway push notification. Events other than a
// succeeded payment intent are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	parser, ok := s.gateway.(WebhookParser)
	if !ok {
		return errWebhookDisabled
	}
	event, err := parser.ParseWebhook(payload, sigHeader)
	if err != nil {
		logger.Warn(ctx, "Webhook signature verification failed", zap.Error(err))
		return errWebhookSignature
	}

	logger.Info(ctx, "Processing webhook", zap.String("event_type", event.Type), zap.String("event_id", event.ID))
	if event.Type != payment.EventPaymentIntentSucceeded || event.CheckoutID == "" {
		return nil
	}

	checkoutID, err := primitive.ObjectIDFromHex(event.CheckoutID)
	if err != nil {
		logger.Warn(ctx, "Webhook names an invalid checkout", zap.String("checkout_id", event.CheckoutID))
		return nil
	}
	result, err := s.markPaid(ctx, checkoutID, models.PaymentDetails{
		"provider":  s.gateway.Name(),
		"orderId":   event.IntentID,
		"paymentId": event.IntentID,
		"eventId":   event.ID,
	})
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if !result.AlreadyProcessed {
		s.paymentSucceeded(ctx, result.Checkout)
	}
	return nil
}
