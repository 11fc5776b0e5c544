package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/middleware"
	"github.com/shivamdarekar/TrendsWave/models"
	"github.com/shivamdarekar/TrendsWave/services"
)

const (
	StripeSignatureHeader = "Stripe-Signature"
	maxWebhookBytes       = 64 << 10
)

var errWebhookTooLarge = apperrors.New(http.StatusRequestEntityTooLarge, "Webhook payload too large", nil)

type PaymentService interface {
	CreateOrder(ctx context.Context, userID primitive.ObjectID, checkoutID string) (*models.PaymentOrder, error)
	Verify(ctx context.Context, userID primitive.ObjectID, req models.VerifyPaymentRequest) (*services.VerifyResult, error)
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error
}

type PaymentController struct {
	payments PaymentService
}

func NewPaymentController(payments PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

func (pc *PaymentController) CreateOrder(c *gin.Context) {
	var req models.CreatePaymentOrderRequest
	if err := bindJSON(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}

	order, err := pc.payments.CreateOrder(c.Request.Context(), middleware.CurrentUser(c).ID, req.CheckoutID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (pc *PaymentController) Verify(c *gin.Context) {
	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Missing payment params"))
		return
	}

	result, err := pc.payments.Verify(c.Request.Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if result.AlreadyProcessed {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment already processed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "checkout": result.Checkout})
}

// Webhook needs the raw body: the signature covers the exact bytes sent.
func (pc *PaymentController) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes+1))
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid webhook payload"))
		return
	}
	if len(payload) > maxWebhookBytes {
		apperrors.Respond(c, errWebhookTooLarge)
		return
	}

	if err := pc.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader(StripeSignatureHeader)); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
