package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/middleware"
	"github.com/shivamdarekar/TrendsWave/models"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type CheckoutService interface {
	Create(ctx context.Context, userID primitive.ObjectID, req models.CreateCheckoutRequest, idemKey string) (*models.Checkout, error)
	Pay(ctx context.Context, userID primitive.ObjectID, checkoutID string, req models.PayCheckoutRequest) (*models.Checkout, error)
	Finalize(ctx context.Context, userID primitive.ObjectID, checkoutID string) (*models.Order, error)
}

type CheckoutController struct {
	checkouts CheckoutService
}

func NewCheckoutController(checkouts CheckoutService) *CheckoutController {
	return &CheckoutController{checkouts: checkouts}
}

func (cc *CheckoutController) CreateCheckout(c *gin.Context) {
	var req models.CreateCheckoutRequest
	if err := bindJSON(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}

	idemKey := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	checkout, err := cc.checkouts.Create(c.Request.Context(), middleware.CurrentUser(c).ID, req, idemKey)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}

func (cc *CheckoutController) PayCheckout(c *gin.Context) {
	var req models.PayCheckoutRequest
	if err := bindJSON(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}

	checkout, err := cc.checkouts.Pay(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"), req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, checkout)
}

func (cc *CheckoutController) FinalizeCheckout(c *gin.Context) {
	order, err := cc.checkouts.Finalize(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Order finalized", "order": order})
}
