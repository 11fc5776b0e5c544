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

const GuestIDHeader = "X-Guest-ID"

type CartService interface {
	Add(ctx context.Context, id models.CartIdentity, req models.AddToCartRequest) (*models.Cart, bool, error)
	Update(ctx context.Context, id models.CartIdentity, req models.UpdateCartRequest) (*models.Cart, error)
	Remove(ctx context.Context, id models.CartIdentity, req models.RemoveFromCartRequest) (*models.Cart, error)
	Get(ctx context.Context, id models.CartIdentity) (*models.Cart, error)
	Merge(ctx context.Context, userID primitive.ObjectID, guestID string) (*models.Cart, error)
}

type CartController struct {
	carts CartService
}

func NewCartController(carts CartService) *CartController {
	return &CartController{carts: carts}
}

// cartIdentity never trusts a client-sent user id: the user comes from the
// access token only. Guests are identified by body, query or header, in
// that order.
func cartIdentity(c *gin.Context, bodyGuestID string) models.CartIdentity {
	if user := middleware.CurrentUser(c); user != nil {
		id := user.ID
		return models.CartIdentity{UserID: &id}
	}
	guestID := strings.TrimSpace(bodyGuestID)
	if guestID == "" {
		guestID = strings.TrimSpace(c.Query("guestId"))
	}
	if guestID == "" {
		guestID = strings.TrimSpace(c.GetHeader(GuestIDHeader))
	}
	return models.CartIdentity{GuestID: guestID}
}

func (cc *CartController) AddItem(c *gin.Context) {
	var req models.AddToCartRequest
	if err := bindJSON(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}

	cart, created, err := cc.carts.Add(c.Request.Context(), cartIdentity(c, req.GuestID), req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, cart)
}

func (cc *CartController) UpdateItem(c *gin.Context) {
	var req models.UpdateCartRequest
	if err := bindJSON(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}

	cart, err := cc.carts.Update(c.Request.Context(), cartIdentity(c, req.GuestID), req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (cc *CartController) RemoveItem(c *gin.Context) {
	var req models.RemoveFromCartRequest
	if err := bindJSON(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}

	cart, err := cc.carts.Remove(c.Request.Context(), cartIdentity(c, req.GuestID), req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (cc *CartController) GetCart(c *gin.Context) {
	cart, err := cc.carts.Get(c.Request.Context(), cartIdentity(c, ""))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// MergeCart runs behind Protect.
func (cc *CartController) MergeCart(c *gin.Context) {
	var req models.MergeCartRequest
	if err := bindJSON(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}

	cart, err := cc.carts.Merge(c.Request.Context(), middleware.CurrentUser(c).ID, strings.TrimSpace(req.GuestID))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}
