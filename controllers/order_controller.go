package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/middleware"
	"github.com/shivamdarekar/TrendsWave/models"
)

type OrderService interface {
	MyOrders(ctx context.Context, userID primitive.ObjectID, page, limit int) (*models.OrderListResponse, error)
	All(ctx context.Context, page, limit int) (*models.OrderListResponse, error)
	Get(ctx context.Context, requester *models.User, orderID string) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID, status string) (*models.Order, error)
	Delete(ctx context.Context, orderID string) error
}

type OrderController struct {
	orders    OrderService
	validator *RequestValidator
}

func NewOrderController(orders OrderService, validator *RequestValidator) *OrderController {
	return &OrderController{orders: orders, validator: validator}
}

func (oc *OrderController) MyOrders(c *gin.Context) {
	page, limit := oc.validator.ParsePagination(c)
	resp, err := oc.orders.MyOrders(c.Request.Context(), middleware.CurrentUser(c).ID, page, limit)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.orders.Get(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (oc *OrderController) AllOrders(c *gin.Context) {
	page, limit := oc.validator.ParsePagination(c)
	resp, err := oc.orders.All(c.Request.Context(), page, limit)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (oc *OrderController) UpdateStatus(c *gin.Context) {
	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Status is required"))
		return
	}

	order, err := oc.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (oc *OrderController) DeleteOrder(c *gin.Context) {
	if err := oc.orders.Delete(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order removed"})
}
