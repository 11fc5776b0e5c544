package services

import (
	"context"
	stderrors "errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/common/logger"
	"github.com/shivamdarekar/TrendsWave/events"
	"github.com/shivamdarekar/TrendsWave/models"
	"github.com/shivamdarekar/TrendsWave/repository"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

var (
	errOrderNotFound      = apperrors.NotFound("Order not found")
	errStatusRequired     = apperrors.BadRequest("Status is required")
	errInvalidOrderStatus = apperrors.BadRequest("Invalid order status")
)

type OrderService struct {
	orderRepo repository.OrderRepository
	publisher events.Publisher
}

func NewOrderService(orderRepo repository.OrderRepository, publisher events.Publisher) *OrderService {
	return &OrderService{orderRepo: orderRepo, publisher: publisher}
}

// NormalizePage clamps pagination input to sane values.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func parseOrderID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errOrderNotFound
	}
	return oid, nil
}

func newOrderListResponse(orders []models.Order, total int64, page, limit int) *models.OrderListResponse {
	if orders == nil {
		orders = []models.Order{}
	}
	return &models.OrderListResponse{
		Orders: orders,
		Meta: models.MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  calculateTotalPages(total, limit),
			HasMore:     total > int64(page*limit),
		},
	}
}

// MyOrders returns the caller's orders, newest first.
func (s *OrderService) MyOrders(ctx context.Context, userID primitive.ObjectID, page, limit int) (*models.OrderListResponse, error) {
	page, limit = NormalizePage(page, limit)
	orders, total, err := s.orderRepo.FindByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch orders", err)
	}
	return newOrderListResponse(orders, total, page, limit), nil
}

// All returns every order, newest first.
func (s *OrderService) All(ctx context.Context, page, limit int) (*models.OrderListResponse, error) {
	page, limit = NormalizePage(page, limit)
	orders, total, err := s.orderRepo.FindAll(ctx, page, limit)
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch orders", err)
	}
	return newOrderListResponse(orders, total, page, limit), nil
}

// Get returns an order owned by the requester. Admins may read any order;
// everyone else gets a 404 for orders that are not theirs.
func (s *OrderService) Get(ctx context.Context, requester *models.User, orderID string) (*models.Order, error) {
	oid, err := parseOrderID(orderID)
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.FindByID(ctx, oid)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errOrderNotFound
		}
		return nil, apperrors.Internal("Failed to fetch order", err)
	}
	if !requester.IsAdmin() && order.User != requester.ID {
		return nil, errOrderNotFound
	}
	return order, nil
}

// UpdateStatus sets the order status. Delivered stamps deliveredAt; any other
// status clears it.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	if status == "" {
		return nil, errStatusRequired
	}
	if !models.ValidOrderStatus(status) {
		return nil, errInvalidOrderStatus
	}
	oid, err := parseOrderID(orderID)
	if err != nil {
		return nil, err
	}

	var deliveredAt *time.Time
	if status == models.OrderStatusDelivered {
		now := time.Now().UTC()
		deliveredAt = &now
	}

	order, err := s.orderRepo.UpdateStatus(ctx, oid, status, deliveredAt)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errOrderNotFound
		}
		return nil, apperrors.Internal("Failed to update order", err)
	}

	logger.Info(ctx, "Order status updated", zap.String("order_id", orderID), zap.String("status", status))
	events.PublishBestEffort(s.publisher, logger.Log, models.DomainEvent{
		Type:       models.EventOrderStatusChanged,
		OrderID:    order.ID.Hex(),
		CheckoutID: order.Checkout.Hex(),
		UserID:     order.User.Hex(),
		TotalPrice: order.TotalPrice,
		Status:     order.Status,
	})
	return order, nil
}

func (s *OrderService) Delete(ctx context.Context, orderID string) error {
	oid, err := parseOrderID(orderID)
	if err != nil {
		return err
	}
	if err := s.orderRepo.Delete(ctx, oid); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errOrderNotFound
		}
		return apperrors.Internal("Failed to delete order", err)
	}
	return nil
}

func calculateTotalPages(total int64, limit int) int {
	if limit == 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
