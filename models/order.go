package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderStatusProcessing = "Processing"
	OrderStatusShipped    = "Shipped"
	OrderStatusDelivered  = "Delivered"
	OrderStatusCancelled  = "Cancelled"

	DefaultShippingMethod = "Standard"
)

// ValidOrderStatus reports whether s is one of the order status values.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type OrderItem struct {
	ProductID primitive.ObjectID `json:"productId" bson:"productId"`
	Name      string             `json:"name" bson:"name"`
	Image     string             `json:"image" bson:"image"`
	Price     float64            `json:"price" bson:"price"`
	Size      string             `json:"size,omitempty" bson:"size,omitempty"`
	Color     string             `json:"color,omitempty" bson:"color,omitempty"`
	Quantity  int                `json:"quantity" bson:"quantity"`
	Owner     primitive.ObjectID `json:"owner,omitempty" bson:"owner,omitempty"`
}

type OrderShippingAddress struct {
	Address        string `json:"address" bson:"address"`
	City           string `json:"city,omitempty" bson:"city,omitempty"`
	State          string `json:"state,omitempty" bson:"state,omitempty"`
	District       string `json:"district,omitempty" bson:"district,omitempty"`
	PostalCode     string `json:"postalCode" bson:"postalCode"`
	Country        string `json:"country" bson:"country"`
	ShippingMethod string `json:"shippingMethod" bson:"shippingMethod"`
}

type Order struct {
	ID              primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	User            primitive.ObjectID   `json:"user" bson:"user"`
	Checkout        primitive.ObjectID   `json:"checkout" bson:"checkout"`
	OrderItems      []OrderItem          `json:"orderItems" bson:"orderItems"`
	ShippingAddress OrderShippingAddress `json:"shippingAddress" bson:"shippingAddress"`
	PaymentMethod   string               `json:"paymentMethod" bson:"paymentMethod"`
	TotalPrice      float64              `json:"totalPrice" bson:"totalPrice"`
	IsPaid          bool                 `json:"isPaid" bson:"isPaid"`
	PaidAt          *time.Time           `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
	IsDelivered     bool                 `json:"isDelivered" bson:"isDelivered"`
	DeliveredAt     *time.Time           `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
	PaymentStatus   string               `json:"paymentStatus" bson:"paymentStatus"`
	PaymentDetails  PaymentDetails       `json:"paymentDetails,omitempty" bson:"paymentDetails,omitempty"`
	Status          string               `json:"status" bson:"status"`
	CreatedAt       time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt" bson:"updatedAt"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// MetaData describes one page of a paginated listing.
type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int   `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

type OrderListResponse struct {
	Orders []Order  `json:"orders"`
	Meta   MetaData `json:"meta"`
}
