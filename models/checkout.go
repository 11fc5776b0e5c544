package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

type CheckoutItem struct {
	ProductID     primitive.ObjectID `json:"productId" bson:"productId"`
	Name          string             `json:"name" bson:"name"`
	Image         string             `json:"image" bson:"image"`
	Price         float64            `json:"price" bson:"price"`
	DiscountPrice *float64           `json:"discountPrice,omitempty" bson:"discountPrice,omitempty"`
	Quantity      int                `json:"quantity" bson:"quantity"`
	Size          string             `json:"size,omitempty" bson:"size,omitempty"`
	Color         string             `json:"color,omitempty" bson:"color,omitempty"`
	Owner         primitive.ObjectID `json:"owner,omitempty" bson:"owner,omitempty"`
}

// FrozenPrice is the unit price an order keeps forever: the discount price
// when one was set (and non-negative), otherwise the list price.
func (i CheckoutItem) FrozenPrice() float64 {
	if i.DiscountPrice != nil && *i.DiscountPrice >= 0 {
		return *i.DiscountPrice
	}
	return i.Price
}

type CheckoutShippingAddress struct {
	Address    string `json:"address" bson:"address" binding:"required"`
	State      string `json:"state" bson:"state" binding:"required"`
	District   string `json:"district" bson:"district"`
	PostalCode string `json:"postalCode" bson:"postalCode" binding:"required"`
	Country    string `json:"country" bson:"country" binding:"required"`
}

// PaymentDetails is whatever the gateway reported. It is stored as given.
type PaymentDetails map[string]interface{}

type Checkout struct {
	ID              primitive.ObjectID      `json:"_id" bson:"_id,omitempty"`
	User            primitive.ObjectID      `json:"user" bson:"user"`
	CheckoutItems   []CheckoutItem          `json:"checkoutItems" bson:"checkoutItems"`
	ShippingAddress CheckoutShippingAddress `json:"shippingAddress" bson:"shippingAddress"`
	PaymentMethod   string                  `json:"paymentMethod" bson:"paymentMethod"`
	TotalPrice      float64                 `json:"totalPrice" bson:"totalPrice"`
	IsPaid          bool                    `json:"isPaid" bson:"isPaid"`
	PaidAt          *time.Time              `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
	PaymentStatus   string                  `json:"paymentStatus" bson:"paymentStatus"`
	PaymentDetails  PaymentDetails          `json:"paymentDetails,omitempty" bson:"paymentDetails,omitempty"`
	IsFinalized     bool                    `json:"isFinalized" bson:"isFinalized"`
	FinalizedAt     *time.Time              `json:"finalizedAt,omitempty" bson:"finalizedAt,omitempty"`
	CreatedAt       time.Time               `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt" bson:"updatedAt"`
}

type CreateCheckoutRequest struct {
	CheckoutItems   []CheckoutItemInput     `json:"checkoutItems" binding:"dive"`
	ShippingAddress CheckoutShippingAddress `json:"shippingAddress" binding:"required"`
	PaymentMethod   string                  `json:"paymentMethod" binding:"required"`
	TotalPrice      float64                 `json:"totalPrice" binding:"gte=0"`
}

// CheckoutItemInput accepts the product id as a hex string.
type CheckoutItemInput struct {
	ProductID     string   `json:"productId" binding:"required"`
	Name          string   `json:"name" binding:"required"`
	Image         string   `json:"image"`
	Price         float64  `json:"price" binding:"gte=0"`
	DiscountPrice *float64 `json:"discountPrice"`
	Quantity      int      `json:"quantity" binding:"required,min=1"`
	Size          string   `json:"size"`
	Color         string   `json:"color"`
	Owner         string   `json:"owner"`
}

type PayCheckoutRequest struct {
	PaymentStatus  string         `json:"paymentStatus"`
	PaymentDetails PaymentDetails `json:"paymentDetails"`
}
