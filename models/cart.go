package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem is a snapshot of the product taken when it was added.
type CartItem struct {
	ProductID     primitive.ObjectID `json:"productId" bson:"productId"`
	Name          string             `json:"name" bson:"name"`
	Image         string             `json:"image" bson:"image"`
	Price         float64            `json:"price" bson:"price"`
	DiscountPrice *float64           `json:"discountPrice,omitempty" bson:"discountPrice,omitempty"`
	Size          string             `json:"size" bson:"size"`
	Color         string             `json:"color" bson:"color"`
	Quantity      int                `json:"quantity" bson:"quantity"`
	Owner         primitive.ObjectID `json:"owner,omitempty" bson:"owner,omitempty"`
}

// Matches reports whether the item is the line identified by (productID, size, color).
func (i CartItem) Matches(productID primitive.ObjectID, size, color string) bool {
	return i.ProductID == productID && i.Size == size && i.Color == color
}

// LineTotal is the effective unit price times quantity. A quantity below one
// counts as one.
func (i CartItem) LineTotal() float64 {
	qty := i.Quantity
	if qty < 1 {
		qty = 1
	}
	unit := i.Price
	if i.DiscountPrice != nil {
		unit = *i.DiscountPrice
	}
	return unit * float64(qty)
}

type Cart struct {
	ID         primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	User       *primitive.ObjectID `json:"user,omitempty" bson:"user,omitempty"`
	GuestID    string              `json:"guestId,omitempty" bson:"guestId,omitempty"`
	Products   []CartItem          `json:"products" bson:"products"`
	TotalPrice float64             `json:"totalPrice" bson:"totalPrice"`
	CreatedAt  time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// CalculateTotal sums the line totals, rounded to cents.
func CalculateTotal(items []CartItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.LineTotal()
	}
	return math.Round(total*100) / 100
}

// Recalculate refreshes TotalPrice from the current line items.
func (c *Cart) Recalculate() {
	c.TotalPrice = CalculateTotal(c.Products)
}

// FindItem returns the index of the matching line, or -1.
func (c *Cart) FindItem(productID primitive.ObjectID, size, color string) int {
	for i, item := range c.Products {
		if item.Matches(productID, size, color) {
			return i
		}
	}
	return -1
}

// MergeItems folds incoming lines into c: lines with the same
// (productId, size, color) add their quantities, others are appended.
func (c *Cart) MergeItems(incoming []CartItem) {
	for _, item := range incoming {
		if idx := c.FindItem(item.ProductID, item.Size, item.Color); idx >= 0 {
			c.Products[idx].Quantity += item.Quantity
			continue
		}
		c.Products = append(c.Products, item)
	}
	c.Recalculate()
}

// CartIdentity says whose cart a request is about. Exactly one of UserID and
// GuestID is used: the user wins when both are set.
type CartIdentity struct {
	UserID  *primitive.ObjectID
	GuestID string
}

func (id CartIdentity) IsZero() bool { return id.UserID == nil && id.GuestID == "" }

type AddToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	GuestID   string `json:"guestId"`
}

type UpdateCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	GuestID   string `json:"guestId"`
}

type RemoveFromCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	GuestID   string `json:"guestId"`
}

type MergeCartRequest struct {
	GuestID string `json:"guestId" binding:"required"`
}
