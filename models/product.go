package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductImage struct {
	URL      string `json:"url" bson:"url"`
	PublicID string `json:"publicId" bson:"publicId"`
	AltText  string `json:"altText" bson:"altText"`
}

type Dimensions struct {
	Length float64 `json:"length" bson:"length"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

type Product struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name"`
	Description     string             `json:"description" bson:"description"`
	Price           float64            `json:"price" bson:"price"`
	DiscountPrice   *float64           `json:"discountPrice,omitempty" bson:"discountPrice,omitempty"`
	CountInStock    int                `json:"countInStock" bson:"countInStock"`
	SKU             string             `json:"sku" bson:"sku"`
	Category        string             `json:"category" bson:"category"`
	Brand           string             `json:"brand,omitempty" bson:"brand,omitempty"`
	Sizes           []string           `json:"sizes" bson:"sizes"`
	Colors          []string           `json:"colors" bson:"colors"`
	Collections     string             `json:"collections" bson:"collections"`
	Material        string             `json:"material,omitempty" bson:"material,omitempty"`
	Gender          string             `json:"gender,omitempty" bson:"gender,omitempty"`
	Images          []ProductImage     `json:"images" bson:"images"`
	IsFeatured      bool               `json:"isFeatured" bson:"isFeatured"`
	IsPublished     bool               `json:"isPublished" bson:"isPublished"`
	Rating          float64            `json:"rating" bson:"rating"`
	NumReviews      int                `json:"numReviews" bson:"numReviews"`
	Tags            []string           `json:"tags,omitempty" bson:"tags,omitempty"`
	Owner           primitive.ObjectID `json:"owner" bson:"owner"`
	MetaTitle       string             `json:"metaTitle,omitempty" bson:"metaTitle,omitempty"`
	MetaDescription string             `json:"metaDescription,omitempty" bson:"metaDescription,omitempty"`
	MetaKeywords    string             `json:"metaKeywords,omitempty" bson:"metaKeywords,omitempty"`
	Dimensions      *Dimensions        `json:"dimensions,omitempty" bson:"dimensions,omitempty"`
	Weight          float64            `json:"weight,omitempty" bson:"weight,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// EffectivePrice is the price a shopper pays: the discount price when set.
func (p *Product) EffectivePrice() float64 {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// PrimaryImage returns the URL of the first image, or "".
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// ProductRequest is the body for create. Update uses ProductUpdateRequest so
// absent fields are left alone.
type ProductRequest struct {
	Name            string         `json:"name" binding:"required,max=200"`
	Description     string         `json:"description" binding:"required"`
	Price           float64        `json:"price" binding:"required,gt=0"`
	DiscountPrice   *float64       `json:"discountPrice" binding:"omitempty,gte=0"`
	CountInStock    int            `json:"countInStock" binding:"gte=0"`
	SKU             string         `json:"sku" binding:"required"`
	Category        string         `json:"category" binding:"required"`
	Brand           string         `json:"brand"`
	Sizes           []string       `json:"sizes" binding:"required,min=1"`
	Colors          []string       `json:"colors" binding:"required,min=1"`
	Collections     string         `json:"collections" binding:"required"`
	Material        string         `json:"material"`
	Gender          string         `json:"gender" binding:"omitempty,oneof=Men Women Unisex"`
	Images          []ProductImage `json:"images"`
	IsFeatured      bool           `json:"isFeatured"`
	IsPublished     bool           `json:"isPublished"`
	Tags            []string       `json:"tags"`
	MetaTitle       string         `json:"metaTitle"`
	MetaDescription string         `json:"metaDescription"`
	MetaKeywords    string         `json:"metaKeywords"`
	Dimensions      *Dimensions    `json:"dimensions"`
	Weight          float64        `json:"weight" binding:"gte=0"`
}

type ProductUpdateRequest struct {
	Name            *string         `json:"name" bson:"name,omitempty" binding:"omitempty,max=200"`
	Description     *string         `json:"description" bson:"description,omitempty"`
	Price           *float64        `json:"price" bson:"price,omitempty" binding:"omitempty,gt=0"`
	DiscountPrice   *float64        `json:"discountPrice" bson:"discountPrice,omitempty" binding:"omitempty,gte=0"`
	CountInStock    *int            `json:"countInStock" bson:"countInStock,omitempty" binding:"omitempty,gte=0"`
	SKU             *string         `json:"sku" bson:"sku,omitempty"`
	Category        *string         `json:"category" bson:"category,omitempty"`
	Brand           *string         `json:"brand" bson:"brand,omitempty"`
	Sizes           *[]string       `json:"sizes" bson:"sizes,omitempty"`
	Colors          *[]string       `json:"colors" bson:"colors,omitempty"`
	Collections     *string         `json:"collections" bson:"collections,omitempty"`
	Material        *string         `json:"material" bson:"material,omitempty"`
	Gender          *string         `json:"gender" bson:"gender,omitempty" binding:"omitempty,oneof=Men Women Unisex"`
	Images          *[]ProductImage `json:"images" bson:"images,omitempty"`
	IsFeatured      *bool           `json:"isFeatured" bson:"isFeatured,omitempty"`
	IsPublished     *bool           `json:"isPublished" bson:"isPublished,omitempty"`
	Tags            *[]string       `json:"tags" bson:"tags,omitempty"`
	MetaTitle       *string         `json:"metaTitle" bson:"metaTitle,omitempty"`
	MetaDescription *string         `json:"metaDescription" bson:"metaDescription,omitempty"`
	MetaKeywords    *string         `json:"metaKeywords" bson:"metaKeywords,omitempty"`
	Dimensions      *Dimensions     `json:"dimensions" bson:"dimensions,omitempty"`
	Weight          *float64        `json:"weight" bson:"weight,omitempty" binding:"omitempty,gte=0"`
}

// ProductFilter is the parsed form of the catalog query string.
type ProductFilter struct {
	Collection string
	Category   string
	Materials  []string
	Brands     []string
	Sizes      []string
	Colors     []string
	Genders    []string
	MinPrice   *float64
	MaxPrice   *float64
	Search     string
	SortBy     string
	Limit      int64
	Page       int64
}

const (
	SortPriceAsc   = "priceAsc"
	SortPriceDesc  = "priceDesc"
	SortPopularity = "popularity"
)
