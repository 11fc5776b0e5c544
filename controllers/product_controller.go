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

type ProductService interface {
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	BestSeller(ctx context.Context) (*models.Product, error)
	NewArrivals(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Similar(ctx context.Context, id string) ([]models.Product, error)
	AdminList(ctx context.Context) ([]models.Product, error)
	Create(ctx context.Context, owner primitive.ObjectID, req models.ProductRequest) (*models.Product, error)
	Update(ctx context.Context, id string, req models.ProductUpdateRequest) (*models.Product, error)
	Delete(ctx context.Context, id string) error
}

type ProductController struct {
	products  ProductService
	validator *RequestValidator
}

func NewProductController(products ProductService, validator *RequestValidator) *ProductController {
	return &ProductController{products: products, validator: validator}
}

// GetProducts lists the catalog with the query-string filters applied.
func (pc *ProductController) GetProducts(c *gin.Context) {
	filter, err := pc.validator.ParseProductFilter(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	products, err := pc.products.List(c.Request.Context(), filter)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (pc *ProductController) BestSeller(c *gin.Context) {
	product, err := pc.products.BestSeller(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (pc *ProductController) NewArrivals(c *gin.Context) {
	products, err := pc.products.NewArrivals(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (pc *ProductController) GetProduct(c *gin.Context) {
	product, err := pc.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (pc *ProductController) Similar(c *gin.Context) {
	products, err := pc.products.Similar(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (pc *ProductController) AdminList(c *gin.Context) {
	products, err := pc.products.AdminList(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (pc *ProductController) CreateProduct(c *gin.Context) {
	var req models.ProductRequest
	if err := bindJSON(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}

	product, err := pc.products.Create(c.Request.Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (pc *ProductController) UpdateProduct(c *gin.Context) {
	var req models.ProductUpdateRequest
	if err := bindJSON(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}

	product, err := pc.products.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (pc *ProductController) DeleteProduct(c *gin.Context) {
	if err := pc.products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product removed"})
}
