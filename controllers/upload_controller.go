package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/middleware"
	"github.com/shivamdarekar/TrendsWave/models"
	"github.com/shivamdarekar/TrendsWave/services"
)

const uploadField = "image"

type UploadService interface {
	Upload(ctx context.Context, userID primitive.ObjectID, file *services.UploadFile) (*models.UploadResponse, error)
	UploadToProduct(ctx context.Context, userID primitive.ObjectID, productID string, file *services.UploadFile) (*models.Product, error)
	DeleteProductImage(ctx context.Context, productID, publicID string) (*models.Product, error)
}

type UploadController struct {
	uploads UploadService
}

func NewUploadController(uploads UploadService) *UploadController {
	return &UploadController{uploads: uploads}
}

// withUpload opens the multipart image and hands it to fn. The file is closed
// once fn returns.
func withUpload(c *gin.Context, fn func(file *services.UploadFile)) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("No file uploaded"))
		return
	}
	f, err := header.Open()
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("No file uploaded"))
		return
	}
	defer f.Close()

	fn(&services.UploadFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	})
}

func (uc *UploadController) Upload(c *gin.Context) {
	withUpload(c, func(file *services.UploadFile) {
		resp, err := uc.uploads.Upload(c.Request.Context(), middleware.CurrentUser(c).ID, file)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})
}

func (uc *UploadController) UploadToProduct(c *gin.Context) {
	withUpload(c, func(file *services.UploadFile) {
		product, err := uc.uploads.UploadToProduct(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("productId"), file)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Image uploaded successfully", "product": product})
	})
}

func (uc *UploadController) DeleteProductImage(c *gin.Context) {
	var req models.DeleteImageRequest
	_ = c.ShouldBindJSON(&req)

	product, err := uc.uploads.DeleteProductImage(c.Request.Context(), c.Param("productId"), req.PublicID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully", "product": product})
}
