package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/shivamdarekar/TrendsWave/cache"
	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/common/logger"
	"github.com/shivamdarekar/TrendsWave/models"
	awspkg "github.com/shivamdarekar/TrendsWave/pkg/aws"
	"github.com/shivamdarekar/TrendsWave/repository"
	"github.com/shivamdarekar/TrendsWave/storage"
)

// DefaultMaxUploadBytes caps a single image at 10 MiB.
const DefaultMaxUploadBytes int64 = 10 << 20

const uploadKeyPrefix = "products/"

var (
	errNoFile            = apperrors.BadRequest("No file uploaded")
	errUnsupportedImage  = apperrors.BadRequest("Only jpeg, png, webp, gif, heic and heif images are allowed")
	errPublicIDRequired  = apperrors.BadRequest("publicId is required")
	errNoProductImages   = apperrors.BadRequest("At least one product image is required")
	errImageNotOnProduct = apperrors.NotFound("Image not found on product")
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/heic": ".heic",
	"image/heif": ".heif",
}

var allowedImageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".heic": "image/heic",
	".heif": "image/heif",
}

// UploadFile is one multipart file as handed over by the controller.
type UploadFile struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadService struct {
	storage        storage.Storage
	tempUploadRepo repository.TempUploadRepository
	productRepo    repository.ProductRepository
	images         ImageRemover
	cache          *cache.ProductCache
	metrics        awspkg.MetricsRecorder
	maxBytes       int64
}

func NewUploadService(
	store storage.Storage,
	tempUploadRepo repository.TempUploadRepository,
	productRepo repository.ProductRepository,
	images ImageRemover,
	productCache *cache.ProductCache,
	metrics awspkg.MetricsRecorder,
	maxBytes int64,
) *UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadService{
		storage:        store,
		tempUploadRepo: tempUploadRepo,
		productRepo:    productRepo,
		images:         images,
		cache:          productCache,
		metrics:        metrics,
		maxBytes:       maxBytes,
	}
}

// resolveImageType accepts a file by its declared content type, falling back
// to the extension. It returns the canonical content type and extension.
func resolveImageType(filename, contentType string) (string, string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))

	if canonicalExt, ok := allowedImageTypes[ct]; ok {
		if _, extOK := allowedImageExts[ext]; !extOK {
			ext = canonicalExt
		}
		return ct, ext, true
	}
	if ct2, ok := allowedImageExts[ext]; ok {
		return ct2, ext, true
	}
	return "", "", false
}

func (s *UploadService) validate(file *UploadFile) (string, string, error) {
	if file == nil || file.Body == nil {
		return "", "", errNoFile
	}
	if file.Size > s.maxBytes {
		return "", "", apperrors.BadRequest(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1<<20)))
	}
	contentType, ext, ok := resolveImageType(file.Filename, file.ContentType)
	if !ok {
		return "", "", errUnsupportedImage
	}
	return contentType, ext, nil
}

// Upload stores the image and records it as a temp upload owned by userID.
func (s *UploadService) Upload(ctx context.Context, userID primitive.ObjectID, file *UploadFile) (*models.UploadResponse, error) {
	contentType, ext, err := s.validate(file)
	if err != nil {
		return nil, err
	}

	key := uploadKeyPrefix + uuid.NewString() + ext
	url, err := s.storage.Put(ctx, key, contentType, file.Body, file.Size)
	if err != nil {
		return nil, apperrors.Internal("Image upload failed", err)
	}

	upload := &models.TempUpload{
		URL:       url,
		PublicID:  key,
		User:      userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.tempUploadRepo.Create(ctx, upload); err != nil {
		// The cleanup job cannot find an object without its record.
		_ = s.storage.Delete(ctx, key)
		return nil, apperrors.Internal("Image upload failed", err)
	}

	countMetric(s.metrics, awspkg.MetricImagesUploaded, nil)
	logger.Info(ctx, "Image uploaded", zap.String("public_id", key), zap.Int64("size", file.Size))
	return &models.UploadResponse{Message: "Image uploaded successfully", ImageURL: url, PublicID: key}, nil
}

// UploadToProduct stores the image and appends it to the product.
func (s *UploadService) UploadToProduct(ctx context.Context, userID primitive.ObjectID, productID string, file *UploadFile) (*models.Product, error) {
	oid, err := ParseProductID(productID)
	if err != nil {
		return nil, err
	}
	contentType, ext, err := s.validate(file)
	if err != nil {
		return nil, err
	}

	key := uploadKeyPrefix + uuid.NewString() + ext
	url, err := s.storage.Put(ctx, key, contentType, file.Body, file.Size)
	if err != nil {
		return nil, apperrors.Internal("Image upload failed", err)
	}

	product, err := s.productRepo.PushImage(ctx, oid, models.ProductImage{URL: url, PublicID: key})
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			logger.Warn(ctx, "Failed to remove orphaned image", zap.String("public_id", key), zap.Error(delErr))
		}
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errProductNotFound
		}
		return nil, apperrors.Internal("Failed to add image to product", err)
	}

	countMetric(s.metrics, awspkg.MetricImagesUploaded, nil)
	logger.Info(ctx, "Image added to product",
		zap.String("product_id", productID),
		zap.String("public_id", key),
		zap.String("user_id", userID.Hex()),
	)
	s.cache.InvalidateProduct(ctx, productID)
	return product, nil
}

// DeleteProductImage removes the image entry from the product and deletes the
// stored object.
func (s *UploadService) DeleteProductImage(ctx context.Context, productID, publicID string) (*models.Product, error) {
	if strings.TrimSpace(publicID) == "" {
		return nil, errPublicIDRequired
	}
	oid, err := ParseProductID(productID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, oid)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errProductNotFound
		}
		return nil, apperrors.Internal("Failed to fetch product", err)
	}
	if len(product.Images) == 0 {
		return nil, errNoProductImages
	}

	found := false
	for _, img := range product.Images {
		if img.PublicID == publicID {
			found = true
			break
		}
	}
	if !found {
		return nil, errImageNotOnProduct
	}

	updated, err := s.productRepo.PullImage(ctx, oid, publicID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errProductNotFound
		}
		return nil, apperrors.Internal("Failed to remove image", err)
	}
	if err := s.images.Delete(ctx, publicID); err != nil {
		logger.Warn(ctx, "Stored image not deleted", zap.String("public_id", publicID), zap.Error(err))
	}
	s.cache.InvalidateProduct(ctx, productID)
	return updated, nil
}
