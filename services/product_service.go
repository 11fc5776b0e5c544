package services

import (
	"context"
	stderrors "errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/shivamdarekar/TrendsWave/cache"
	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/common/logger"
	"github.com/shivamdarekar/TrendsWave/models"
	awspkg "github.com/shivamdarekar/TrendsWave/pkg/aws"
	"github.com/shivamdarekar/TrendsWave/repository"
)

const (
	newArrivalsLimit = 8
	similarLimit     = 4
)

var errProductNotFound = apperrors.NotFound("Product not found")

// ImageRemover deletes stored images by public id.
type ImageRemover interface {
	Delete(ctx context.Context, publicIDs ...string) error
}

type ProductService struct {
	productRepo    repository.ProductRepository
	tempUploadRepo repository.TempUploadRepository
	cache          *cache.ProductCache
	images         ImageRemover
	metrics        awspkg.MetricsRecorder
}

func NewProductService(
	productRepo repository.ProductRepository,
	tempUploadRepo repository.TempUploadRepository,
	productCache *cache.ProductCache,
	images ImageRemover,
	metrics awspkg.MetricsRecorder,
) *ProductService {
	return &ProductService{
		productRepo:    productRepo,
		tempUploadRepo: tempUploadRepo,
		cache:          productCache,
		images:         images,
		metrics:        metrics,
	}
}

// ParseProductID maps malformed ids to the same 404 as missing products.
func ParseProductID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errProductNotFound
	}
	return oid, nil
}

func (s *ProductService) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	products, version, ok := s.cache.GetList(ctx, filter)
	if ok {
		countMetric(s.metrics, awspkg.MetricCacheHits, map[string]string{"Cache": "products"})
		return products, nil
	}
	countMetric(s.metrics, awspkg.MetricCacheMisses, map[string]string{"Cache": "products"})

	products, err := s.productRepo.Find(ctx, repository.BuildProductQuery(filter))
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch products", err)
	}
	s.cache.SetListAsync(version, filter, products)
	return products, nil
}

func (s *ProductService) BestSeller(ctx context.Context) (*models.Product, error) {
	products, err := s.productRepo.Find(ctx, repository.ProductQuery{
		Sort:  bson.D{{Key: "rating", Value: -1}},
		Limit: 1,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch best seller", err)
	}
	if len(products) == 0 {
		return nil, apperrors.NotFound("No best seller found")
	}
	return &products[0], nil
}

func (s *ProductService) NewArrivals(ctx context.Context) ([]models.Product, error) {
	products, err := s.productRepo.Find(ctx, repository.ProductQuery{
		Sort:  bson.D{{Key: "createdAt", Value: -1}},
		Limit: newArrivalsLimit,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch new arrivals", err)
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	oid, err := ParseProductID(id)
	if err != nil {
		return nil, err
	}
	product, version, ok := s.cache.GetProduct(ctx, oid.Hex())
	if ok {
		return product, nil
	}

	product, err = s.find(ctx, oid)
	if err != nil {
		return nil, err
	}
	s.cache.SetProductAsync(version, product)
	return product, nil
}

// Similar returns products of the same gender and category.
func (s *ProductService) Similar(ctx context.Context, id string) ([]models.Product, error) {
	oid, err := ParseProductID(id)
	if err != nil {
		return nil, err
	}
	product, err := s.find(ctx, oid)
	if err != nil {
		return nil, err
	}

	similar, err := s.productRepo.Find(ctx, repository.ProductQuery{
		Filter: bson.M{
			"_id":      bson.M{"$ne": oid},
			"gender":   product.Gender,
			"category": product.Category,
		},
		Limit: similarLimit,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch similar products", err)
	}
	return similar, nil
}

func (s *ProductService) AdminList(ctx context.Context) ([]models.Product, error) {
	products, err := s.productRepo.Find(ctx, repository.ProductQuery{
		Sort: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch products", err)
	}
	return products, nil
}

func (s *ProductService) Create(ctx context.Context, owner primitive.ObjectID, req models.ProductRequest) (*models.Product, error) {
	product := &models.Product{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		DiscountPrice:   req.DiscountPrice,
		CountInStock:    req.CountInStock,
		SKU:             req.SKU,
		Category:        req.Category,
		Brand:           req.Brand,
		Sizes:           req.Sizes,
		Colors:          req.Colors,
		Collections:     req.Collections,
		Material:        req.Material,
		Gender:          req.Gender,
		Images:          req.Images,
		IsFeatured:      req.IsFeatured,
		IsPublished:     req.IsPublished,
		Tags:            req.Tags,
		Owner:           owner,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
		MetaKeywords:    req.MetaKeywords,
		Dimensions:      req.Dimensions,
		Weight:          req.Weight,
	}
	if product.Images == nil {
		product.Images = []models.ProductImage{}
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.BadRequest("Product with this SKU already exists")
		}
		return nil, apperrors.Internal("Failed to create product", err)
	}

	s.markImagesUsed(ctx, product.Images)
	s.cache.InvalidateProduct(ctx, product.ID.Hex())
	countMetric(s.metrics, awspkg.MetricProductsCreated, nil)
	logger.Info(ctx, "Product created", zap.String("product_id", product.ID.Hex()), zap.String("sku", product.SKU))
	return product, nil
}

// Update applies only the fields present in req.
func (s *ProductService) Update(ctx context.Context, id string, req models.ProductUpdateRequest) (*models.Product, error) {
	oid, err := ParseProductID(id)
	if err != nil {
		return nil, err
	}

	set, err := updateSet(req)
	if err != nil {
		return nil, apperrors.Internal("Failed to update product", err)
	}
	if len(set) == 0 {
		return s.find(ctx, oid)
	}

	product, err := s.productRepo.Update(ctx, oid, set)
	if err != nil {
		switch {
		case stderrors.Is(err, repository.ErrNotFound):
			return nil, errProductNotFound
		case stderrors.Is(err, repository.ErrDuplicate):
			return nil, apperrors.BadRequest("Product with this SKU already exists")
		}
		return nil, apperrors.Internal("Failed to update product", err)
	}

	if req.Images != nil {
		s.markImagesUsed(ctx, *req.Images)
	}
	s.cache.InvalidateProduct(ctx, product.ID.Hex())
	return product, nil
}

// Delete removes the product and schedules deletion of its stored images.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	oid, err := ParseProductID(id)
	if err != nil {
		return err
	}
	product, err := s.productRepo.Delete(ctx, oid)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errProductNotFound
		}
		return apperrors.Internal("Failed to delete product", err)
	}

	if s.images != nil {
		ids := make([]string, 0, len(product.Images))
		for _, img := range product.Images {
			ids = append(ids, img.PublicID)
		}
		if err := s.images.Delete(ctx, ids...); err != nil {
			logger.Warn(ctx, "Some product images were not deleted", zap.String("product_id", id), zap.Error(err))
		}
	}
	s.cache.InvalidateProduct(ctx, id)
	return nil
}

func (s *ProductService) find(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errProductNotFound
		}
		return nil, apperrors.Internal("Failed to fetch product", err)
	}
	return product, nil
}

// markImagesUsed keeps referenced uploads out of the cleanup job.
func (s *ProductService) markImagesUsed(ctx context.Context, images []models.ProductImage) {
	if s.tempUploadRepo == nil || len(images) == 0 {
		return
	}
	ids := make([]string, 0, len(images))
	for _, img := range images {
		if img.PublicID != "" {
			ids = append(ids, img.PublicID)
		}
	}
	if _, err := s.tempUploadRepo.MarkUsed(ctx, ids); err != nil {
		logger.Warn(ctx, "Failed to mark temp uploads as used", zap.Strings("public_ids", ids), zap.Error(err))
	}
}

// updateSet converts the request into a $set document. Nil fields are
// dropped by the bson omitempty tags.
func updateSet(req models.ProductUpdateRequest) (bson.M, error) {
	raw, err := bson.Marshal(req)
	if err != nil {
		return nil, err
	}
	set := bson.M{}
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, err
	}
	return set, nil
}
