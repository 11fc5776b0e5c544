package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/shivamdarekar/TrendsWave/models"
)

const (
	ProductCachePrefix     = "product:detail:v"
	ProductListCachePrefix = "products:v:"
	CacheVersionKey        = "products:version"

	DefaultCacheTTL = 10 * time.Minute
)

// ProductCache caches product listings and single products. Every key embeds
// a version counter, so bumping the counter invalidates the whole cache at
// once. All methods are safe on a nil receiver or nil client and treat Redis
// failures as cache misses.
type ProductCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewProductCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ProductCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductCache{redis: client, ttl: ttl, logger: logger}
}

func (pc *ProductCache) enabled() bool {
	return pc != nil && pc.redis != nil
}

// GetList returns the cached listing for filter along with the cache version
// the lookup ran against. Callers hand that version back to SetList, so a
// listing read before an invalidation lands under a dead key. A zero version
// means the cache is unavailable.
func (pc *ProductCache) GetList(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, bool) {
	if !pc.enabled() {
		return nil, 0, false
	}
	version, err := pc.getCacheVersion(ctx)
	if err != nil {
		return nil, 0, false
	}

	cached, err := pc.redis.Get(ctx, listCacheKey(version, filter)).Bytes()
	if err != nil {
		return nil, version, false
	}
	var products []models.Product
	if err := json.Unmarshal(cached, &products); err != nil {
		pc.logger.Warn("Failed to unmarshal cached product list", zap.Error(err))
		return nil, version, false
	}
	return products, version, true
}

// SetListAsync caches a listing in the background.
func (pc *ProductCache) SetListAsync(version int64, filter models.ProductFilter, products []models.Product) {
	if !pc.enabled() || version <= 0 {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pc.SetList(bgCtx, version, filter, products)
	}()
}

// SetList stores a listing under the version returned by the GetList that
// preceded the database read.
func (pc *ProductCache) SetList(ctx context.Context, version int64, filter models.ProductFilter, products []models.Product) {
	if !pc.enabled() || version <= 0 {
		return
	}
	data, err := json.Marshal(products)
	if err != nil {
		pc.logger.Warn("Failed to marshal product list for cache", zap.Error(err))
		return
	}
	if err := pc.redis.Set(ctx, listCacheKey(version, filter), data, pc.ttl).Err(); err != nil {
		pc.logger.Warn("Failed to cache product list", zap.Error(err))
	}
}

// GetProduct works like GetList for a single product.
func (pc *ProductCache) GetProduct(ctx context.Context, productID string) (*models.Product, int64, bool) {
	if !pc.enabled() {
		return nil, 0, false
	}
	version, err := pc.getCacheVersion(ctx)
	if err != nil {
		return nil, 0, false
	}
	cached, err := pc.redis.Get(ctx, productCacheKey(version, productID)).Bytes()
	if err != nil {
		return nil, version, false
	}
	var product models.Product
	if err := json.Unmarshal(cached, &product); err != nil {
		pc.logger.Warn("Failed to unmarshal cached product", zap.Error(err), zap.String("product_id", productID))
		return nil, version, false
	}
	return &product, version, true
}

func (pc *ProductCache) SetProductAsync(version int64, product *models.Product) {
	if !pc.enabled() || product == nil || version <= 0 {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pc.SetProduct(bgCtx, version, product)
	}()
}

func (pc *ProductCache) SetProduct(ctx context.Context, version int64, product *models.Product) {
	if !pc.enabled() || product == nil || version <= 0 {
		return
	}
	productID := product.ID.Hex()
	data, err := json.Marshal(product)
	if err != nil {
		pc.logger.Warn("Failed to marshal product for cache", zap.Error(err), zap.String("product_id", productID))
		return
	}
	if err := pc.redis.Set(ctx, productCacheKey(version, productID), data, pc.ttl).Err(); err != nil {
		pc.logger.Warn("Failed to cache product", zap.Error(err), zap.String("product_id", productID))
	}
}

// Invalidate bumps the version shared by list and detail keys.
func (pc *ProductCache) Invalidate(ctx context.Context) error {
	if !pc.enabled() {
		return nil
	}
	newVersion, err := pc.redis.Incr(ctx, CacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	pc.logger.Debug("Product cache invalidated", zap.Int64("new_version", newVersion))
	return nil
}

// InvalidateProduct runs after a product write. Bumping the version retires
// every cached list and product entry, including ones still being written by
// reads that started before the write.
func (pc *ProductCache) InvalidateProduct(ctx context.Context, productID string) {
	if !pc.enabled() {
		return
	}
	if err := pc.Invalidate(ctx); err != nil {
		pc.logger.Error("Failed to invalidate product cache", zap.Error(err), zap.String("product_id", productID))
	}
}

func (pc *ProductCache) getCacheVersion(ctx context.Context) (int64, error) {
	ver, err := pc.redis.Get(ctx, CacheVersionKey).Int64()
	if err == nil && ver > 0 {
		return ver, nil
	}
	if err == redis.Nil {
		// SetNX keeps a concurrent Incr from being overwritten.
		if err := pc.redis.SetNX(ctx, CacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return pc.redis.Get(ctx, CacheVersionKey).Int64()
	}
	if err == nil {
		return 0, fmt.Errorf("invalid cache version %d", ver)
	}
	return 0, err
}

func productCacheKey(version int64, productID string) string {
	return fmt.Sprintf("%s%d:%s", ProductCachePrefix, version, productID)
}

// listCacheKey hashes the normalized filter so keys stay short.
func listCacheKey(version int64, filter models.ProductFilter) string {
	raw, _ := json.Marshal(filter)
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%s%d:f:%s", ProductListCachePrefix, version, hex.EncodeToString(sum[:8]))
}
