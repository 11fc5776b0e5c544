package cache

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/shivamdarekar/TrendsWave/models"
)

var errRedisDisabled = errors.New("redis disabled in tests")

func unreachableCacheClient() *redisv8.Client {
	return redisv8.NewClient(&redisv8.Options{
		Addr:       "localhost:0",
		MaxRetries: -1,
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, errRedisDisabled
		},
	})
}

func unreachableIdemClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       "localhost:0",
		MaxRetries: -1,
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, errRedisDisabled
		},
	})
}

func TestProductCache_NilIsDisabled(t *testing.T) {
	var pc *ProductCache
	ctx := context.Background()

	_, _, ok := pc.GetList(ctx, models.ProductFilter{})
	assert.False(t, ok)
	_, _, ok = pc.GetProduct(ctx, "abc")
	assert.False(t, ok)
	assert.NoError(t, pc.Invalidate(ctx))
	pc.SetListAsync(1, models.ProductFilter{}, nil)
	pc.SetProductAsync(1, &models.Product{})
	pc.InvalidateProduct(ctx, "abc")

	noClient := NewProductCache(nil, 0, nil)
	_, _, ok = noClient.GetList(ctx, models.ProductFilter{})
	assert.False(t, ok)
	assert.Equal(t, DefaultCacheTTL, noClient.ttl)
}

func TestProductCache_UnreachableRedisIsAMiss(t *testing.T) {
	client := unreachableCacheClient()
	defer client.Close()
	pc := NewProductCache(client, time.Minute, zap.NewNop())
	ctx := context.Background()

	_, version, ok := pc.GetList(ctx, models.ProductFilter{Category: "Top Wear"})
	assert.False(t, ok)
	assert.Zero(t, version)

	_, version, ok = pc.GetProduct(ctx, primitive.NewObjectID().Hex())
	assert.False(t, ok)
	assert.Zero(t, version)

	pc.SetList(ctx, 1, models.ProductFilter{}, []models.Product{{Name: "Tee"}})

	err := pc.Invalidate(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to invalidate cache")

	pc.InvalidateProduct(ctx, "abc")
}

func TestListCacheKey(t *testing.T) {
	f := models.ProductFilter{Category: "Top Wear", Limit: 10}

	k1 := listCacheKey(3, f)
	assert.True(t, strings.HasPrefix(k1, ProductListCachePrefix+"3:f:"))
	assert.Equal(t, k1, listCacheKey(3, f))
	assert.NotEqual(t, k1, listCacheKey(4, f))

	f.Page = 2
	assert.NotEqual(t, k1, listCacheKey(3, f))
}

func TestIdempotencyStore_Disabled(t *testing.T) {
	ctx := context.Background()

	var nilStore *IdempotencyStore
	assert.False(t, nilStore.Enabled())
	v, err := nilStore.Get(ctx, "checkout", "k1")
	require.NoError(t, err)
	assert.Empty(t, v)
	won, err := nilStore.Set(ctx, "checkout", "k1", "id")
	require.NoError(t, err)
	assert.True(t, won)

	store := NewIdempotencyStore(nil, 0)
	assert.False(t, store.Enabled())
	assert.Equal(t, DefaultIdempotencyTTL, store.ttl)
}

func TestIdempotencyStore_EmptyKeySkipsRedis(t *testing.T) {
	client := unreachableIdemClient()
	defer client.Close()
	store := NewIdempotencyStore(client, time.Hour)

	v, err := store.Get(context.Background(), "checkout", "")
	require.NoError(t, err)
	assert.Empty(t, v)

	won, err := store.Set(context.Background(), "checkout", "", "id")
	require.NoError(t, err)
	assert.True(t, won)
}

func TestIdempotencyStore_UnreachableRedisErrors(t *testing.T) {
	client := unreachableIdemClient()
	defer client.Close()
	store := NewIdempotencyStore(client, time.Hour)
	assert.True(t, store.Enabled())

	_, err := store.Get(context.Background(), "checkout", "k1")
	assert.Error(t, err)

	_, err = store.Set(context.Background(), "payment", "k1", "id")
	assert.Error(t, err)
}

func TestIdemKey(t *testing.T) {
	assert.Equal(t, "idem:checkout:abc", idemKey("checkout", "abc"))
}
