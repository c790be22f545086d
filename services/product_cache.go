package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yashrajoria/storefront-backend/models"
	awspkg "github.com/yashrajoria/storefront-backend/pkg/aws"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ProductCachePrefix     = "products:detail:v:"
	ProductListCachePrefix = "products:v:"
	CacheVersionKey        = "products:version"
)

// ProductCache caches product reads in Redis. Every key embeds a version
// counter, so a single INCR invalidates every cached page and detail. Writers
// store under the version observed before the database read; an entry built
// from data read before an invalidation therefore lands under a dead version.
// A nil *ProductCache is valid and always misses.
type ProductCache struct {
	redis   *redis.Client
	ttl     time.Duration
	metrics awspkg.MetricsRecorder
	logger  *zap.Logger
}

func NewProductCache(client *redis.Client, ttl time.Duration, metrics awspkg.MetricsRecorder, logger *zap.Logger) *ProductCache {
	if client == nil {
		return nil
	}
	return &ProductCache{redis: client, ttl: ttl, metrics: metrics, logger: logger}
}

// GetList returns the cached page and the version it was looked up under.
// A zero version means the cache is unavailable and nothing should be stored.
func (cm *ProductCache) GetList(ctx context.Context, page, perPage int) (*ProductListResponse, int64, bool) {
	if cm == nil {
		return nil, 0, false
	}
	version, err := cm.version(ctx)
	if err != nil {
		return nil, 0, false
	}

	var resp ProductListResponse
	if !cm.get(ctx, listKey(version, page, perPage), &resp) {
		return nil, version, false
	}
	return &resp, version, true
}

func (cm *ProductCache) SetListAsync(version int64, page, perPage int, resp *ProductListResponse) {
	if cm == nil || version <= 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cm.set(ctx, listKey(version, page, perPage), resp)
	}()
}

// GetProduct works like GetList for a single product.
func (cm *ProductCache) GetProduct(ctx context.Context, id string) (*models.Product, int64, bool) {
	if cm == nil {
		return nil, 0, false
	}
	version, err := cm.version(ctx)
	if err != nil {
		return nil, 0, false
	}

	var product models.Product
	if !cm.get(ctx, detailKey(version, id), &product) {
		return nil, version, false
	}
	return &product, version, true
}

func (cm *ProductCache) SetProductAsync(version int64, id string, product *models.Product) {
	if cm == nil || version <= 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cm.set(ctx, detailKey(version, id), product)
	}()
}

// InvalidateProduct bumps the version, retiring every list page and detail
// cached so far.
func (cm *ProductCache) InvalidateProduct(ctx context.Context, id string) {
	if cm == nil {
		return
	}
	if err := cm.redis.Incr(ctx, CacheVersionKey).Err(); err != nil {
		cm.logger.Error("Failed to invalidate product cache", zap.String("product_id", id), zap.Error(err))
	}
}

func (cm *ProductCache) get(ctx context.Context, key string, dst interface{}) bool {
	data, err := cm.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			cm.logger.Debug("Product cache read failed", zap.String("key", key), zap.Error(err))
		}
		recordCount(cm.metrics, awspkg.MetricCacheMisses, nil)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		cm.logger.Warn("Failed to unmarshal cached product data", zap.String("key", key), zap.Error(err))
		recordCount(cm.metrics, awspkg.MetricCacheMisses, nil)
		return false
	}
	recordCount(cm.metrics, awspkg.MetricCacheHits, nil)
	return true
}

func (cm *ProductCache) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		cm.logger.Warn("Failed to marshal product data for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := cm.redis.Set(ctx, key, data, cm.ttl).Err(); err != nil {
		cm.logger.Warn("Failed to write product cache", zap.String("key", key), zap.Error(err))
	}
}

// version returns the list cache version, initializing it to 1 when unset.
func (cm *ProductCache) version(ctx context.Context) (int64, error) {
	ver, err := cm.redis.Get(ctx, CacheVersionKey).Int64()
	if err == nil && ver > 0 {
		return ver, nil
	}
	if errors.Is(err, redis.Nil) {
		if ok, setErr := cm.redis.SetNX(ctx, CacheVersionKey, 1, 0).Result(); setErr == nil {
			if ok {
				return 1, nil
			}
			return cm.redis.Get(ctx, CacheVersionKey).Int64()
		}
	}
	if err == nil {
		err = fmt.Errorf("invalid cache version %d", ver)
	}
	return 0, err
}

func listKey(version int64, page, perPage int) string {
	return fmt.Sprintf("%s%d:p:%d:l:%d", ProductListCachePrefix, version, page, perPage)
}

func detailKey(version int64, id string) string {
	return fmt.Sprintf("%s%d:%s", ProductCachePrefix, version, id)
}
