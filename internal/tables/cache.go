package tables

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

// Cache stores per-page structural-recognition results keyed by document
// content and page, so re-converting an unchanged document skips the
// model call. Injected explicitly rather than hidden in the recognizer;
// a miss is a normal outcome, never an error.
type Cache interface {
	Lookup(ctx context.Context, key string) ([]models.TableRegion, bool)
	Store(ctx context.Context, key string, regions []models.TableRegion)
}

// PageKey builds a cache key from a document content hash and a page.
func PageKey(docHash string, pageIndex int) string {
	return fmt.Sprintf("tables:%s:%d", docHash, pageIndex)
}

// MemoryCache is a process-local cache for tests and single-run use.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[string][]models.TableRegion
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[string][]models.TableRegion)}
}

func (c *MemoryCache) Lookup(_ context.Context, key string) ([]models.TableRegion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	regions, ok := c.m[key]
	return regions, ok
}

func (c *MemoryCache) Store(_ context.Context, key string, regions []models.TableRegion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = regions
}

// RedisCache shares recognition results across workers. Transport and
// decode failures degrade to a miss.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// NewRedisCache creates a redis-backed cache with the given TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, log: log.Named("table-cache")}
}

func (c *RedisCache) Lookup(ctx context.Context, key string) ([]models.TableRegion, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache lookup failed", logger.String("key", key), logger.Error(err))
		}
		return nil, false
	}

	var regions []models.TableRegion
	if err := json.Unmarshal(data, &regions); err != nil {
		c.log.Warn("cache entry corrupt, treating as miss", logger.String("key", key), logger.Error(err))
		return nil, false
	}
	return regions, true
}

func (c *RedisCache) Store(ctx context.Context, key string, regions []models.TableRegion) {
	data, err := json.Marshal(regions)
	if err != nil {
		c.log.Warn("cache encode failed", logger.String("key", key), logger.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("cache store failed", logger.String("key", key), logger.Error(err))
	}
}
