package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tutorial-scraper/models"
	"tutorial-scraper/utils"

	"github.com/redis/go-redis/v9"
)

// CachedSource memoizes another Source: L1 in memory, L2 in Redis when configured
type CachedSource struct {
	inner  Source
	rdb    *redis.Client // nil if Redis unavailable
	ttl    time.Duration
	logger *utils.Logger

	l1     sync.Map // key -> *cacheEntry
	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewCachedSource wraps inner. rdb may be nil.
func NewCachedSource(inner Source, rdb *redis.Client, ttl time.Duration, logger *utils.Logger) *CachedSource {
	return &CachedSource{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

// ConnectRedis parses redisURL and pings the server
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}
	return rdb, nil
}

// Stats returns cache hits and misses
func (c *CachedSource) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *CachedSource) Search(ctx context.Context, term string, maxResults int) ([]models.RawVideo, error) {
	key := fmt.Sprintf("ytsearch:%s:%d", strings.ToLower(strings.TrimSpace(term)), maxResults)
	var videos []models.RawVideo
	if c.get(ctx, key, &videos) {
		return videos, nil
	}

	videos, err := c.inner.Search(ctx, term, maxResults)
	if err != nil {
		return nil, err
	}
	// empty results are often throttling; do not pin them
	if len(videos) > 0 {
		c.set(ctx, key, videos)
	}
	return videos, nil
}

func (c *CachedSource) FetchDetails(ctx context.Context, id string) (*models.RawVideo, error) {
	key := "ytvideo:" + id
	var v models.RawVideo
	if c.get(ctx, key, &v) {
		return &v, nil
	}

	got, err := c.inner.FetchDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, got)
	return got, nil
}

// get tries L1, then L2. An L2 hit populates L1.
func (c *CachedSource) get(ctx context.Context, key string, out interface{}) bool {
	if val, ok := c.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if time.Now().Before(entry.expiresAt) && json.Unmarshal(entry.data, out) == nil {
			c.hits.Add(1)
			return true
		}
		c.l1.Delete(key) // expired or corrupt
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil && json.Unmarshal(data, out) == nil {
			c.hits.Add(1)
			c.l1.Store(key, &cacheEntry{data: data, expiresAt: time.Now().Add(c.ttl)})
			return true
		}
	}

	c.misses.Add(1)
	return false
}

func (c *CachedSource) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.l1.Store(key, &cacheEntry{data: data, expiresAt: time.Now().Add(c.ttl)})
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Debug("cache: L2 set failed: %v", err)
		}
	}
}
