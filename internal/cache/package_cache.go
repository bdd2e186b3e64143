// Package cache provides a Redis-backed cache for package listings.
// When no Redis client is available the cache degrades to a no-op and
// every read goes to the database.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/tourbook/tour-booking-backend/internal/config"
	"github.com/tourbook/tour-booking-backend/internal/models"
)

// NewRedisClient creates a Redis client from configuration. It returns
// nil when no address is configured or the server cannot be reached;
// callers must treat a nil client as "caching disabled".
func NewRedisClient(cfg config.CacheConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

// PackageCache caches package listing responses keyed by filter
type PackageCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewPackageCache creates a package cache. A nil client disables it.
func NewPackageCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *PackageCache {
	return &PackageCache{client: client, ttl: ttl, logger: logger}
}

// Enabled reports whether a Redis backend is available
func (c *PackageCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached listing for the filter, or (nil, false) on a
// miss. Redis errors count as misses.
func (c *PackageCache) Get(ctx context.Context, filter models.PackageFilter) ([]models.PackageWithRating, bool) {
	if !c.Enabled() {
		return nil, false
	}

	data, err := c.client.Get(ctx, c.key(filter)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Debug("package cache read failed")
		}
		return nil, false
	}

	var packages []models.PackageWithRating
	if err := json.Unmarshal(data, &packages); err != nil {
		return nil, false
	}
	return packages, true
}

// Set stores a listing for the filter. Failures are logged and ignored.
func (c *PackageCache) Set(ctx context.Context, filter models.PackageFilter, packages []models.PackageWithRating) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(packages)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(filter), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("package cache write failed")
	}
}

// Invalidate drops all cached listings. Called after any admin package
// write so stale availability never outlives an edit by more than one
// request.
func (c *PackageCache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}

	iter := c.client.Scan(ctx, 0, "packages:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.WithError(err).Debug("package cache invalidation failed")
			return
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.WithError(err).Debug("package cache scan failed")
	}
}

func (c *PackageCache) key(filter models.PackageFilter) string {
	raw := fmt.Sprintf("%s|%s|%s|%s", filter.Category, filter.Destination, filter.Search, filter.SortByPrice)
	sum := sha1.Sum([]byte(raw))
	return "packages:" + hex.EncodeToString(sum[:])
}
