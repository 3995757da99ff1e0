package collector

import (
	"context"
	"strings"
	"time"

	"github.com/watchtowerx/beacon/internal/cache"
	"github.com/watchtowerx/beacon/internal/models"
	"github.com/watchtowerx/beacon/internal/probe"
)

// CacheProbe reads keyspace statistics from the cache backend. Only redis
// exposes them; other drivers report zeros.
type CacheProbe struct {
	driver   string
	redisURL string
	timeout  time.Duration
}

// NewCacheProbe creates a cache statistics probe.
func NewCacheProbe(driver, redisURL string, timeout time.Duration) *CacheProbe {
	return &CacheProbe{driver: driver, redisURL: redisURL, timeout: timeout}
}

// Name returns the probe identifier.
func (c *CacheProbe) Name() string { return "cache" }

// Collect returns the driver name with key count, hits, and misses.
func (c *CacheProbe) Collect(ctx context.Context) probe.Result[models.Cache] {
	out := models.Cache{Driver: c.driver}
	if !strings.EqualFold(c.driver, "redis") {
		return probe.DegradeWith(out, probe.ReasonUnsupported, nil)
	}
	if c.redisURL == "" {
		return probe.DegradeWith(out, probe.ReasonUnavailable, nil)
	}

	client, err := cache.Connect(c.redisURL, c.timeout)
	if err != nil {
		return probe.Degrade(out, err)
	}
	defer client.Close()

	stats, err := cache.ReadStats(ctx, client)
	if err != nil {
		return probe.Degrade(out, err)
	}
	out.Size, out.Hits, out.Misses = stats.Keys, stats.Hits, stats.Misses
	return probe.OK(out)
}
