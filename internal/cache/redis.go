// Package cache builds redis clients for the cache and session probes and
// reads the backend's introspection counters.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect initializes a Redis client from URL or host:port input.
func Connect(redisURL string, timeout time.Duration) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		applyTimeouts(opt, timeout)
		return redis.NewClient(opt), nil
	}
	opt := &redis.Options{Addr: redisURL}
	applyTimeouts(opt, timeout)
	return redis.NewClient(opt), nil
}

func applyTimeouts(opt *redis.Options, timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	opt.DialTimeout = timeout
	opt.ReadTimeout = timeout
	opt.WriteTimeout = timeout
	opt.MaxRetries = -1
}

// Stats are the keyspace counters exposed by INFO and DBSIZE.
type Stats struct {
	Keys   int64
	Hits   int64
	Misses int64
}

// ReadStats queries DBSIZE and the stats section of INFO.
func ReadStats(ctx context.Context, client redis.UniversalClient) (Stats, error) {
	size, err := client.DBSize(ctx).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("redis dbsize: %w", err)
	}
	info := client.InfoMap(ctx, "stats")
	if err := info.Err(); err != nil {
		return Stats{}, fmt.Errorf("redis info: %w", err)
	}
	hits, _ := strconv.ParseInt(info.Item("Stats", "keyspace_hits"), 10, 64)
	misses, _ := strconv.ParseInt(info.Item("Stats", "keyspace_misses"), 10, 64)
	return Stats{Keys: size, Hits: hits, Misses: misses}, nil
}

// CountKeys counts keys matching prefix* with SCAN; KEYS would block the server.
func CountKeys(ctx context.Context, client redis.UniversalClient, prefix string) (int64, error) {
	var (
		cursor uint64
		total  int64
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, prefix+"*", 500).Result()
		if err != nil {
			return 0, fmt.Errorf("redis scan: %w", err)
		}
		total += int64(len(keys))
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}
