package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hooper-ai/hooper/internal/config"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

// UserIdentity returns the rate-limit identity for an authenticated user
func UserIdentity(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// IPIdentity returns the rate-limit identity for an anonymous caller
func IPIdentity(addr string) string {
	return "ip:" + addr
}

// RateLimiter enforces sliding-window turn admission quotas in Redis. Two
// quota classes exist: authenticated identities ("user:<id>") and anonymous
// identities ("ip:<addr>"). Every check is a round trip to the shared
// counters; nothing is cached locally.
type RateLimiter struct {
	client        *Client
	authenticated config.QuotaConfig
	anonymous     config.QuotaConfig
	now           func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client:        client,
		authenticated: cfg.Authenticated,
		anonymous:     cfg.Anonymous,
		now:           time.Now,
	}
}

// Allow checks whether a turn for the given identity is admitted. The
// request is counted whether or not it is admitted; count-at-quota rejects.
func (r *RateLimiter) Allow(ctx context.Context, identity string) (bool, error) {
	quota := r.anonymous
	if strings.HasPrefix(identity, "user:") {
		quota = r.authenticated
	}

	now := r.now()
	windowStart := now.Truncate(quota.Window)
	curKey := windowKey(identity, windowStart)
	prevKey := windowKey(identity, windowStart.Add(-quota.Window))

	pipe := r.client.rdb.Pipeline()
	incrCmd := pipe.Incr(ctx, curKey)
	pipe.ExpireNX(ctx, curKey, 2*quota.Window)
	prevCmd := pipe.Get(ctx, prevKey)

	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	var prev int64
	if v, err := prevCmd.Result(); err == nil {
		prev, _ = strconv.ParseInt(v, 10, 64)
	}

	count := slidingCount(prev, incrCmd.Val(), now.Sub(windowStart), quota.Window)
	return count <= float64(quota.Limit), nil
}

func windowKey(identity string, windowStart time.Time) string {
	return fmt.Sprintf("%s%s:%d", rateLimitPrefix, identity, windowStart.UnixMilli())
}

// slidingCount estimates the number of requests in the trailing window by
// weighting the previous fixed window's count by its remaining overlap with
// the sliding window, then adding the current window's count.
func slidingCount(prev, cur int64, elapsed, window time.Duration) float64 {
	weight := 1 - float64(elapsed)/float64(window)
	if weight < 0 {
		weight = 0
	}
	return float64(prev)*weight + float64(cur)
}
