package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/apistarter/auth-api/internal/core/ports"
)

const rateLimitPrefix = "ratelimit:"

// hitScript increments the window counter and starts the window on the first
// hit. It returns the count and the milliseconds left in the window.
var hitScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// RateLimiter counts hits per key in fixed windows.
// Key format: ratelimit:<key>
type RateLimiter struct {
	client redis.UniversalClient
}

func NewRateLimiter(client redis.UniversalClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Hit records one hit for key and reports whether it is within limit.
func (l *RateLimiter) Hit(ctx context.Context, key string, limit int, window time.Duration) (ports.RateLimitResult, error) {
	vals, err := hitScript.Run(ctx, l.client, []string{rateLimitPrefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return ports.RateLimitResult{}, fmt.Errorf("rate limit hit: %w", err)
	}
	if len(vals) != 2 {
		return ports.RateLimitResult{}, fmt.Errorf("rate limit hit: unexpected reply %v", vals)
	}

	count := int(vals[0])
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return ports.RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetIn:   time.Duration(vals[1]) * time.Millisecond,
	}, nil
}

// Attempts returns the hits recorded for key and the time until they decay.
func (l *RateLimiter) Attempts(ctx context.Context, key string) (int, time.Duration, error) {
	k := rateLimitPrefix + key

	pipe := l.client.Pipeline()
	get := pipe.Get(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("rate limit attempts: %w", err)
	}

	n, err := get.Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("rate limit attempts: %w", err)
	}
	left := ttl.Val()
	if left < 0 {
		left = 0
	}
	return n, left, nil
}

func (l *RateLimiter) Clear(ctx context.Context, key string) error {
	return l.client.Del(ctx, rateLimitPrefix+key).Err()
}
