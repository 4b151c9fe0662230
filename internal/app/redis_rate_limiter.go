package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/swiftorder/user-service/internal/domain"
)

const (
	defaultRateLimitPrefix = "swiftorder:rate_limit"
	minRateLimitWindow     = time.Second
)

// The window starts with the first hit (SET NX PX); INCR keeps the TTL.
var creditWindowScript = redis.NewScript(`
redis.call("SET", KEYS[1], 0, "PX", ARGV[1], "NX")
local hits = redis.call("INCR", KEYS[1])
return {hits, redis.call("PTTL", KEYS[1])}
`)

// RedisRateLimiter implements distributed fixed-window rate limiting using Redis,
// so every replica of the service shares the same counters.
type RedisRateLimiter struct {
	client redis.Scripter
	prefix string
}

func NewRedisRateLimiter(client redis.Scripter, prefix string) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		prefix: normalizeRateLimitPrefix(prefix),
	}
}

func normalizeRateLimitPrefix(prefix string) string {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		trimmed = defaultRateLimitPrefix
	}
	return strings.TrimSuffix(trimmed, ":")
}

func (r *RedisRateLimiter) key(scope, subject string) string {
	return r.prefix + ":" + scope + ":" + subject
}

// Allow records one hit for subject in scope and decides whether it fits in limit per
// window. A disabled limiter, a non-positive limit or an empty scope/subject always allows.
func (r *RedisRateLimiter) Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	open := domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: max(limit, 0)}

	scope, subject = strings.TrimSpace(scope), strings.TrimSpace(subject)
	if r == nil || r.client == nil || limit <= 0 || window <= 0 || scope == "" || subject == "" {
		return open, nil
	}
	window = max(window, minRateLimitWindow)

	reply, err := creditWindowScript.Run(ctx, r.client, []string{r.key(scope, subject)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return open, fmt.Errorf("rate limit %s for %s: %w", scope, subject, err)
	}
	if len(reply) != 2 {
		return open, fmt.Errorf("rate limit %s for %s: unexpected reply %v", scope, subject, reply)
	}

	hits, ttl := int(reply[0]), time.Duration(reply[1])*time.Millisecond
	if ttl <= 0 {
		ttl = window
	}
	return domain.RateLimitDecision{
		Allowed:    hits <= limit,
		Limit:      limit,
		Remaining:  max(limit-hits, 0),
		RetryAfter: ttl,
	}, nil
}
