package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type fixedWindowLimiter struct {
	rdb    goredis.Cmdable
	log    *logger.Logger
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewFixedWindowLimiter allows limit hits per key in each aligned window.
// Counters live in Redis so every replica shares them.
func NewFixedWindowLimiter(rdb goredis.Cmdable, log *logger.Logger, prefix string, limit int, window time.Duration) RateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	if window <= 0 {
		window = time.Minute
	}
	return &fixedWindowLimiter{
		rdb:    rdb,
		log:    log.With("service", "RateLimiter", "prefix", prefix),
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *fixedWindowLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	d := Decision{Allowed: true, Limit: l.limit, Remaining: l.limit}
	if l.limit <= 0 {
		return d, nil
	}
	now := l.now()
	start := now.Truncate(l.window)
	redisKey := l.prefix + ":" + key + ":" + strconv.FormatInt(start.Unix(), 10)

	var incr *goredis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.PExpire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return d, fmt.Errorf("rate limit incr: %w", err)
	}

	count := int(incr.Val())
	d.Remaining = l.limit - count
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if count > l.limit {
		d.Allowed = false
		d.RetryAfter = start.Add(l.window).Sub(now)
		l.log.Debug("rate limited", "key", key, "count", count)
	}
	return d, nil
}
