// Package ratelimit throttles community price submissions with a sliding
// window over Redis sorted sets, keyed per user (or per IP before login).
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter counts events per key inside a rolling window.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Allow records one event for key and reports whether it stays within max
// events per window. A nil client or non-positive limit disables the
// limiter entirely.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	reset := time.Now().Add(window)
	if l.Client == nil || max <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: max, Reset: reset}, nil
	}

	now := time.Now()
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	windowKey := l.Prefix + key

	// Prune expired events, record this one, then count what remains. The
	// transaction keeps concurrent submitters from double-counting prunes.
	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, windowKey, "-inf", cutoff)
	pipe.ZAdd(ctx, windowKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, windowKey)
	pipe.Expire(ctx, windowKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Reset: reset}, err
	}

	used := int(count.Val())
	d := Decision{
		Allowed:   used <= max,
		Remaining: max - used,
		Reset:     reset,
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	return d, nil
}
