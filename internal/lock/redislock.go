// Package lock provides the Redis mutex that serializes receipt price
// writes: two receipts from the same store must never interleave their
// price upserts.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed worker can hold a store lock.
const DefaultTTL = 30 * time.Second

// releaseScript deletes the key only when it still holds our token, so an
// expired lock re-acquired by another worker is never released by us.
var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Locker is a Redis-backed mutex keyed by store.
type Locker struct {
	client *redis.Client
	retry  time.Duration
}

// New returns a Locker polling every retry interval while waiting for a
// held lock. A non-positive retry falls back to 50ms.
func New(client *redis.Client, retry time.Duration) *Locker {
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	return &Locker{client: client, retry: retry}
}

// WithLock runs fn while holding the lock for key. Acquisition blocks,
// re-trying until the context is cancelled. The lock is released on return
// even when fn fails; a lock lost to TTL expiry is left for its new owner.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l == nil || l.client == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	token := uuid.NewString()
	for {
		acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if acquired {
			break
		}
		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	// Release on a fresh context so a cancelled fn still unlocks.
	defer func() {
		_ = releaseScript.Run(context.Background(), l.client, []string{key}, token).Err()
	}()
	return fn(ctx)
}
