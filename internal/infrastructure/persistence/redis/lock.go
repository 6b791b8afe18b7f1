package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/habitverse/habitverse-api/internal/domain/shared"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockerConfig tunes lock acquisition.
type LockerConfig struct {
	TTL          time.Duration
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

// DefaultLockerConfig returns the defaults used by the API.
func DefaultLockerConfig() LockerConfig {
	return LockerConfig{
		TTL:          TTLLock,
		WaitTimeout:  5 * time.Second,
		PollInterval: 25 * time.Millisecond,
	}
}

// Locker is a distributed mutex keyed by resource (usually a user id).
type Locker struct {
	client *redis.Client
	cfg    LockerConfig
}

// NewLocker creates a Locker on the cache's client.
func NewLocker(cache *Cache, cfg LockerConfig) *Locker {
	if cfg.TTL <= 0 {
		cfg.TTL = TTLLock
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 25 * time.Millisecond
	}
	return &Locker{client: cache.Client(), cfg: cfg}
}

// Lock blocks until the lock for key is held, WaitTimeout passes or ctx ends.
// The returned release func is safe to call once; it never deletes a lock
// that has expired and been taken by someone else.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := LockKey(key)
	token := uuid.NewString()

	waitCtx := ctx
	if l.cfg.WaitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.cfg.WaitTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, redisKey, token, l.cfg.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() { l.release(redisKey, token) }, nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, shared.NewDomainError("lock", "Lock", shared.ErrLockNotAcquired, "lock busy: "+key)
		case <-ticker.C:
		}
	}
}

func (l *Locker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
}
