package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned when a lock stays held by someone else for every
// retry.
var ErrLockBusy = errors.New("system busy, please try again later (lock)")

// Locker serializes work on one key across replicas.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// NoopLocker never blocks. Used when Redis is not configured; the
// conditional stock updates still keep quantities non-negative.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker is a SET NX PX lock with a bounded retry loop.
type RedisLocker struct {
	client   redis.UniversalClient
	ttl      time.Duration
	attempts int
	backoff  time.Duration
}

// NewRedisLocker returns a lock that expires after ttl even if the holder
// dies.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, attempts: 20, backoff: 100 * time.Millisecond}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()

	for i := 0; i < l.attempts; i++ {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			release := func() {
				// Release must run even if the request context is gone
				rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(rctx, l.client, []string{key}, token).Err()
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.backoff):
		}
	}
	return nil, ErrLockBusy
}

// lockKey names the lock guarding one stock owner.
func lockKey(scope, owner string) string {
	return fmt.Sprintf("lock:shipments:%s:%s", scope, owner)
}
