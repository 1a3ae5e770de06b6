package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// SweepLock serializes scheduler sweeps across instances using Redis
// SET NX. Only the holder that acquired the lock releases it.
type SweepLock struct {
	client *goredis.Client
	key    string
	token  string
}

// NewSweepLock creates a new Redis-backed sweep lock. The token
// identifies this instance so a lock held by another sweep is never
// released by mistake.
func NewSweepLock(client *goredis.Client, token string) *SweepLock {
	return &SweepLock{
		client: client,
		key:    "sweep:lock",
		token:  token,
	}
}

// Acquire attempts to take the sweep lock for ttl.
// Returns true if this instance now holds the lock, false if another
// sweep is in progress.
func (l *SweepLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	result, err := l.client.SetArgs(ctx, l.key, l.token, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists, a sweep is running elsewhere
			return false, nil
		}
		return false, fmt.Errorf("redis sweep lock acquire: %w", err)
	}
	return result == "OK", nil
}

// releaseScript deletes the lock only if this instance still holds it.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Release drops the lock if it is still held by this instance.
func (l *SweepLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("redis sweep lock release: %w", err)
	}
	return nil
}
