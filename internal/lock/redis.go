package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every instance pointing at the same Redis.
// The lock expires after ttl so a crashed holder cannot block a client code forever.
type Redis struct {
	client    redis.UniversalClient
	ttl       time.Duration
	keyPrefix string
	retry     time.Duration
	logger    *slog.Logger
}

// NewRedis creates a Redis-backed locker.
func NewRedis(client redis.UniversalClient, ttl time.Duration, keyPrefix string, logger *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
		retry:     50 * time.Millisecond,
		logger:    logger,
	}
}

// Acquire polls SET NX PX until it succeeds or ctx is done.
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := r.keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrLockTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("lock: redis set %s: %w", fullKey, err)
		}
		if ok {
			return r.releaser(fullKey, token), nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, errors.Join(ErrLockTimeout, ctx.Err())
		}
	}
}

func (r *Redis) releaser(fullKey, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true
		// The request context may already be cancelled; release on a short fresh one.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.client, []string{fullKey}, token).Err(); err != nil {
			r.logger.Warn("failed to release allocation lock", "key", fullKey, "error", err)
		}
	}
}
