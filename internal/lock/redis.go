package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"servicehub-be/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLease      = 5 * time.Second
	defaultRetryDelay = 10 * time.Millisecond
	maxRetryDelay     = 200 * time.Millisecond
	keyPrefix         = "lock:"
)

// releaseScript deletes the key only while it still holds our token, so a
// lease that expired and was taken by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// Redis is a lease lock shared by every process that talks to the same
// Redis. A holder that outlives the lease loses exclusivity.
type Redis struct {
	client redis.UniversalClient
	lease  time.Duration
}

type RedisOption func(*Redis)

func WithLease(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.lease = d
		}
	}
}

func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, lease: defaultLease}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	k := keyPrefix + key
	token := uuid.NewString()
	delay := defaultRetryDelay

	for {
		ok, err := r.client.SetNX(ctx, k, token, r.lease).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-timer.C:
		}

		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.release(ctx, k, token) })
	}, nil
}

func (r *Redis) release(ctx context.Context, k, token string) {
	// ctx may already be cancelled; the release must still go out.
	rctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	n, err := releaseScript.Run(rctx, r.client, []string{k}, token).Int()
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to release lock", zap.String("key", k), zap.Error(err))
		return
	}
	if n == 0 {
		logger.FromCtx(ctx).Warn("lock lease expired before release", zap.String("key", k))
	}
}
