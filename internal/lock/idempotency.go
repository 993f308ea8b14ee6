package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyGuard records client-supplied idempotency keys so a
// double-submitted booking form cannot create duplicate events.
type IdempotencyGuard interface {
	// Reserve claims the key. It returns false when the key was already
	// claimed inside the dedup window.
	Reserve(ctx context.Context, key string) (bool, error)
}

type redisIdempotencyGuard struct {
	client *redis.Client
	window time.Duration
}

// NewRedisIdempotencyGuard claims keys via SETNX with the given TTL window.
func NewRedisIdempotencyGuard(client *redis.Client, window time.Duration) IdempotencyGuard {
	return &redisIdempotencyGuard{client: client, window: window}
}

func (g *redisIdempotencyGuard) Reserve(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, "idem:booking:"+key, "1", g.window).Result()
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return ok, nil
}
