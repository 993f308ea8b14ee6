package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired means another booking attempt currently holds the
// calendar; callers surface this as "try again" rather than racing.
var ErrLockNotAcquired = errors.New("calendar lock not acquired")

// Locker serializes booking attempts per calendar. The external calendar
// exposes no conditional write, so this is the only guard between two
// requests validating the same slot at the same instant.
type Locker interface {
	WithCalendarLock(ctx context.Context, calendarID string, fn func(ctx context.Context) error) error
}

// NewClient builds the shared redis client and verifies connectivity.
func NewClient(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

type redisCalendarLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCalendarLocker creates a locker keyed per calendar with the given
// lease TTL. The TTL bounds how long a crashed holder can block bookings.
func NewRedisCalendarLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisCalendarLocker{client: client, ttl: ttl}
}

func (l *redisCalendarLocker) WithCalendarLock(ctx context.Context, calendarID string, fn func(ctx context.Context) error) error {
	key := "lock:calendar:" + calendarID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire calendar lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

// Only the holder's token may delete the key; an expired lease taken over
// by someone else must not be released from here.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisCalendarLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release calendar lock: %w", err)
	}
	return nil
}
