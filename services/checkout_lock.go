package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CheckoutLock keeps a user to one running checkout at a time.
type CheckoutLock interface {
	// Acquire returns a release func, or ErrCheckoutInProgress when the user is locked.
	Acquire(ctx context.Context, userID string) (release func(context.Context) error, err error)
}

// releaseScript deletes the key only if it still holds this holder's token, so an
// expired lock taken over by another checkout is never released by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisCheckoutLock struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewRedisCheckoutLock(client redis.UniversalClient, ttl time.Duration) *RedisCheckoutLock {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCheckoutLock{client: client, ttl: ttl, prefix: "checkout:lock:"}
}

func (l *RedisCheckoutLock) Acquire(ctx context.Context, userID string) (func(context.Context) error, error) {
	key := l.prefix + userID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, &UpstreamUnavailableError{Service: "redis", Err: fmt.Errorf("acquire checkout lock: %w", err)}
	}
	if !ok {
		return nil, ErrCheckoutInProgress
	}

	release := func(ctx context.Context) error {
		err := releaseScript.Run(ctx, l.client, []string{key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release checkout lock: %w", err)
		}
		return nil
	}
	return release, nil
}

// noopLock is used when no Redis is configured.
type noopLock struct{}

func (noopLock) Acquire(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}
