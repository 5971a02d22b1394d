package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/disaster_backend/models"
)

var ErrLockNotObtained = errors.New("lock not obtained")

// Locker serializes the duplicate re-check and the insert for one (category, severity) pair.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// RedisLocker is a Locker backed by redislock. Obtain retries a few times before giving up.
type RedisLocker struct {
	Client  *redislock.Client
	Retries int
	Backoff time.Duration
}

func NewRedisLocker(client *redislock.Client) *RedisLocker {
	return &RedisLocker{Client: client, Retries: 20, Backoff: 100 * time.Millisecond}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if l == nil || l.Client == nil {
		return nil, errors.New("redis lock not initialized")
	}
	lock, err := l.Client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.Backoff), l.Retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}

func dedupLockKey(category models.DisasterCategory, severity models.Severity) string {
	return fmt.Sprintf("dedup:%s:%s", category, severity)
}
