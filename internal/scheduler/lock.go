package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TickLock lets a single dispatcher scan per interval.
type TickLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisTickLock takes the lock with SET NX and lets it expire.
type RedisTickLock struct {
	Client redis.Cmdable
	Owner  string
}

func (l RedisTickLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	owner := l.Owner
	if owner == "" {
		owner = "1"
	}
	ok, err := l.Client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return ok, nil
}
