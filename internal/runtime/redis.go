package runtime

import (
	"context"
	"fmt"

	"github.com/qqmakana/ai-sales-agent/config"
	"github.com/redis/go-redis/v9"
)

// OpenRedis builds a client and checks the connection.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{Addr: cfg.Addr(), Password: cfg.Password, DB: cfg.DB}
	if cfg.Timeout > 0 {
		opts.DialTimeout = cfg.Timeout
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr(), err)
	}
	return rdb, nil
}
