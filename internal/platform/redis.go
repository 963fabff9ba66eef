package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/gitdwsong72/auth-system/internal/config"
)

// NewRedis opens the volatile store client from a REDIS_URL connection
// string (redis://[:password@]host:port/db).
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logx.Errorf("failed to ping redis: %v", err)
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logx.Info("connected to redis")
	return client, nil
}
