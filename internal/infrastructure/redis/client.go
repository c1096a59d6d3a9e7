// File: internal/infrastructure/redis/client.go
package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/smartify-home/auth-service/internal/config"
)

// NewClient creates the shared Redis client and verifies connectivity.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
