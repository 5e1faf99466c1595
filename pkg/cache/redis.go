package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tmc-tutoring/match-api/pkg/config"
)

// NewRedis returns a configured Redis client, or nil when Redis is disabled.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// Pinger adapts a Redis client to readiness checks.
type Pinger struct {
	Client *redis.Client
}

// PingContext reports whether Redis answers PING.
func (p Pinger) PingContext(ctx context.Context) error {
	if p.Client == nil {
		return fmt.Errorf("redis disabled")
	}
	return p.Client.Ping(ctx).Err()
}
