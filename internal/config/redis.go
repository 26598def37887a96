package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the Redis instance backing asynq and the rate
// limiter. REDIS_URL may be a full redis:// URL or a bare host:port.
func NewRedisClient(cfg *Config) (*redis.Client, error) {
	var rdb *redis.Client

	if strings.HasPrefix(cfg.RedisURL, "redis://") || strings.HasPrefix(cfg.RedisURL, "rediss://") {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %v", err)
		}
		rdb = redis.NewClient(opt)
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return rdb, nil
}

// AsynqRedisOpt translates the Redis settings into asynq's connection
// options so the API (client) and worker (server) share one source.
func (c *Config) AsynqRedisOpt() asynq.RedisClientOpt {
	if strings.HasPrefix(c.RedisURL, "redis://") || strings.HasPrefix(c.RedisURL, "rediss://") {
		if opt, err := redis.ParseURL(c.RedisURL); err == nil {
			return asynq.RedisClientOpt{Addr: opt.Addr, Password: opt.Password, DB: opt.DB}
		}
	}
	return asynq.RedisClientOpt{Addr: c.RedisURL, Password: c.RedisPassword, DB: c.RedisDB}
}
