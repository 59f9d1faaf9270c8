package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/boijuny/chorizoventures/internal/config"
)

// RedisLimiter is a fixed-window limiter backed by a shared Redis counter,
// for deployments with more than one API instance. INCR makes admission
// atomic across instances; the key expires when the window does.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *logrus.Logger
}

// NewRedis creates a Redis-backed limiter and verifies connectivity.
func NewRedis(cfg *config.RedisConfig, limit int, window time.Duration, logger *logrus.Logger) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		logger: logger,
	}, nil
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := "ratelimit:" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	if count > int64(l.limit) {
		l.logger.WithFields(logrus.Fields{
			"key":   key,
			"count": count,
		}).Warn("Rate limit exceeded")
		return false, nil
	}

	return true, nil
}

// Close releases the Redis connection.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
