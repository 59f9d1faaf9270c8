package ratelimit

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/boijuny/chorizoventures/internal/config"
)

// Limiter answers whether a client may make another request. Keys are
// client network identifiers; unidentified clients share one sentinel key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// New creates a limiter from configuration. Supports "memory" and "redis"
// store drivers; a disabled config yields a pass-through limiter.
func New(cfg *config.RateLimitConfig, logger *logrus.Logger) (Limiter, error) {
	if !cfg.Enabled {
		return noopLimiter{}, nil
	}

	switch cfg.Store {
	case "memory":
		return NewMemory(cfg.Limit, cfg.Window, logger), nil
	case "redis":
		return NewRedis(&cfg.Redis, cfg.Limit, cfg.Window, logger)
	default:
		return nil, fmt.Errorf("unsupported rate limit store: %s", cfg.Store)
	}
}

type noopLimiter struct{}

func (noopLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}
