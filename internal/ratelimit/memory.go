package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

type record struct {
	Count       int
	WindowStart time.Time
}

// MemoryLimiter is a fixed-window limiter for a single-process deployment.
// Records live in a TTL cache so keys idle past their window are swept by
// the janitor instead of accumulating forever. Window expiry is still
// decided from WindowStart, never inferred from cache TTL.
type MemoryLimiter struct {
	mu      sync.Mutex
	records *gocache.Cache
	limit   int
	window  time.Duration
	logger  *logrus.Logger
	now     func() time.Time
}

// NewMemory creates an in-memory fixed-window limiter.
func NewMemory(limit int, window time.Duration, logger *logrus.Logger) *MemoryLimiter {
	return &MemoryLimiter{
		records: gocache.New(2*window, window),
		limit:   limit,
		window:  window,
		logger:  logger,
		now:     time.Now,
	}
}

// Allow implements Limiter. Admission is serialized under a mutex so
// concurrent requests from one key cannot slip past the ceiling.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if v, ok := l.records.Get(key); ok {
		rec := v.(*record)
		if now.Sub(rec.WindowStart) <= l.window {
			if rec.Count >= l.limit {
				l.logger.WithFields(logrus.Fields{
					"key":   key,
					"count": rec.Count,
				}).Warn("Rate limit exceeded")
				return false, nil
			}
			rec.Count++
			return true, nil
		}
	}

	// First request from this key, or its window has elapsed.
	l.records.Set(key, &record{Count: 1, WindowStart: now}, gocache.DefaultExpiration)
	return true, nil
}
