package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/boijuny/chorizoventures/internal/config"
	"github.com/boijuny/chorizoventures/internal/models"
)

// Service caches completions for repeated history-free turns. The same
// startup pitch sent twice in the same mode gets the same roast without a
// second upstream call.
type Service interface {
	Get(ctx context.Context, mode, message string) (string, bool)
	Set(ctx context.Context, mode, message, answer string) error
	Clear(ctx context.Context) error
}

// Cache implements Service on an in-memory TTL cache.
type Cache struct {
	enabled bool
	cache   *gocache.Cache
	logger  *logrus.Logger
	maxSize int
}

// NewCache creates a cache service.
func NewCache(cfg *config.CacheConfig, logger *logrus.Logger) Service {
	if !cfg.Enabled {
		return &Cache{enabled: false}
	}

	return &Cache{
		enabled: true,
		cache:   gocache.New(cfg.TTL, cfg.TTL*2),
		logger:  logger,
		maxSize: cfg.MaxSize,
	}
}

// Get retrieves a cached completion.
func (c *Cache) Get(ctx context.Context, mode, message string) (string, bool) {
	if !c.enabled {
		return "", false
	}

	key := c.generateKey(mode, message)
	if val, found := c.cache.Get(key); found {
		entry := val.(*models.CacheEntry)
		c.logger.WithFields(logrus.Fields{
			"mode": mode,
			"age":  time.Since(entry.CreatedAt),
		}).Debug("Cache hit")
		return entry.Answer, true
	}

	return "", false
}

// Set stores a completion in cache.
func (c *Cache) Set(ctx context.Context, mode, message, answer string) error {
	if !c.enabled {
		return nil
	}

	if c.cache.ItemCount() >= c.maxSize {
		c.logger.Warn("Cache size limit reached, clearing old entries")
		c.cache.DeleteExpired()
	}

	key := c.generateKey(mode, message)
	entry := &models.CacheEntry{
		Question:  message,
		Answer:    answer,
		Mode:      mode,
		CreatedAt: time.Now(),
	}

	c.cache.SetDefault(key, entry)
	return nil
}

// Clear removes all cached entries.
func (c *Cache) Clear(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	c.cache.Flush()
	c.logger.Info("Cache cleared")
	return nil
}

func (c *Cache) generateKey(mode, message string) string {
	data := fmt.Sprintf("%s:%s", mode, message)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
