package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/suchimauz/docplanner-slots-gateway/internal/config"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/domain"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
)

type availabilityEntry struct {
	availability domain.WeeklyAvailability
	expiresAt    time.Time
}

// MemoryCacheAdapter LRU с общим TTL (CACHE_TTL) плюс собственный срок жизни у каждой записи
type MemoryCacheAdapter struct {
	cache  *expirable.LRU[string, *availabilityEntry]
	mu     sync.Mutex
	now    func() time.Time
	logger out.LoggerPort
}

func NewMemoryCacheAdapter(cfg *config.Config, logger out.LoggerPort) *MemoryCacheAdapter {
	return &MemoryCacheAdapter{
		cache:  expirable.NewLRU[string, *availabilityEntry](cfg.Cache.Size, nil, cfg.Cache.TTL),
		now:    time.Now,
		logger: logger,
	}
}

func (c *MemoryCacheAdapter) GetWeeklyAvailability(ctx context.Context, key string) (domain.WeeklyAvailability, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.cache.Get(key)
	if !exists {
		c.logger.Debug("cache.get.miss", out.LogFields{
			"key": key,
		})
		return domain.WeeklyAvailability{}, false
	}

	if !c.now().Before(entry.expiresAt) {
		c.cache.Remove(key)
		c.logger.Debug("cache.get.expired", out.LogFields{
			"key":       key,
			"expiresAt": entry.expiresAt,
		})
		return domain.WeeklyAvailability{}, false
	}

	c.logger.Debug("cache.get.hit", out.LogFields{
		"key":        key,
		"slotsCount": len(entry.availability.Slots),
	})

	return copyAvailability(entry.availability), true
}

func (c *MemoryCacheAdapter) StoreWeeklyAvailability(ctx context.Context, key string, availability domain.WeeklyAvailability, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug("cache.store", out.LogFields{
		"key":        key,
		"slotsCount": len(availability.Slots),
		"ttl":        ttl.String(),
	})

	c.cache.Add(key, &availabilityEntry{
		availability: copyAvailability(availability),
		expiresAt:    c.now().Add(ttl),
	})
}

func (c *MemoryCacheAdapter) InvalidateWeeklyAvailability(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache.Remove(key) {
		c.logger.Debug("cache.invalidate", out.LogFields{
			"key": key,
		})
	}
}

func (c *MemoryCacheAdapter) Len() int {
	return c.cache.Len()
}

// Вызывающий код не должен иметь возможности менять закэшированные слоты
func copyAvailability(availability domain.WeeklyAvailability) domain.WeeklyAvailability {
	return domain.WeeklyAvailability{
		FacilityID: availability.FacilityID,
		Slots:      slices.Clone(availability.Slots),
	}
}
