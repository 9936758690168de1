package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/suchimauz/docplanner-slots-gateway/internal/config"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/domain"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
)

const redisKeyPrefix = "slots-gateway:"

// RedisCacheAdapter общий кэш для нескольких инстансов.
// Ошибки Redis логируются и считаются промахом.
type RedisCacheAdapter struct {
	client *redis.Client
	logger out.LoggerPort
}

func NewRedisCacheAdapter(ctx context.Context, cfg *config.Config, logger out.LoggerPort) (*RedisCacheAdapter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		logger.Error("cache.redis.connect_failed", out.LogFields{
			"addr":  cfg.Redis.Addr,
			"error": err.Error(),
		})
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Redis.Addr, err)
	}

	logger.Info("cache.redis.connected", out.LogFields{
		"addr": cfg.Redis.Addr,
		"db":   cfg.Redis.DB,
	})

	return &RedisCacheAdapter{
		client: client,
		logger: logger,
	}, nil
}

func (c *RedisCacheAdapter) GetWeeklyAvailability(ctx context.Context, key string) (domain.WeeklyAvailability, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("cache.get.miss", out.LogFields{
			"key": key,
		})
		return domain.WeeklyAvailability{}, false
	}
	if err != nil {
		c.logger.Warn("cache.get.failed", out.LogFields{
			"key":   key,
			"error": err.Error(),
		})
		return domain.WeeklyAvailability{}, false
	}

	var availability domain.WeeklyAvailability
	if err := json.Unmarshal(data, &availability); err != nil {
		c.logger.Warn("cache.get.decode_failed", out.LogFields{
			"key":   key,
			"error": err.Error(),
		})
		return domain.WeeklyAvailability{}, false
	}

	c.logger.Debug("cache.get.hit", out.LogFields{
		"key":        key,
		"slotsCount": len(availability.Slots),
	})

	return availability, true
}

func (c *RedisCacheAdapter) StoreWeeklyAvailability(ctx context.Context, key string, availability domain.WeeklyAvailability, ttl time.Duration) {
	data, err := json.Marshal(availability)
	if err != nil {
		c.logger.Warn("cache.store.encode_failed", out.LogFields{
			"key":   key,
			"error": err.Error(),
		})
		return
	}

	if err := c.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache.store.failed", out.LogFields{
			"key":   key,
			"error": err.Error(),
		})
		return
	}

	c.logger.Debug("cache.store", out.LogFields{
		"key":        key,
		"slotsCount": len(availability.Slots),
		"ttl":        ttl.String(),
	})
}

func (c *RedisCacheAdapter) InvalidateWeeklyAvailability(ctx context.Context, key string) {
	if err := c.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		c.logger.Warn("cache.invalidate.failed", out.LogFields{
			"key":   key,
			"error": err.Error(),
		})
		return
	}

	c.logger.Debug("cache.invalidate", out.LogFields{
		"key": key,
	})
}

func (c *RedisCacheAdapter) Close() error {
	return c.client.Close()
}
