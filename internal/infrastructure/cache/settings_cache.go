// Package cache provides caching infrastructure.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clinicstock/internal/domain/settings"
)

const settingsKey = "clinicstock:inventory_settings"

// SettingsCache stores the inventory policy in Redis.
// It implements settings.Cache.
type SettingsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSettingsCache creates a Redis-backed policy cache. A zero ttl keeps
// the entry until invalidated.
func NewSettingsCache(client *redis.Client, ttl time.Duration) *SettingsCache {
	return &SettingsCache{client: client, ttl: ttl}
}

// Get returns the cached policy. hit is false on a miss.
func (c *SettingsCache) Get(ctx context.Context) (settings.InventorySettings, bool, error) {
	var s settings.InventorySettings
	payload, err := c.client.Get(ctx, settingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return s, false, nil
	}
	if err != nil {
		return s, false, fmt.Errorf("cache get settings: %w", err)
	}
	if err := json.Unmarshal(payload, &s); err != nil {
		return s, false, fmt.Errorf("cache decode settings: %w", err)
	}
	return s, true, nil
}

// Set stores the policy.
func (c *SettingsCache) Set(ctx context.Context, s settings.InventorySettings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("cache encode settings: %w", err)
	}
	if err := c.client.Set(ctx, settingsKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set settings: %w", err)
	}
	return nil
}

// Invalidate drops the cached policy. Every instance reads the same key,
// so one delete is seen by all of them.
func (c *SettingsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, settingsKey).Err(); err != nil {
		return fmt.Errorf("cache invalidate settings: %w", err)
	}
	return nil
}

var _ settings.Cache = (*SettingsCache)(nil)
