// Package cache keeps a single in-memory copy of each guild's configuration
// in front of the persistent store.
//
// The cache is process-scoped and never evicts: the working set is bounded by
// the number of guilds the bot serves. All consumers (the lifecycle
// controller and the admin handlers) must go through the same instance so
// concurrent mutations compose on one object instead of diverging snapshots.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/gimjb/create-vc-bot/internal/metrics"
	"github.com/gimjb/create-vc-bot/internal/models"
	"github.com/gimjb/create-vc-bot/internal/store"
)

// GuildCache is a write-through cache over a GuildStore.
type GuildCache struct {
	store  store.GuildStore
	logger zerolog.Logger

	mu     sync.RWMutex
	guilds map[string]*models.GuildConfig

	// flight coalesces concurrent cold-cache loads for the same guild so a
	// burst of events for an unseen guild triggers exactly one store read
	// (and at most one create).
	flight singleflight.Group
}

// New creates an empty cache over the given store.
func New(guildStore store.GuildStore, logger zerolog.Logger) *GuildCache {
	return &GuildCache{
		store:  guildStore,
		logger: logger.With().Str("component", "guild_cache").Logger(),
		guilds: make(map[string]*models.GuildConfig),
	}
}

// Get returns the guild's configuration, creating an empty one in the store
// the first time a guild is seen. Every caller for the same guild ID receives
// the identical *models.GuildConfig. A store failure leaves the cache without
// an entry, so the next call retries.
func (c *GuildCache) Get(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	c.mu.RLock()
	cfg, ok := c.guilds[guildID]
	c.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	v, err, _ := c.flight.Do(guildID, func() (interface{}, error) {
		// A racing call may have populated the entry while we waited for
		// the flight slot.
		c.mu.RLock()
		cfg, ok := c.guilds[guildID]
		c.mu.RUnlock()
		if ok {
			return cfg, nil
		}

		cfg, err := c.store.Get(ctx, guildID)
		if err != nil {
			return nil, fmt.Errorf("load guild %s: %w", guildID, err)
		}
		if cfg == nil {
			cfg, err = c.store.Create(ctx, guildID)
			if err != nil {
				return nil, fmt.Errorf("create guild %s: %w", guildID, err)
			}
			c.logger.Info().Str("guild_id", guildID).Msg("created guild configuration")
		}

		c.mu.Lock()
		c.guilds[guildID] = cfg
		c.mu.Unlock()
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.GuildConfig), nil
}

// WarmUp loads every guild configuration into the cache. Called once at boot
// so the first event after startup doesn't pay a cold-cache round trip.
func (c *GuildCache) WarmUp(ctx context.Context) (int, error) {
	configs, err := c.store.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("warm up guild cache: %w", err)
	}

	c.mu.Lock()
	for _, cfg := range configs {
		// Keep an entry a concurrent Get already installed; it is the copy
		// other callers hold.
		if _, ok := c.guilds[cfg.GuildID()]; !ok {
			c.guilds[cfg.GuildID()] = cfg
		}
	}
	c.mu.Unlock()

	return len(configs), nil
}

// Len returns the number of cached guilds.
func (c *GuildCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.guilds)
}

// AddLobbyChannel marks channelID as a lobby for the guild and persists.
func (c *GuildCache) AddLobbyChannel(ctx context.Context, guildID, channelID string) error {
	return c.mutate(ctx, guildID, func(g *models.GuildConfig) bool {
		return g.AddLobbyChannel(channelID)
	})
}

// RemoveLobbyChannel unmarks channelID as a lobby for the guild and persists.
func (c *GuildCache) RemoveLobbyChannel(ctx context.Context, guildID, channelID string) error {
	return c.mutate(ctx, guildID, func(g *models.GuildConfig) bool {
		return g.RemoveLobbyChannel(channelID)
	})
}

// AddRemoveWhenEmpty starts tracking channelID for delete-when-empty and
// persists.
func (c *GuildCache) AddRemoveWhenEmpty(ctx context.Context, guildID, channelID string) error {
	return c.mutate(ctx, guildID, func(g *models.GuildConfig) bool {
		return g.AddRemoveWhenEmpty(channelID)
	})
}

// RemoveRemoveWhenEmpty stops tracking channelID and persists.
func (c *GuildCache) RemoveRemoveWhenEmpty(ctx context.Context, guildID, channelID string) error {
	return c.mutate(ctx, guildID, func(g *models.GuildConfig) bool {
		return g.RemoveRemoveWhenEmpty(channelID)
	})
}

// mutate applies a set toggle to the cached instance and writes it through.
// A toggle that changes nothing skips the store write. The save is the
// durability boundary only: if it fails the in-memory change stays, the error
// propagates, and a later save will still carry the full current sets.
func (c *GuildCache) mutate(ctx context.Context, guildID string, toggle func(*models.GuildConfig) bool) error {
	cfg, err := c.Get(ctx, guildID)
	if err != nil {
		return err
	}

	if !toggle(cfg) {
		return nil
	}

	start := time.Now()
	err = c.store.Save(ctx, cfg)
	metrics.StoreLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("save guild %s: %w", guildID, err)
	}
	return nil
}
