package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gimjb/create-vc-bot/internal/models"
)

// RedisStore handles Redis storage of guild configuration. Each guild is one
// JSON blob; the single-key SET keeps Save atomic per guild.
type RedisStore struct {
	client *redis.Client
}

// guildRecord is the wire form of a guild's configuration in Redis.
type guildRecord struct {
	GuildID         string   `json:"guild_id"`
	LobbyChannels   []string `json:"lobby_channels"`
	RemoveWhenEmpty []string `json:"remove_when_empty"`
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client. Used by tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() {
	s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// guildKey returns the key for a guild's configuration blob.
func guildKey(guildID string) string {
	return fmt.Sprintf("guild:%s:config", guildID)
}

// Get retrieves a guild's configuration, or (nil, nil) if none exists.
func (s *RedisStore) Get(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	val, err := s.client.Get(ctx, guildKey(guildID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var rec guildRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("guild %s: decode config: %w", guildID, err)
	}
	return models.NewGuildConfig(rec.GuildID, rec.LobbyChannels, rec.RemoveWhenEmpty), nil
}

// GetAll scans every guild configuration key.
func (s *RedisStore) GetAll(ctx context.Context) ([]*models.GuildConfig, error) {
	var configs []*models.GuildConfig

	iter := s.client.Scan(ctx, 0, "guild:*:config", 0).Iterator()
	for iter.Next(ctx) {
		val, err := s.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // deleted between SCAN and GET
			}
			return nil, err
		}
		var rec guildRecord
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Val(), err)
		}
		configs = append(configs, models.NewGuildConfig(rec.GuildID, rec.LobbyChannels, rec.RemoveWhenEmpty))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return configs, nil
}

// Create writes an empty configuration for the guild unless one already
// exists, then returns whatever is stored.
func (s *RedisStore) Create(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	data, err := json.Marshal(guildRecord{GuildID: guildID, LobbyChannels: []string{}, RemoveWhenEmpty: []string{}})
	if err != nil {
		return nil, err
	}

	// SETNX keeps concurrent creates idempotent.
	if err := s.client.SetNX(ctx, guildKey(guildID), data, 0).Err(); err != nil {
		return nil, err
	}
	return s.Get(ctx, guildID)
}

// Save replaces the guild's configuration blob.
func (s *RedisStore) Save(ctx context.Context, cfg *models.GuildConfig) error {
	data, err := json.Marshal(guildRecord{
		GuildID:         cfg.GuildID(),
		LobbyChannels:   cfg.LobbyChannels(),
		RemoveWhenEmpty: cfg.RemoveWhenEmpty(),
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, guildKey(cfg.GuildID()), data, 0).Err()
}
