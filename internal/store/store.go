package store

import (
	"context"

	"github.com/gimjb/create-vc-bot/internal/models"
)

// GuildStore defines the interface for persistent storage of guild
// configuration. PostgresStore, SQLiteStore and RedisStore implement it.
//
// Get returns (nil, nil) when no record exists for the guild; callers decide
// whether absence is an error. Save replaces the guild's record wholesale and
// must be atomic per guild: concurrent readers never observe a partially
// written set.
type GuildStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Guild configuration
	Get(ctx context.Context, guildID string) (*models.GuildConfig, error)
	GetAll(ctx context.Context) ([]*models.GuildConfig, error)
	Create(ctx context.Context, guildID string) (*models.GuildConfig, error)
	Save(ctx context.Context, cfg *models.GuildConfig) error
}
