package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gimjb/create-vc-bot/internal/models"
)

// PostgresStore handles PostgreSQL storage of guild configuration.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool}

	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates the guilds table if it doesn't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS guilds (
			guild_id TEXT PRIMARY KEY,
			lobby_channels TEXT[] NOT NULL DEFAULT '{}',
			remove_when_empty TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Get retrieves a guild's configuration, or (nil, nil) if none exists.
func (s *PostgresStore) Get(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	var lobbies, removeEmpty []string
	err := s.pool.QueryRow(ctx, `
		SELECT lobby_channels, remove_when_empty
		FROM guilds WHERE guild_id = $1
	`, guildID).Scan(&lobbies, &removeEmpty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return models.NewGuildConfig(guildID, lobbies, removeEmpty), nil
}

// GetAll retrieves every guild configuration.
func (s *PostgresStore) GetAll(ctx context.Context) ([]*models.GuildConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT guild_id, lobby_channels, remove_when_empty FROM guilds
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*models.GuildConfig
	for rows.Next() {
		var guildID string
		var lobbies, removeEmpty []string
		if err := rows.Scan(&guildID, &lobbies, &removeEmpty); err != nil {
			return nil, err
		}
		configs = append(configs, models.NewGuildConfig(guildID, lobbies, removeEmpty))
	}
	return configs, rows.Err()
}

// Create inserts an empty configuration for the guild. If the guild already
// exists the existing record is returned unchanged.
func (s *PostgresStore) Create(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO guilds (guild_id) VALUES ($1)
		ON CONFLICT (guild_id) DO NOTHING
	`, guildID)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, guildID)
}

// Save upserts the guild's full configuration. The single-row write keeps the
// replacement atomic per guild.
func (s *PostgresStore) Save(ctx context.Context, cfg *models.GuildConfig) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO guilds (guild_id, lobby_channels, remove_when_empty)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id) DO UPDATE
		SET lobby_channels = EXCLUDED.lobby_channels,
		    remove_when_empty = EXCLUDED.remove_when_empty,
		    updated_at = now()
	`, cfg.GuildID(), cfg.LobbyChannels(), cfg.RemoveWhenEmpty())
	return err
}
