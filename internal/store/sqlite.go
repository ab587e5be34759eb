package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gimjb/create-vc-bot/internal/models"
)

// SQLiteStore handles SQLite storage of guild configuration. It is the
// default backend for local runs where no external database is configured.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/create-vc-bot.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/create-vc-bot.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist. The channel ID sets are
// stored as JSON arrays in TEXT columns.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS guilds (
		guild_id TEXT PRIMARY KEY,
		lobby_channels TEXT NOT NULL DEFAULT '[]',
		remove_when_empty TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get retrieves a guild's configuration, or (nil, nil) if none exists.
func (s *SQLiteStore) Get(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	var lobbiesJSON, removeEmptyJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT lobby_channels, remove_when_empty
		FROM guilds WHERE guild_id = ?
	`, guildID).Scan(&lobbiesJSON, &removeEmptyJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return decodeGuildRow(guildID, lobbiesJSON, removeEmptyJSON)
}

// GetAll retrieves every guild configuration.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]*models.GuildConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, lobby_channels, remove_when_empty FROM guilds
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*models.GuildConfig
	for rows.Next() {
		var guildID, lobbiesJSON, removeEmptyJSON string
		if err := rows.Scan(&guildID, &lobbiesJSON, &removeEmptyJSON); err != nil {
			return nil, err
		}
		cfg, err := decodeGuildRow(guildID, lobbiesJSON, removeEmptyJSON)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// Create inserts an empty configuration for the guild. If the guild already
// exists the existing record is returned unchanged.
func (s *SQLiteStore) Create(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO guilds (guild_id) VALUES (?)
	`, guildID)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, guildID)
}

// Save upserts the guild's full configuration as a single-row write.
func (s *SQLiteStore) Save(ctx context.Context, cfg *models.GuildConfig) error {
	lobbiesJSON, err := json.Marshal(cfg.LobbyChannels())
	if err != nil {
		return err
	}
	removeEmptyJSON, err := json.Marshal(cfg.RemoveWhenEmpty())
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO guilds (guild_id, lobby_channels, remove_when_empty)
		VALUES (?, ?, ?)
		ON CONFLICT (guild_id) DO UPDATE
		SET lobby_channels = excluded.lobby_channels,
		    remove_when_empty = excluded.remove_when_empty,
		    updated_at = CURRENT_TIMESTAMP
	`, cfg.GuildID(), string(lobbiesJSON), string(removeEmptyJSON))
	return err
}

func decodeGuildRow(guildID, lobbiesJSON, removeEmptyJSON string) (*models.GuildConfig, error) {
	var lobbies, removeEmpty []string
	if err := json.Unmarshal([]byte(lobbiesJSON), &lobbies); err != nil {
		return nil, fmt.Errorf("guild %s: decode lobby_channels: %w", guildID, err)
	}
	if err := json.Unmarshal([]byte(removeEmptyJSON), &removeEmpty); err != nil {
		return nil, fmt.Errorf("guild %s: decode remove_when_empty: %w", guildID, err)
	}
	return models.NewGuildConfig(guildID, lobbies, removeEmpty), nil
}
