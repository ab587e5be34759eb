package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gimjb/create-vc-bot/internal/models"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSQLiteGetMissingGuild(t *testing.T) {
	s := newTestSQLite(t)

	cfg, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, cfg, "absent guild is (nil, nil), not an error")
}

func TestSQLiteCreateIsIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	first, err := s.Create(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Empty(t, first.LobbyChannels())
	assert.Empty(t, first.RemoveWhenEmpty())

	// Creating again must not wipe existing data.
	first.AddLobbyChannel("L1")
	require.NoError(t, s.Save(ctx, first))

	again, err := s.Create(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"L1"}, again.LobbyChannels())
}

func TestSQLiteSaveRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	cfg := models.NewGuildConfig("g1", []string{"L1", "L2"}, []string{"R1"})
	require.NoError(t, s.Save(ctx, cfg))

	loaded, err := s.Get(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, []string{"L1", "L2"}, loaded.LobbyChannels())
	assert.Equal(t, []string{"R1"}, loaded.RemoveWhenEmpty())

	// Save replaces wholesale: removals stick.
	cfg.RemoveLobbyChannel("L1")
	cfg.RemoveRemoveWhenEmpty("R1")
	require.NoError(t, s.Save(ctx, cfg))

	loaded, err = s.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"L2"}, loaded.LobbyChannels())
	assert.Empty(t, loaded.RemoveWhenEmpty())
}

func TestSQLiteGetAll(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, models.NewGuildConfig("g1", []string{"L1"}, nil)))
	require.NoError(t, s.Save(ctx, models.NewGuildConfig("g2", nil, []string{"R1"})))

	configs, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 2)

	byID := make(map[string]*models.GuildConfig, len(configs))
	for _, cfg := range configs {
		byID[cfg.GuildID()] = cfg
	}
	assert.Equal(t, []string{"L1"}, byID["g1"].LobbyChannels())
	assert.Equal(t, []string{"R1"}, byID["g2"].RemoveWhenEmpty())
}
