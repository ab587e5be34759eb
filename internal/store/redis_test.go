package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gimjb/create-vc-bot/internal/models"
)

func newTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStoreFromClient(client)
}

func TestRedisGetMissingGuild(t *testing.T) {
	s := newTestRedis(t)

	cfg, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestRedisCreateIsIdempotent(t *testing.T) {
	s := newTestRedis(t)
	ctx := context.Background()

	first, err := s.Create(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Empty(t, first.LobbyChannels())

	first.AddLobbyChannel("L1")
	require.NoError(t, s.Save(ctx, first))

	// SETNX must not clobber the saved record.
	again, err := s.Create(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"L1"}, again.LobbyChannels())
}

func TestRedisSaveRoundTrip(t *testing.T) {
	s := newTestRedis(t)
	ctx := context.Background()

	cfg := models.NewGuildConfig("g1", []string{"L1"}, []string{"R1", "R2"})
	require.NoError(t, s.Save(ctx, cfg))

	loaded, err := s.Get(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, []string{"L1"}, loaded.LobbyChannels())
	assert.Equal(t, []string{"R1", "R2"}, loaded.RemoveWhenEmpty())

	cfg.RemoveRemoveWhenEmpty("R1")
	require.NoError(t, s.Save(ctx, cfg))

	loaded, err = s.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"R2"}, loaded.RemoveWhenEmpty())
}

func TestRedisGetAll(t *testing.T) {
	s := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, models.NewGuildConfig("g1", []string{"L1"}, nil)))
	require.NoError(t, s.Save(ctx, models.NewGuildConfig("g2", nil, nil)))

	configs, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, configs, 2)
}
