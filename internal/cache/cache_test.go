package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gimjb/create-vc-bot/internal/models"
)

// fakeStore is an in-memory GuildStore that counts calls and injects
// failures. Like the real backends it decodes a fresh object per read, so
// object identity across callers can only come from the cache.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]fakeRecord

	getCalls    int
	createCalls int
	saveCalls   int

	getDelay time.Duration
	failGet  error
	failSave error
}

type fakeRecord struct {
	lobbies     []string
	removeEmpty []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]fakeRecord)}
}

func (f *fakeStore) Close()                         {}
func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) Get(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	f.mu.Lock()
	f.getCalls++
	delay, failGet := f.getDelay, f.failGet
	rec, ok := f.records[guildID]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if failGet != nil {
		return nil, failGet
	}
	if !ok {
		return nil, nil
	}
	return models.NewGuildConfig(guildID, rec.lobbies, rec.removeEmpty), nil
}

func (f *fakeStore) GetAll(ctx context.Context) ([]*models.GuildConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.GuildConfig
	for id, rec := range f.records {
		out = append(out, models.NewGuildConfig(id, rec.lobbies, rec.removeEmpty))
	}
	return out, nil
}

func (f *fakeStore) Create(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if _, ok := f.records[guildID]; !ok {
		f.records[guildID] = fakeRecord{}
	}
	rec := f.records[guildID]
	return models.NewGuildConfig(guildID, rec.lobbies, rec.removeEmpty), nil
}

func (f *fakeStore) Save(ctx context.Context, cfg *models.GuildConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.failSave != nil {
		return f.failSave
	}
	f.records[cfg.GuildID()] = fakeRecord{
		lobbies:     cfg.LobbyChannels(),
		removeEmpty: cfg.RemoveWhenEmpty(),
	}
	return nil
}

func (f *fakeStore) record(guildID string) fakeRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[guildID]
}

func (f *fakeStore) counts() (gets, creates, saves int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls, f.createCalls, f.saveCalls
}

func newTestCache(f *fakeStore) *GuildCache {
	return New(f, zerolog.Nop())
}

func TestGetCreatesUnseenGuildOnce(t *testing.T) {
	f := newFakeStore()
	c := newTestCache(f)

	cfg, err := c.Get(context.Background(), "g1")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "g1", cfg.GuildID())
	assert.Empty(t, cfg.LobbyChannels())

	// Second call is served from the cache.
	again, err := c.Get(context.Background(), "g1")
	require.NoError(t, err)
	assert.Same(t, cfg, again)

	gets, creates, _ := f.counts()
	assert.Equal(t, 1, gets)
	assert.Equal(t, 1, creates)
}

func TestConcurrentGetCoalesces(t *testing.T) {
	f := newFakeStore()
	f.getDelay = 20 * time.Millisecond // widen the race window
	c := newTestCache(f)

	const n = 32
	results := make([]*models.GuildConfig, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Get(context.Background(), "g1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.Same(t, results[0], results[i], "all callers must share one instance")
	}

	_, creates, _ := f.counts()
	assert.Equal(t, 1, creates, "exactly one underlying create")
}

func TestGetFailureLeavesCacheClean(t *testing.T) {
	f := newFakeStore()
	f.failGet = errors.New("store down")
	c := newTestCache(f)

	_, err := c.Get(context.Background(), "g1")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len(), "no tombstone entry on failure")

	// Store recovers; the next call succeeds.
	f.mu.Lock()
	f.failGet = nil
	f.mu.Unlock()

	cfg, err := c.Get(context.Background(), "g1")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 1, c.Len())
}

func TestWarmUpLoadsAllGuilds(t *testing.T) {
	f := newFakeStore()
	f.records["g1"] = fakeRecord{lobbies: []string{"L1"}}
	f.records["g2"] = fakeRecord{removeEmpty: []string{"R1"}}
	c := newTestCache(f)

	n, err := c.WarmUp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, c.Len())

	cfg, err := c.Get(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"L1"}, cfg.LobbyChannels())

	gets, creates, _ := f.counts()
	assert.Equal(t, 0, gets, "warmed entries never hit the store again")
	assert.Equal(t, 0, creates)
}

func TestMutationsWriteThrough(t *testing.T) {
	f := newFakeStore()
	c := newTestCache(f)
	ctx := context.Background()

	require.NoError(t, c.AddLobbyChannel(ctx, "g1", "L1"))
	assert.Equal(t, []string{"L1"}, f.record("g1").lobbies)

	require.NoError(t, c.AddRemoveWhenEmpty(ctx, "g1", "R1"))
	assert.Equal(t, []string{"R1"}, f.record("g1").removeEmpty)

	// The cached instance and the persisted record stay aligned.
	cfg, err := c.Get(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, cfg.HasLobbyChannel("L1"))
	assert.True(t, cfg.HasRemoveWhenEmpty("R1"))
}

func TestAddRemoveRoundTrip(t *testing.T) {
	f := newFakeStore()
	c := newTestCache(f)
	ctx := context.Background()

	require.NoError(t, c.AddLobbyChannel(ctx, "g1", "L1"))
	before := f.record("g1")

	require.NoError(t, c.AddLobbyChannel(ctx, "g1", "L2"))
	require.NoError(t, c.RemoveLobbyChannel(ctx, "g1", "L2"))

	assert.Equal(t, before.lobbies, f.record("g1").lobbies,
		"add then remove must restore the pre-add set")
}

func TestNoopMutationSkipsSave(t *testing.T) {
	f := newFakeStore()
	c := newTestCache(f)
	ctx := context.Background()

	require.NoError(t, c.AddLobbyChannel(ctx, "g1", "L1"))
	_, _, saves := f.counts()
	require.Equal(t, 1, saves)

	// Re-adding the same channel and removing an unknown one change nothing.
	require.NoError(t, c.AddLobbyChannel(ctx, "g1", "L1"))
	require.NoError(t, c.RemoveLobbyChannel(ctx, "g1", "missing"))
	require.NoError(t, c.RemoveRemoveWhenEmpty(ctx, "g1", "missing"))

	_, _, saves = f.counts()
	assert.Equal(t, 1, saves)
}

func TestSaveFailurePropagates(t *testing.T) {
	f := newFakeStore()
	c := newTestCache(f)
	ctx := context.Background()

	cfg, err := c.Get(ctx, "g1")
	require.NoError(t, err)

	f.mu.Lock()
	f.failSave = errors.New("disk full")
	f.mu.Unlock()

	err = c.AddLobbyChannel(ctx, "g1", "L1")
	require.Error(t, err)

	// The in-memory mutation survives; a later save carries the full sets.
	assert.True(t, cfg.HasLobbyChannel("L1"))

	f.mu.Lock()
	f.failSave = nil
	f.mu.Unlock()

	require.NoError(t, c.AddLobbyChannel(ctx, "g1", "L2"))
	assert.Equal(t, []string{"L1", "L2"}, f.record("g1").lobbies)
}
