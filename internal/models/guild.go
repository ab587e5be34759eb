package models

import (
	"sort"
	"sync"
)

// GuildConfig holds the per-guild bot configuration: which voice channels act
// as lobbies, and which created channels are removed once empty.
//
// A single instance per guild is shared process-wide through the cache, so the
// sets are guarded internally. Reads return copies; callers never see the
// underlying maps.
type GuildConfig struct {
	mu sync.RWMutex

	guildID         string
	lobbyChannels   map[string]struct{}
	removeWhenEmpty map[string]struct{}
}

// NewGuildConfig builds a config for the given guild. Duplicate channel IDs
// in either slice collapse.
func NewGuildConfig(guildID string, lobbyChannels, removeWhenEmpty []string) *GuildConfig {
	g := &GuildConfig{
		guildID:         guildID,
		lobbyChannels:   make(map[string]struct{}, len(lobbyChannels)),
		removeWhenEmpty: make(map[string]struct{}, len(removeWhenEmpty)),
	}
	for _, id := range lobbyChannels {
		g.lobbyChannels[id] = struct{}{}
	}
	for _, id := range removeWhenEmpty {
		g.removeWhenEmpty[id] = struct{}{}
	}
	return g
}

// GuildID returns the guild's platform ID. Immutable after creation.
func (g *GuildConfig) GuildID() string {
	return g.guildID
}

// LobbyChannels returns a sorted copy of the lobby channel IDs.
func (g *GuildConfig) LobbyChannels() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.lobbyChannels)
}

// RemoveWhenEmpty returns a sorted copy of the tracked channel IDs.
func (g *GuildConfig) RemoveWhenEmpty() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.removeWhenEmpty)
}

// HasLobbyChannel reports whether channelID is configured as a lobby.
func (g *GuildConfig) HasLobbyChannel(channelID string) bool {
	if channelID == "" {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.lobbyChannels[channelID]
	return ok
}

// HasRemoveWhenEmpty reports whether channelID is tracked for removal.
func (g *GuildConfig) HasRemoveWhenEmpty(channelID string) bool {
	if channelID == "" {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.removeWhenEmpty[channelID]
	return ok
}

// AddLobbyChannel adds channelID to the lobby set. Returns false if it was
// already present.
func (g *GuildConfig) AddLobbyChannel(channelID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.lobbyChannels[channelID]; ok {
		return false
	}
	g.lobbyChannels[channelID] = struct{}{}
	return true
}

// RemoveLobbyChannel removes channelID from the lobby set. Returns false if
// it was not present.
func (g *GuildConfig) RemoveLobbyChannel(channelID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.lobbyChannels[channelID]; !ok {
		return false
	}
	delete(g.lobbyChannels, channelID)
	return true
}

// AddRemoveWhenEmpty starts tracking channelID for delete-when-empty.
// Returns false if it was already tracked.
func (g *GuildConfig) AddRemoveWhenEmpty(channelID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.removeWhenEmpty[channelID]; ok {
		return false
	}
	g.removeWhenEmpty[channelID] = struct{}{}
	return true
}

// RemoveRemoveWhenEmpty stops tracking channelID. Returns false if it was not
// tracked.
func (g *GuildConfig) RemoveRemoveWhenEmpty(channelID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.removeWhenEmpty[channelID]; !ok {
		return false
	}
	delete(g.removeWhenEmpty, channelID)
	return true
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
