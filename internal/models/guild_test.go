package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewGuildConfigCollapsesDuplicates(t *testing.T) {
	g := NewGuildConfig("g1", []string{"a", "b", "a"}, []string{"c", "c"})

	assert.Equal(t, []string{"a", "b"}, g.LobbyChannels())
	assert.Equal(t, []string{"c"}, g.RemoveWhenEmpty())
}

func TestLobbyChannelToggles(t *testing.T) {
	g := NewGuildConfig("g1", nil, nil)

	assert.True(t, g.AddLobbyChannel("L1"))
	assert.False(t, g.AddLobbyChannel("L1"), "second add is a no-op")
	assert.True(t, g.HasLobbyChannel("L1"))

	assert.True(t, g.RemoveLobbyChannel("L1"))
	assert.False(t, g.RemoveLobbyChannel("L1"), "second remove is a no-op")
	assert.False(t, g.HasLobbyChannel("L1"))
	assert.Empty(t, g.LobbyChannels())
}

func TestRemoveWhenEmptyToggles(t *testing.T) {
	g := NewGuildConfig("g1", nil, nil)

	assert.True(t, g.AddRemoveWhenEmpty("R1"))
	assert.True(t, g.HasRemoveWhenEmpty("R1"))
	assert.True(t, g.RemoveRemoveWhenEmpty("R1"))
	assert.False(t, g.HasRemoveWhenEmpty("R1"))
}

func TestSetsAreIndependent(t *testing.T) {
	g := NewGuildConfig("g1", nil, nil)

	// Nothing stops a channel from sitting in both sets.
	g.AddLobbyChannel("X")
	g.AddRemoveWhenEmpty("X")
	assert.True(t, g.HasLobbyChannel("X"))
	assert.True(t, g.HasRemoveWhenEmpty("X"))

	g.RemoveLobbyChannel("X")
	assert.False(t, g.HasLobbyChannel("X"))
	assert.True(t, g.HasRemoveWhenEmpty("X"), "removal from one set must not touch the other")
}

func TestEmptyChannelIDNeverMatches(t *testing.T) {
	g := NewGuildConfig("g1", []string{"L1"}, []string{"R1"})

	assert.False(t, g.HasLobbyChannel(""))
	assert.False(t, g.HasRemoveWhenEmpty(""))
}

func TestConcurrentToggles(t *testing.T) {
	g := NewGuildConfig("g1", nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			g.AddLobbyChannel("L1")
			g.LobbyChannels()
		}()
		go func() {
			defer wg.Done()
			g.AddRemoveWhenEmpty("R1")
			g.HasRemoveWhenEmpty("R1")
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"L1"}, g.LobbyChannels())
	assert.Equal(t, []string{"R1"}, g.RemoveWhenEmpty())
}
