package discord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyTracksJoinMoveLeave(t *testing.T) {
	v := newVoiceStates()

	old := v.apply("g1", "u1", "c1")
	assert.Equal(t, "", old, "first join has no previous channel")
	assert.Equal(t, 1, v.count("c1"))

	old = v.apply("g1", "u1", "c2")
	assert.Equal(t, "c1", old, "move reports the channel left behind")
	assert.Equal(t, 0, v.count("c1"))
	assert.Equal(t, 1, v.count("c2"))

	old = v.apply("g1", "u1", "")
	assert.Equal(t, "c2", old)
	assert.Equal(t, 0, v.count("c2"))
}

func TestApplyIsIdempotentPerState(t *testing.T) {
	v := newVoiceStates()

	v.apply("g1", "u1", "c1")
	// Duplicate updates (mute/deafen changes arrive as the same channel)
	// must not inflate the count.
	old := v.apply("g1", "u1", "c1")
	assert.Equal(t, "c1", old)
	assert.Equal(t, 1, v.count("c1"))
}

func TestCountsAreLive(t *testing.T) {
	v := newVoiceStates()

	v.apply("g1", "u1", "c1")
	v.apply("g1", "u2", "c1")
	assert.Equal(t, 2, v.count("c1"))

	// u1's leave is dispatched but a new join lands first: the live count
	// is what the delete branch must see.
	v.apply("g1", "u3", "c1")
	v.apply("g1", "u1", "")
	assert.Equal(t, 2, v.count("c1"))
}

func TestGuildsAreIsolated(t *testing.T) {
	v := newVoiceStates()

	v.apply("g1", "u1", "c1")
	v.apply("g2", "u1", "c2")

	assert.Equal(t, 1, v.count("c1"))
	assert.Equal(t, 1, v.count("c2"))
}

func TestDropChannelForgetsOccupants(t *testing.T) {
	v := newVoiceStates()

	v.apply("g1", "u1", "c1")
	v.apply("g1", "u2", "c1")
	v.dropChannel("c1")

	assert.Equal(t, 0, v.count("c1"))
	assert.Equal(t, "", v.apply("g1", "u1", "c2"), "occupants were disconnected with the channel")
}

func TestUnknownChannelCountIsZero(t *testing.T) {
	v := newVoiceStates()
	assert.Equal(t, 0, v.count("nope"))
}
