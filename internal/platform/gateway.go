// Package platform defines the contract between the lifecycle controller and
// the chat platform. The production implementation lives in internal/discord;
// tests substitute a fake.
package platform

import "context"

// Permission bits, matching the platform's wire values.
const (
	PermManageChannels  uint64 = 1 << 4
	PermPrioritySpeaker uint64 = 1 << 8
	PermMuteMembers     uint64 = 1 << 22
	PermDeafenMembers   uint64 = 1 << 23
	PermMoveMembers     uint64 = 1 << 24
	PermUseVAD          uint64 = 1 << 25
	PermManageRoles     uint64 = 1 << 28
)

// OwnerPermissions is the grant given to the user whose join created a
// channel, so they effectively own it.
const OwnerPermissions = PermManageChannels |
	PermManageRoles |
	PermUseVAD |
	PermPrioritySpeaker |
	PermMuteMembers |
	PermDeafenMembers |
	PermMoveMembers

// Overwrite subject types.
const (
	OverwriteRole   = 0
	OverwriteMember = 1
)

// Overwrite is a per-subject permission overwrite on a channel.
type Overwrite struct {
	ID    string `json:"id"`
	Type  int    `json:"type"`
	Allow uint64 `json:"allow"`
	Deny  uint64 `json:"deny"`
}

// VoiceEvent is one membership transition: a user joined, left, or moved
// between voice channels. Either channel ID may be empty. The old channel is
// derived from gateway-side state, not the wire payload.
type VoiceEvent struct {
	GuildID      string
	UserID       string
	Username     string
	OldChannelID string
	NewChannelID string
}

// ChannelSpec describes a voice channel to create.
type ChannelSpec struct {
	GuildID    string
	Name       string
	ParentID   string
	Overwrites []Overwrite
}

// Channel is a voice channel as seen by the bot. MemberCount is the live
// occupancy per the gateway's voice-state tracking, which can be newer than
// any event that referenced the channel.
type Channel struct {
	ID          string
	GuildID     string
	Name        string
	ParentID    string
	Overwrites  []Overwrite
	MemberCount int
}

// Gateway is the set of platform operations the lifecycle controller and the
// admin layer consume. FetchChannel returns (nil, nil) for a channel that no
// longer exists.
type Gateway interface {
	CreateVoiceChannel(ctx context.Context, spec ChannelSpec) (*Channel, error)
	FetchChannel(ctx context.Context, guildID, channelID string) (*Channel, error)
	MoveMember(ctx context.Context, guildID, userID, channelID string) error
	DeleteChannel(ctx context.Context, channelID string) error
	SetNickname(ctx context.Context, guildID, nick string) error
}
