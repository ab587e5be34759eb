// Package lifecycle reacts to voice membership transitions: joins into lobby
// channels spawn a personal voice channel, and tracked channels are deleted
// once their live occupancy reaches zero.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/gimjb/create-vc-bot/internal/cache"
	"github.com/gimjb/create-vc-bot/internal/metrics"
	"github.com/gimjb/create-vc-bot/internal/models"
	"github.com/gimjb/create-vc-bot/internal/platform"
)

// Controller drives channel creation and deletion from voice events.
type Controller struct {
	gw     platform.Gateway
	guilds *cache.GuildCache
	logger zerolog.Logger
}

// NewController creates a controller over the given gateway and guild cache.
func NewController(gw platform.Gateway, guilds *cache.GuildCache, logger zerolog.Logger) *Controller {
	return &Controller{
		gw:     gw,
		guilds: guilds,
		logger: logger.With().Str("component", "lifecycle").Logger(),
	}
}

// Run consumes events until the channel closes or ctx is cancelled. Events
// start handling in delivery order, but each event is handled on its own
// goroutine: a slow platform call for event N never delays event N+1.
func (c *Controller) Run(ctx context.Context, events <-chan platform.VoiceEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			go c.Handle(ctx, ev)
		}
	}
}

// Handle processes a single voice event. All failures are contained here:
// they are logged, counted and dropped so one bad event cannot stall the
// loop. The next event on the same channel naturally re-evaluates.
func (c *Controller) Handle(ctx context.Context, ev platform.VoiceEvent) {
	metrics.VoiceEventsTotal.Inc()

	logger := c.logger.With().
		Str("event_id", ulid.Make().String()).
		Str("guild_id", ev.GuildID).
		Str("user_id", ev.UserID).
		Str("old_channel", ev.OldChannelID).
		Str("new_channel", ev.NewChannelID).
		Logger()

	guild, err := c.guilds.Get(ctx, ev.GuildID)
	if err != nil {
		logger.Error().Err(err).Msg("guild configuration unavailable, dropping event")
		return
	}

	// Both branches can apply to one event: the join side and the leave side
	// of a move are independent.
	if guild.HasLobbyChannel(ev.NewChannelID) {
		if err := c.createFor(ctx, guild, ev); err != nil {
			metrics.EventErrors.WithLabelValues("create").Inc()
			logger.Error().Err(err).Msg("lobby join handling failed")
		}
	}

	if guild.HasRemoveWhenEmpty(ev.OldChannelID) {
		if err := c.reapIfEmpty(ctx, guild, ev.OldChannelID, logger); err != nil {
			metrics.EventErrors.WithLabelValues("delete").Inc()
			logger.Error().Err(err).Msg("empty channel cleanup failed")
		}
	}
}

// createFor creates a personal voice channel for the user who joined a lobby,
// moves them into it, and tracks it for delete-when-empty.
//
// The new channel is tracked before the member is moved: if the move fails
// the channel stays in the remove-when-empty set and is garbage-collected by
// the delete branch instead of leaking untracked. There is no rollback.
func (c *Controller) createFor(ctx context.Context, guild *models.GuildConfig, ev platform.VoiceEvent) error {
	lobby, err := c.gw.FetchChannel(ctx, ev.GuildID, ev.NewChannelID)
	if err != nil {
		return fmt.Errorf("fetch lobby %s: %w", ev.NewChannelID, err)
	}
	if lobby == nil {
		// Lobby deleted out-of-band; nothing to inherit, nothing to do.
		return nil
	}

	spec := platform.ChannelSpec{
		GuildID:  ev.GuildID,
		Name:     channelName(ev.Username),
		ParentID: lobby.ParentID,
		Overwrites: append(append([]platform.Overwrite{}, lobby.Overwrites...), platform.Overwrite{
			ID:    ev.UserID,
			Type:  platform.OverwriteMember,
			Allow: platform.OwnerPermissions,
		}),
	}

	created, err := c.gw.CreateVoiceChannel(ctx, spec)
	if err != nil {
		return fmt.Errorf("create channel: %w", err)
	}
	metrics.ChannelsCreated.Inc()

	trackErr := c.guilds.AddRemoveWhenEmpty(ctx, ev.GuildID, created.ID)

	if err := c.gw.MoveMember(ctx, ev.GuildID, ev.UserID, created.ID); err != nil {
		// Channel stays tracked; the next leave sweep deletes it.
		if trackErr != nil {
			return fmt.Errorf("move member: %w (track also failed: %v)", err, trackErr)
		}
		return fmt.Errorf("move member: %w", err)
	}
	return trackErr
}

// reapIfEmpty deletes a tracked channel if its live occupancy is zero.
//
// The event's own snapshot is never trusted: a fast leave/join sequence can
// make it stale by the time this runs, so the count comes from a fresh fetch.
func (c *Controller) reapIfEmpty(ctx context.Context, guild *models.GuildConfig, channelID string, logger zerolog.Logger) error {
	ch, err := c.gw.FetchChannel(ctx, guild.GuildID(), channelID)
	if err != nil {
		return fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	if ch == nil {
		// Already deleted out-of-band. Not a fault.
		return nil
	}
	if ch.MemberCount != 0 {
		// Someone joined between the leave event and now; re-evaluated on
		// the next leave.
		return nil
	}

	if err := c.gw.DeleteChannel(ctx, channelID); err != nil {
		return fmt.Errorf("delete channel %s: %w", channelID, err)
	}
	metrics.ChannelsDeleted.Inc()
	logger.Info().Str("channel_id", channelID).Msg("deleted empty channel")

	return c.guilds.RemoveRemoveWhenEmpty(ctx, guild.GuildID(), channelID)
}

// channelName synthesizes the created channel's name from the owner's
// display name.
func channelName(username string) string {
	if username == "" {
		username = "unknown"
	}
	return username + "’s VC"
}
