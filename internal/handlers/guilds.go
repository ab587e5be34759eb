package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// guildResponse is the JSON shape of a guild's configuration.
type guildResponse struct {
	GuildID         string   `json:"guild_id"`
	LobbyChannels   []string `json:"lobby_channels"`
	RemoveWhenEmpty []string `json:"remove_when_empty"`
}

// GetGuild returns the guild's configuration, creating an empty one on first
// sight (same lazy-create semantics the event path uses).
func (h *Handler) GetGuild(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	if guildID == "" {
		h.Error(w, http.StatusBadRequest, "guild ID required")
		return
	}

	cfg, err := h.guilds.Get(r.Context(), guildID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load guild configuration")
		return
	}

	h.JSON(w, http.StatusOK, guildResponse{
		GuildID:         cfg.GuildID(),
		LobbyChannels:   cfg.LobbyChannels(),
		RemoveWhenEmpty: cfg.RemoveWhenEmpty(),
	})
}

// AddLobbyChannel marks a voice channel as a lobby. The caller is expected to
// have validated that the target is voice-capable.
func (h *Handler) AddLobbyChannel(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	channelID := chi.URLParam(r, "channelID")
	if guildID == "" || channelID == "" {
		h.Error(w, http.StatusBadRequest, "guild ID and channel ID required")
		return
	}

	if err := h.guilds.AddLobbyChannel(r.Context(), guildID, channelID); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to update guild configuration")
		return
	}

	h.JSON(w, http.StatusOK, map[string]string{
		"guild_id":   guildID,
		"channel_id": channelID,
		"status":     "lobby added",
	})
}

// RemoveLobbyChannel unmarks a voice channel as a lobby.
func (h *Handler) RemoveLobbyChannel(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	channelID := chi.URLParam(r, "channelID")
	if guildID == "" || channelID == "" {
		h.Error(w, http.StatusBadRequest, "guild ID and channel ID required")
		return
	}

	if err := h.guilds.RemoveLobbyChannel(r.Context(), guildID, channelID); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to update guild configuration")
		return
	}

	h.JSON(w, http.StatusOK, map[string]string{
		"guild_id":   guildID,
		"channel_id": channelID,
		"status":     "lobby removed",
	})
}
