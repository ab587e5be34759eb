package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gimjb/create-vc-bot/internal/cache"
	"github.com/gimjb/create-vc-bot/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	guilds *cache.GuildCache
	store  store.GuildStore
}

// NewHandler creates a new Handler over the guild cache and its backing
// store.
func NewHandler(guilds *cache.GuildCache, guildStore store.GuildStore) *Handler {
	return &Handler{guilds: guilds, store: guildStore}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
