package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gimjb/create-vc-bot/internal/api/middleware"
	"github.com/gimjb/create-vc-bot/internal/cache"
	"github.com/gimjb/create-vc-bot/internal/handlers"
	"github.com/gimjb/create-vc-bot/internal/store"
)

// NewRouter creates and configures the admin/ops HTTP router.
func NewRouter(logger zerolog.Logger, guilds *cache.GuildCache, guildStore store.GuildStore, adminToken string) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - the admin surface is called from dashboards and scripts
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(guilds, guildStore)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/health", h.Health)

	// Guild configuration (the administrative command surface)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireToken(adminToken))

		r.Get("/guilds/{guildID}", h.GetGuild)
		r.Put("/guilds/{guildID}/lobbies/{channelID}", h.AddLobbyChannel)
		r.Delete("/guilds/{guildID}/lobbies/{channelID}", h.RemoveLobbyChannel)
	})

	return r
}
