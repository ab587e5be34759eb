package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/gimjb/create-vc-bot/internal/api"
	"github.com/gimjb/create-vc-bot/internal/cache"
	"github.com/gimjb/create-vc-bot/internal/config"
	"github.com/gimjb/create-vc-bot/internal/discord"
	"github.com/gimjb/create-vc-bot/internal/lifecycle"
	"github.com/gimjb/create-vc-bot/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pick the guild store: Postgres, then Redis, then local SQLite.
	guildStore := openStore(ctx, cfg, logger)
	defer guildStore.Close()

	// Warm the guild cache so the first event after boot is served hot.
	guilds := cache.New(guildStore, logger)
	n, err := guilds.WarmUp(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("guild cache warm-up failed")
	}
	logger.Info().Int("guilds", n).Msg("cached guild configurations")

	// Connect to Discord and start the lifecycle controller.
	if cfg.DiscordToken == "" {
		if !cfg.IsDevelopment() {
			logger.Fatal().Msg("DISCORD_TOKEN is required")
		}
		logger.Warn().Msg("no DISCORD_TOKEN set, running admin API only")
	} else {
		session := discord.NewSession(discord.Config{
			Token:    cfg.DiscordToken,
			Nickname: cfg.BotNickname,
		}, logger)

		controller := lifecycle.NewController(session, guilds, logger)
		go controller.Run(ctx, session.Events())
		go func() {
			if err := session.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("gateway session ended")
			}
		}()
	}

	// Create router
	router := api.NewRouter(logger, guilds, guildStore, cfg.AdminToken)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting admin API")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down...")
	cancel()

	// Graceful shutdown with 30 second timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

// openStore connects to the configured storage backend.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) store.GuildStore {
	switch {
	case cfg.DatabaseURL != "":
		s, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		logger.Info().Msg("connected to PostgreSQL")
		return s
	case cfg.RedisURL != "":
		s, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		logger.Info().Msg("connected to Redis")
		return s
	default:
		s, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite store")
		return s
	}
}
