package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// Discord
	DiscordToken string
	BotNickname  string

	// Storage backends; first configured wins (postgres, then redis, then
	// sqlite as the local default).
	DatabaseURL string
	RedisURL    string
	SQLitePath  string

	// Admin API
	AdminToken string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("ENV", "development"),
		DiscordToken: os.Getenv("DISCORD_TOKEN"),
		BotNickname:  getEnv("BOT_NICKNAME", "Create VC"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		SQLitePath:   os.Getenv("SQLITE_PATH"),
		AdminToken:   os.Getenv("ADMIN_TOKEN"),
	}

	// In production, require a bot token and an admin token
	if cfg.Env == "production" {
		if cfg.DiscordToken == "" {
			panic("DISCORD_TOKEN is required in production")
		}
		if cfg.AdminToken == "" {
			panic("ADMIN_TOKEN is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
