// Package config holds the two configuration layers: immutable process
// configuration read from the environment at startup, and runtime settings
// persisted in the datastore and mutable through commands.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the startup configuration. Missing required values are fatal;
// nothing else in the process is.
type Config struct {
	StoragePath string `env:"STORAGE_PATH" envDefault:"data/chatwarden.json"`
	LogPath     string `env:"LOG_PATH"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	AIBaseURL string `env:"AI_BASE_URL" envDefault:"https://text.pollinations.ai/openai"`
	AIModel   string `env:"AI_MODEL" envDefault:"openai"`

	// BotIdentity and OwnerIdentity seed the persisted settings on first
	// start; after that the persisted values win.
	BotIdentity   string `env:"BOT_IDENTITY"`
	OwnerIdentity string `env:"OWNER_IDENTITY"`
}

// New loads .env if present and parses the environment.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}
