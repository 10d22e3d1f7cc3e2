// Package config loads engine configuration from SECRET_AGI_-prefixed
// environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime configuration. Empty DatabaseURL selects the
// in-memory store; empty RedisURL disables the cache.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	TurnCap     int    `env:"TURN_CAP" envDefault:"3000"`
	PlayerCount int    `env:"PLAYER_COUNT" envDefault:"5"`
	Seed        int64  `env:"SEED" envDefault:"0"`
}

// Load parses the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "SECRET_AGI_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
