package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, sourced from the environment. An
// optional .env file is loaded first so local runs match the deployed
// variable names.
type Config struct {
	Addr            string        `env:"SOCKET_ADDR" envDefault:":8080"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	JWTSecret       string        `env:"SOCKET_JWT_SECRET"`
	MetricsFile     string        `env:"METRICS_FILE" envDefault:"server-metrics.json"`
	MetricsInterval time.Duration `env:"METRICS_INTERVAL" envDefault:"1s"`
	MetricsAutosave time.Duration `env:"METRICS_AUTOSAVE" envDefault:"30s"`
	Dev             bool          `env:"DEV" envDefault:"false"`
}

// Load reads .env (when present) and parses the environment. An empty
// SOCKET_JWT_SECRET disables bearer-token checks, which is only intended
// for local development.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
