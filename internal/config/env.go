package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// ServiceConfig holds the log service settings read from the environment.
type ServiceConfig struct {
	Addr     string `env:"TUIGRID_ADDR" envDefault:"127.0.0.1:5008"`
	DBPath   string `env:"TUIGRID_DB_PATH"`
	LogLevel string `env:"TUIGRID_LOG_LEVEL" envDefault:"info"`
}

// LoadServiceConfig reads an optional .env file and then the environment.
// Existing environment variables win over .env values.
func LoadServiceConfig(dotenvPath string) (ServiceConfig, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return ServiceConfig{}, fmt.Errorf("failed to load %s: %w", dotenvPath, err)
		}
	}
	var cfg ServiceConfig
	if err := env.Parse(&cfg); err != nil {
		return ServiceConfig{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	return cfg, nil
}
