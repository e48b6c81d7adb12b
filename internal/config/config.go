package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string        `env:"MARGIN_ADDR" envDefault:":8787"`
	LogLevel        string        `env:"MARGIN_LOG_LEVEL" envDefault:"info"`
	CORSOrigin      string        `env:"MARGIN_CORS_ORIGIN" envDefault:"*"`
	MeiliURL        string        `env:"MEILI_URL"`
	MeiliMasterKey  string        `env:"MEILI_MASTER_KEY"`
	SeedFile        string        `env:"MARGIN_SEED_FILE"`
	AllowOverlap    bool          `env:"MARGIN_ALLOW_OVERLAP" envDefault:"false"`
	ShutdownTimeout time.Duration `env:"MARGIN_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads .env-style files (missing ones are skipped) into the process
// environment without overriding variables that are already set, then
// parses the environment into a Config.
func Load(envFiles ...string) (Config, error) {
	for _, path := range envFiles {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return Config{}, fmt.Errorf("load env file %q: %w", path, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// FromMap parses cfg from an explicit variable set instead of the process
// environment.
func FromMap(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
