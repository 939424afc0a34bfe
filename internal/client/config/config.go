package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds runtime settings for the client.
type Config struct {
	ServerBaseURL        string        `validate:"required,url"`
	StoreDriver          string        `validate:"oneof=sqlite bolt memory"`
	StorePath            string        `validate:"required_unless=StoreDriver memory"`
	RequestTimeout       time.Duration `validate:"gt=0"`
	SearchDebounce       time.Duration `validate:"gt=0"`
	SearchMinQueryLength int           `validate:"gte=2"`
	RevalidateInterval   time.Duration `validate:"gte=0"`
	LogLevel             string        `validate:"oneof=debug info warn error"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8000"
	c.StoreDriver = "sqlite"
	c.StorePath = DefaultStorePath()
	c.RequestTimeout = 10 * time.Second
	c.SearchDebounce = 300 * time.Millisecond
	c.SearchMinQueryLength = 2
	c.RevalidateInterval = 5 * time.Minute
	c.LogLevel = "info"
}

// DefaultStorePath is client.db under the user's config directory, or in the
// working directory when that cannot be determined.
func DefaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "client.db"
	}
	return filepath.Join(dir, "siteofsites", "client.db")
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	loadDotEnv(".env")
	parseEnv(cfg, os.LookupEnv)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
