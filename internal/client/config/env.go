package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "SITE_"

// loadDotEnv exports the variables of a .env file. Variables already set in
// the environment win. A missing file is not an error.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Errorf("load %s: %w", path, err))
	}
}

// parseEnv overlays Config with SITE_* variables found through lookup.
// Malformed numbers and durations panic, like malformed JSON does.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(fmt.Errorf("%s%s: %w", envPrefix, name, err))
			}
			*dst = d
		}
	}

	str("SERVER_URL", &cfg.ServerBaseURL)
	str("STORE_DRIVER", &cfg.StoreDriver)
	str("STORE_PATH", &cfg.StorePath)
	str("LOG_LEVEL", &cfg.LogLevel)
	dur("REQUEST_TIMEOUT", &cfg.RequestTimeout)
	dur("SEARCH_DEBOUNCE", &cfg.SearchDebounce)
	dur("REVALIDATE_INTERVAL", &cfg.RevalidateInterval)

	if v, ok := lookup(envPrefix + "SEARCH_MIN_QUERY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("%sSEARCH_MIN_QUERY: %w", envPrefix, err))
		}
		cfg.SearchMinQueryLength = n
	}
}
