package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/siteofsites/internal/flagx"
	"github.com/dmitrijs2005/siteofsites/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell an absent key from a zero value.
type JsonConfig struct {
	ServerBaseURL        *string         `json:"server_base_url"`
	StoreDriver          *string         `json:"store_driver"`
	StorePath            *string         `json:"store_path"`
	RequestTimeout       *timex.Duration `json:"request_timeout"`
	SearchDebounce       *timex.Duration `json:"search_debounce"`
	SearchMinQueryLength *int            `json:"search_min_query_length"`
	RevalidateInterval   *timex.Duration `json:"revalidate_interval"`
	LogLevel             *string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Without either flag it does nothing. Read or unmarshal
// errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	if jc.ServerBaseURL != nil {
		cfg.ServerBaseURL = *jc.ServerBaseURL
	}
	if jc.StoreDriver != nil {
		cfg.StoreDriver = *jc.StoreDriver
	}
	if jc.StorePath != nil {
		cfg.StorePath = *jc.StorePath
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.SearchDebounce != nil {
		cfg.SearchDebounce = jc.SearchDebounce.Duration
	}
	if jc.SearchMinQueryLength != nil {
		cfg.SearchMinQueryLength = *jc.SearchMinQueryLength
	}
	if jc.RevalidateInterval != nil {
		cfg.RevalidateInterval = jc.RevalidateInterval.Duration
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
}
