// Package config loads runtime configuration for the Site of Sites client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A .env file in the working directory, then SITE_* environment variables.
//  3. Optional JSON file selected via flags: -c or -config.
//  4. Command-line flags, which override everything before them.
//
// Supported flags
//
//	-a string     base URL of the backend, e.g. http://127.0.0.1:8000
//	-s string     token store driver: sqlite, bolt or memory
//	-p string     token store file
//	-d duration   search debounce, e.g. 300ms
//	-i int        session revalidation interval (seconds)
//	-l string     log level: debug, info, warn, error
//
// Environment variables
//
//	SITE_SERVER_URL, SITE_STORE_DRIVER, SITE_STORE_PATH, SITE_REQUEST_TIMEOUT,
//	SITE_SEARCH_DEBOUNCE, SITE_SEARCH_MIN_QUERY, SITE_REVALIDATE_INTERVAL,
//	SITE_LOG_LEVEL
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "300ms" or
// integer nanoseconds. Missing keys keep their previous value:
//
//	{
//	  "server_base_url": "http://127.0.0.1:8000",
//	  "store_driver": "bolt",
//	  "store_path": "/home/me/.config/siteofsites/client.bolt",
//	  "request_timeout": "10s",
//	  "search_debounce": "300ms",
//	  "search_min_query_length": 2,
//	  "revalidate_interval": "5m",
//	  "log_level": "debug"
//	}
package config
