package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/siteofsites/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only the flags listed here are considered; os.Args is filtered with
// flagx.FilterArgs so the -c/-config stage does not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-p", "-d", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "base URL of the backend")
	fs.StringVar(&cfg.StoreDriver, "s", cfg.StoreDriver, "token store driver (sqlite, bolt, memory)")
	fs.StringVar(&cfg.StorePath, "p", cfg.StorePath, "token store file")
	fs.DurationVar(&cfg.SearchDebounce, "d", cfg.SearchDebounce, "search debounce")
	revalidate := fs.Int("i", int(cfg.RevalidateInterval.Seconds()), "session revalidation interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.RevalidateInterval = time.Duration(*revalidate) * time.Second
		}
	})
}
