package config

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"resolversampler/internal/sampler"
)

const (
	DefaultTimeout = 5 * time.Minute
	DefaultPause   = 3 * time.Second
)

// RegisterFlags registers the CLI flags, one endpoint override per service.
func RegisterFlags(cmd *cobra.Command, services []sampler.Definition) {
	configureFlags(cmd.Flags(), services)
}

func configureFlags(flags *pflag.FlagSet, services []sampler.Definition) {
	for _, s := range services {
		flags.StringP(endpointFlag(s.Key), s.Shorthand, "", fmt.Sprintf("Override %s endpoint (default %s)", s.Name, s.DefaultEndpoint))
	}

	flags.StringSliceP("exclude", "x", nil, "Services to skip (can be used multiple times)")
	flags.IntP("limit", "n", 0, "Maximum number of samples to fetch (0 for no limit)")
	flags.BoolP("replace", "r", false, "Replace existing sample files and index entries")
	flags.DurationP("timeout", "t", DefaultTimeout, "Per-request timeout")
	flags.Duration("pause", DefaultPause, "Pause after each fetched test case")
	flags.Bool("showui", false, "Show browser UI (disable headless mode)")
	flags.String("browser-bin", "", "Path to the Chromium binary (default: located or downloaded by rod)")
	flags.String("root", ".", "Directory holding test-case-files, response-samples and logs")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("config", "", "Path to configuration file (YAML, JSON or TOML)")
}

func endpointFlag(service string) string {
	return service + "-endpoint"
}
