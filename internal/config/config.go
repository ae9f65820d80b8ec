// Package config resolves run settings from flags, environment and an
// optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"resolversampler/internal/sampler"
)

// EnvPrefix prefixes environment overrides, e.g.
// RESOLVER_SAMPLER_ENDPOINTS_GETIT or RESOLVER_SAMPLER_TIMEOUT.
const EnvPrefix = "RESOLVER_SAMPLER"

const (
	TestCaseDirName = "test-case-files"
	SamplesDirName  = "response-samples"
	LogsDirName     = "logs"
)

// Config holds the settings of one run.
type Config struct {
	Root       string
	ConfigFile string
	Endpoints  map[string]string
	Exclude    []string
	Limit      int
	Replace    bool
	Timeout    time.Duration
	Pause      time.Duration
	ShowUI     bool
	BrowserBin string
	LogLevel   string
}

func (c *Config) TestCaseDir() string { return filepath.Join(c.Root, TestCaseDirName) }
func (c *Config) SamplesDir() string  { return filepath.Join(c.Root, SamplesDirName) }
func (c *Config) LogsDir() string     { return filepath.Join(c.Root, LogsDirName) }

// Load reads the settings for services from flags, the environment and the
// file named by --config.
func Load(flags *pflag.FlagSet, services []sampler.Definition) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"exclude":     "exclude",
		"limit":       "limit",
		"replace":     "replace",
		"timeout":     "timeout",
		"pause":       "pause",
		"showui":      "showui",
		"browser_bin": "browser-bin",
		"root":        "root",
		"log_level":   "log-level",
	}
	for _, s := range services {
		bindings["endpoints."+s.Key] = endpointFlag(s.Key)
	}
	for key, name := range bindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	configFile, _ := flags.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Root:       v.GetString("root"),
		ConfigFile: configFile,
		Endpoints:  make(map[string]string, len(services)),
		Exclude:    splitList(v.GetStringSlice("exclude")),
		Limit:      v.GetInt("limit"),
		Replace:    v.GetBool("replace"),
		Timeout:    v.GetDuration("timeout"),
		Pause:      v.GetDuration("pause"),
		ShowUI:     v.GetBool("showui"),
		BrowserBin: v.GetString("browser_bin"),
		LogLevel:   v.GetString("log_level"),
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	for _, s := range services {
		if endpoint := v.GetString("endpoints." + s.Key); endpoint != "" {
			cfg.Endpoints[s.Key] = endpoint
		}
	}

	if err := cfg.validate(services); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate(services []sampler.Definition) error {
	if c.Limit < 0 {
		return fmt.Errorf("invalid limit: %d", c.Limit)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}
	if c.Pause < 0 {
		return fmt.Errorf("invalid pause: %s", c.Pause)
	}

	known := make(map[string]bool, len(services))
	for _, s := range services {
		known[s.Key] = true
	}
	excluded := map[string]bool{}
	for _, key := range c.Exclude {
		if !known[key] {
			return fmt.Errorf("%w: %q", sampler.ErrUnknownService, key)
		}
		excluded[key] = true
	}
	if len(services) > 0 && len(excluded) == len(services) {
		return errors.New("every service is excluded")
	}
	return nil
}

// Selected returns the services that are not excluded, in run order.
func (c *Config) Selected(services []sampler.Definition) []sampler.Definition {
	excluded := map[string]bool{}
	for _, key := range c.Exclude {
		excluded[key] = true
	}
	var selected []sampler.Definition
	for _, s := range services {
		if !excluded[s.Key] {
			selected = append(selected, s)
		}
	}
	return selected
}

// splitList accepts both repeated values and comma separated ones, which is
// what environment variables and config files provide.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
