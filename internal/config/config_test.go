package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resolversampler/internal/sampler"
)

var services = []sampler.Definition{
	{Key: "getit", Name: "GetIt", DefaultEndpoint: "https://dev.getit.library.nyu.edu/resolve", Shorthand: "g", Rank: 10},
	{Key: "sfx", Name: "SFX", DefaultEndpoint: "http://sfx.library.nyu.edu/sfxlcl41", Shorthand: "s", Rank: 20},
	{Key: "ariadne", Name: "Ariadne", DefaultEndpoint: "http://localhost:3000/", Shorthand: "a", Rank: 30},
}

func parse(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs, services)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(parse(t), services)
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Root)
	assert.Empty(t, cfg.Endpoints)
	assert.Empty(t, cfg.Exclude)
	assert.Equal(t, 0, cfg.Limit)
	assert.False(t, cfg.Replace)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultPause, cfg.Pause)
	assert.False(t, cfg.ShowUI)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, filepath.Join(".", "test-case-files"), cfg.TestCaseDir())
	assert.Equal(t, filepath.Join(".", "response-samples"), cfg.SamplesDir())
	assert.Equal(t, filepath.Join(".", "logs"), cfg.LogsDir())
}

func TestLoadFlags(t *testing.T) {
	cfg, err := Load(parse(t,
		"-g", "http://localhost:3001/resolve",
		"--sfx-endpoint", "http://localhost:3002/sfx",
		"-x", "ariadne",
		"-n", "5",
		"-r",
		"-t", "30s",
		"--pause", "0s",
		"--showui",
		"--root", "/data",
	), services)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"getit": "http://localhost:3001/resolve",
		"sfx":   "http://localhost:3002/sfx",
	}, cfg.Endpoints)
	assert.Equal(t, []string{"ariadne"}, cfg.Exclude)
	assert.Equal(t, 5, cfg.Limit)
	assert.True(t, cfg.Replace)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, time.Duration(0), cfg.Pause)
	assert.True(t, cfg.ShowUI)
	assert.Equal(t, "/data", cfg.Root)

	selected := cfg.Selected(services)
	require.Len(t, selected, 2)
	assert.Equal(t, "getit", selected[0].Key)
	assert.Equal(t, "sfx", selected[1].Key)
}

func TestLoadPrecedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sampler.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
endpoints:
  getit: http://file/resolve
  sfx: http://file/sfx
  ariadne: http://file/ariadne
exclude: [sfx]
limit: 10
timeout: 2m
`), 0644))

	t.Setenv("RESOLVER_SAMPLER_ENDPOINTS_SFX", "http://env/sfx")
	t.Setenv("RESOLVER_SAMPLER_LIMIT", "20")
	t.Setenv("RESOLVER_SAMPLER_EXCLUDE", "getit,ariadne")

	cfg, err := Load(parse(t, "--config", file, "-g", "http://flag/resolve", "-x", "ariadne"), services)
	require.NoError(t, err)

	assert.Equal(t, "http://flag/resolve", cfg.Endpoints["getit"], "flag beats file")
	assert.Equal(t, "http://env/sfx", cfg.Endpoints["sfx"], "env beats file")
	assert.Equal(t, "http://file/ariadne", cfg.Endpoints["ariadne"])
	assert.Equal(t, 20, cfg.Limit, "env beats file")
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, []string{"ariadne"}, cfg.Exclude, "flag beats env")
	assert.Equal(t, file, cfg.ConfigFile)
}

func TestLoadExcludeFromEnv(t *testing.T) {
	t.Setenv("RESOLVER_SAMPLER_EXCLUDE", "SFX, ariadne")

	cfg, err := Load(parse(t), services)
	require.NoError(t, err)
	assert.Equal(t, []string{"sfx", "ariadne"}, cfg.Exclude)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown service", []string{"-x", "primo"}, "unknown service"},
		{"everything excluded", []string{"-x", "getit,sfx,ariadne"}, "every service is excluded"},
		{"negative limit", []string{"--limit=-1"}, "invalid limit"},
		{"negative timeout", []string{"--timeout=-1s"}, "invalid timeout"},
		{"missing config file", []string{"--config", "/nonexistent/sampler.yaml"}, "failed to read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(parse(t, tt.args...), services)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestUnknownServiceIsSentinel(t *testing.T) {
	_, err := Load(parse(t, "-x", "primo"), services)
	assert.ErrorIs(t, err, sampler.ErrUnknownService)
}
