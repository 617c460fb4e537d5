package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"INDEXLENS_MEMBERSHIP_URL", "INDEXLENS_PRICE_SOURCE", "ALPACA_API_KEY", "ALPACA_SECRET_KEY",
		"HTTPS_PROXY", "INDEXLENS_RECORDER_DRIVER", "INDEXLENS_RECORDER_DSN", "DATABASE_URL",
		"INDEXLENS_REFRESH_CRON", "INDEXLENS_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultMembershipURL, cfg.Membership.URL)
	assert.Equal(t, "yahoo", cfg.Prices.Source)
	assert.Equal(t, "1y", cfg.Prices.Range)
	assert.Equal(t, "1h", cfg.Prices.Interval)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "", cfg.Recorder.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
membership:
  url: https://example.test/list
prices:
  source: yahoo
  symbol_map:
    BF.B: BF-B
http:
  timeout: 5s
recorder:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("INDEXLENS_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/list", cfg.Membership.URL)
	assert.Equal(t, "BF-B", cfg.Prices.SymbolMap["BF.B"])
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "data/indexlens.db", cfg.Recorder.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_DatabaseURLSelectsPostgres(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db?sslmode=disable")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Recorder.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DatabaseURLKeepsSQLite(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db?sslmode=disable")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recorder:\n  driver: sqlite\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Recorder.Driver)
	assert.Equal(t, "data/indexlens.db", cfg.Recorder.DSN)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prices: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown source", func(c *Config) { c.Prices.Source = "bloomberg" }},
		{"alpaca without keys", func(c *Config) { c.Prices.Source = "alpaca" }},
		{"bad range", func(c *Config) { c.Prices.Range = "10y" }},
		{"bad interval", func(c *Config) { c.Prices.Interval = "1m" }},
		{"postgres without dsn", func(c *Config) { c.Recorder.Driver = "postgres" }},
		{"unknown driver", func(c *Config) { c.Recorder.Driver = "mysql"; c.Recorder.DSN = "x" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
