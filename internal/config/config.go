package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultMembershipURL lists the S&P 500 constituents in its first table.
const DefaultMembershipURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// Config holds all application configuration.
type Config struct {
	Membership struct {
		URL       string `yaml:"url"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"membership"`
	Prices struct {
		Source       string            `yaml:"source"` // "yahoo" or "alpaca"
		Range        string            `yaml:"range"`
		Interval     string            `yaml:"interval"`
		YahooBaseURL string            `yaml:"yahoo_base_url"`
		SymbolMap    map[string]string `yaml:"symbol_map"`
		Alpaca       struct {
			APIKey    string `yaml:"api_key"`
			APISecret string `yaml:"api_secret"`
			Feed      string `yaml:"feed"`
		} `yaml:"alpaca"`
	} `yaml:"prices"`
	HTTP struct {
		Timeout time.Duration `yaml:"timeout"`
		Proxy   string        `yaml:"proxy"`
	} `yaml:"http"`
	Recorder struct {
		Driver string `yaml:"driver"` // "", "sqlite" or "postgres"
		DSN    string `yaml:"dsn"`
	} `yaml:"recorder"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
		File        string `yaml:"file"`
	} `yaml:"log"`
}

// Ranges and intervals accepted by the price providers.
var (
	validRanges    = map[string]bool{"1mo": true, "3mo": true, "6mo": true, "1y": true, "2y": true}
	validIntervals = map[string]bool{"1h": true, "1d": true}
)

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("INDEXLENS_MEMBERSHIP_URL"); v != "" {
		c.Membership.URL = v
	}
	if v := os.Getenv("INDEXLENS_PRICE_SOURCE"); v != "" {
		c.Prices.Source = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		c.Prices.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_SECRET_KEY"); v != "" {
		c.Prices.Alpaca.APISecret = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.HTTP.Proxy = v
	}
	if v := os.Getenv("INDEXLENS_RECORDER_DRIVER"); v != "" {
		c.Recorder.Driver = v
	}
	if v := os.Getenv("INDEXLENS_RECORDER_DSN"); v != "" {
		c.Recorder.DSN = v
	}
	// DATABASE_URL is the usual postgres shortcut. It never overrides another driver.
	if v := os.Getenv("DATABASE_URL"); v != "" && c.Recorder.DSN == "" &&
		(c.Recorder.Driver == "" || c.Recorder.Driver == "postgres") {
		c.Recorder.Driver = "postgres"
		c.Recorder.DSN = v
	}
	if v := os.Getenv("INDEXLENS_REFRESH_CRON"); v != "" {
		c.Schedule.RefreshCron = v
	}
	if v := os.Getenv("INDEXLENS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Membership.URL == "" {
		c.Membership.URL = DefaultMembershipURL
	}
	if c.Membership.UserAgent == "" {
		c.Membership.UserAgent = "Mozilla/5.0"
	}
	if c.Prices.Source == "" {
		c.Prices.Source = "yahoo"
	}
	if c.Prices.Range == "" {
		c.Prices.Range = "1y"
	}
	if c.Prices.Interval == "" {
		c.Prices.Interval = "1h"
	}
	if c.Prices.YahooBaseURL == "" {
		c.Prices.YahooBaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Prices.Alpaca.Feed == "" {
		c.Prices.Alpaca.Feed = "iex"
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 30 * time.Second
	}
	if c.Recorder.Driver == "sqlite" && c.Recorder.DSN == "" {
		c.Recorder.DSN = "data/indexlens.db"
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 0 * * * 1-5"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Prices.Source {
	case "yahoo":
	case "alpaca":
		if c.Prices.Alpaca.APIKey == "" || c.Prices.Alpaca.APISecret == "" {
			return fmt.Errorf("prices.alpaca.api_key and api_secret are required for the alpaca source")
		}
	default:
		return fmt.Errorf("prices.source %q is not supported", c.Prices.Source)
	}
	if !validRanges[c.Prices.Range] {
		return fmt.Errorf("prices.range %q is not supported", c.Prices.Range)
	}
	if !validIntervals[c.Prices.Interval] {
		return fmt.Errorf("prices.interval %q is not supported", c.Prices.Interval)
	}
	switch c.Recorder.Driver {
	case "":
	case "sqlite", "postgres":
		if c.Recorder.DSN == "" {
			return fmt.Errorf("recorder.dsn is required for driver %q", c.Recorder.Driver)
		}
	default:
		return fmt.Errorf("recorder.driver %q is not supported", c.Recorder.Driver)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative")
	}
	return nil
}
