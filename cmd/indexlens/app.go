package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"IndexLens/internal/collector"
	"IndexLens/internal/config"
	"IndexLens/internal/logging"
	"IndexLens/internal/membership"
	"IndexLens/internal/pipeline"
)

// app holds the wiring shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	pipeline *pipeline.Pipeline
}

func configPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

// newApp loads config, builds the logger and wires the pipeline.
// quiet discards logs unless a log file is configured.
func newApp(quiet bool) (*app, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	logger := zap.NewNop()
	if !quiet || cfg.Log.File != "" {
		logger, err = logging.New(logging.Options{
			Level:       cfg.Log.Level,
			Development: cfg.Log.Development,
			File:        cfg.Log.File,
		})
		if err != nil {
			return nil, err
		}
	}

	var fetcher collector.Fetcher
	switch cfg.Prices.Source {
	case "alpaca":
		fetcher = collector.NewAlpacaFetcher(cfg.Prices.Alpaca.APIKey, cfg.Prices.Alpaca.APISecret, "",
			cfg.Prices.Alpaca.Feed, cfg.HTTP.Proxy, cfg.HTTP.Timeout)
	default:
		fetcher = collector.NewYahooFetcher(cfg.Prices.YahooBaseURL, cfg.HTTP.Proxy, cfg.HTTP.Timeout, cfg.Prices.SymbolMap)
	}
	logger.Info("price source selected", zap.String("source", fetcher.Name()))

	window := collector.Window{Range: cfg.Prices.Range, Interval: cfg.Prices.Interval}
	members := membership.NewFetcher(membership.Options{
		URL:       cfg.Membership.URL,
		UserAgent: cfg.Membership.UserAgent,
		Proxy:     cfg.HTTP.Proxy,
		Timeout:   cfg.HTTP.Timeout,
	}, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline.New(members, collector.NewCollector(fetcher, window, logger), logger),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}
