package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"IndexLens/internal/model"
)

var (
	// ErrDownload marks every failure of the price download step.
	ErrDownload = errors.New("price download failed")
	// ErrNoSymbols is returned for an empty symbol list.
	ErrNoSymbols = fmt.Errorf("%w: no symbols requested", ErrDownload)
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Bars   map[string][]model.Bar
	Errors map[string]error
	Calls  []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, symbol string, _ Window) ([]model.Bar, error) {
	m.Calls = append(m.Calls, symbol)
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	return generateMockBars(100, 5), nil
}

func generateMockBars(basePrice float64, count int) []model.Bar {
	start := time.Now().UTC().Truncate(time.Hour).Add(-time.Duration(count) * time.Hour)
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Time:     start.Add(time.Duration(i) * time.Hour),
			Open:     p * 0.999,
			High:     p * 1.005,
			Low:      p * 0.995,
			Close:    p,
			AdjClose: p,
			Volume:   1000000,
		}
	}
	return bars
}

// Download is the outcome of one multi-symbol download.
type Download struct {
	Table  *model.WideTable
	Failed map[string]error
}

// Collector downloads price history for a symbol set.
type Collector struct {
	Fetcher Fetcher
	Window  Window
	Logger  *zap.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, window Window, logger *zap.Logger) *Collector {
	return &Collector{Fetcher: fetcher, Window: window, Logger: logger}
}

// Name reports the provider behind the collector.
func (c *Collector) Name() string { return c.Fetcher.Name() }

// Download fetches every symbol in order, one request at a time, and assembles
// the results into a wide table. Symbols that fail are reported in Failed;
// the download only fails as a whole when no symbol succeeds.
func (c *Collector) Download(ctx context.Context, symbols []string) (*Download, error) {
	if len(symbols) == 0 {
		c.Logger.Error("download prices", zap.Error(ErrNoSymbols))
		return nil, ErrNoSymbols
	}

	builder := model.NewWideBuilder()
	failed := make(map[string]error)
	var errs []error
	ok := 0

	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("%w: %w", ErrDownload, err)
			c.Logger.Error("download prices", zap.Error(err))
			return nil, err
		}
		bars, err := c.Fetcher.FetchBars(ctx, sym, c.Window)
		if err == nil && len(bars) == 0 {
			err = errors.New("no bars in window")
		}
		if err != nil {
			c.Logger.Warn("symbol download failed", zap.String("symbol", sym), zap.Error(err))
			failed[sym] = err
			errs = append(errs, fmt.Errorf("%s: %w", sym, err))
			continue
		}
		builder.Add(sym, bars)
		ok++
	}

	if ok == 0 {
		err := fmt.Errorf("%w: all %d symbols failed: %w", ErrDownload, len(symbols), errors.Join(errs...))
		c.Logger.Error("download prices", zap.Error(err))
		return nil, err
	}

	table := builder.Build()
	c.Logger.Info("prices downloaded",
		zap.String("source", c.Fetcher.Name()),
		zap.Int("symbols", ok),
		zap.Int("failed", len(failed)),
		zap.Int("timestamps", table.Len()))
	return &Download{Table: table, Failed: failed}, nil
}
