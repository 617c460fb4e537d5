package collector

import (
	"context"

	"IndexLens/internal/model"
)

// Window is the trailing period and bar granularity requested from a provider.
type Window struct {
	Range    string // "1y", "6mo", ...
	Interval string // "1h" or "1d"
}

// DefaultWindow is one year of hourly bars.
var DefaultWindow = Window{Range: "1y", Interval: "1h"}

// Fetcher defines the interface for fetching price history of one symbol.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, w Window) ([]model.Bar, error)
	Name() string
}
