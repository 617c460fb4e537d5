package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"IndexLens/internal/model"
)

// AlpacaFetcher implements Fetcher using the Alpaca market data API.
type AlpacaFetcher struct {
	Client *marketdata.Client
	Feed   marketdata.Feed
	now    func() time.Time
}

// NewAlpacaFetcher creates a fetcher with optional proxy support.
// baseURL may be empty to use the production data endpoint.
func NewAlpacaFetcher(apiKey, apiSecret, baseURL, feed, proxyURL string, timeout time.Duration) *AlpacaFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	})
	return &AlpacaFetcher{Client: client, Feed: marketdata.Feed(feed), now: time.Now}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

func (f *AlpacaFetcher) FetchBars(ctx context.Context, symbol string, w Window) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tf, err := alpacaTimeFrame(w.Interval)
	if err != nil {
		return nil, err
	}
	end := f.now().UTC()
	start, err := windowStart(end, w.Range)
	if err != nil {
		return nil, err
	}

	req := marketdata.GetBarsRequest{
		TimeFrame:  tf,
		Adjustment: marketdata.Raw,
		Start:      start,
		End:        end,
		Feed:       f.Feed,
	}
	raw, err := f.Client.GetBars(symbol, req)
	if err != nil {
		return nil, fmt.Errorf("alpaca bars: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("alpaca: no data returned")
	}

	req.Adjustment = marketdata.All
	adjusted, err := f.Client.GetBars(symbol, req)
	if err != nil {
		return nil, fmt.Errorf("alpaca adjusted bars: %w", err)
	}
	return mergeAdjusted(raw, adjusted), nil
}

// mergeAdjusted converts raw bars and takes Adj Close from the fully adjusted
// series by timestamp. Bars without an adjusted twin keep their raw close.
func mergeAdjusted(raw, adjusted []marketdata.Bar) []model.Bar {
	adjClose := make(map[int64]float64, len(adjusted))
	for _, b := range adjusted {
		adjClose[b.Timestamp.UnixNano()] = b.Close
	}
	bars := make([]model.Bar, 0, len(raw))
	for _, b := range raw {
		ac, ok := adjClose[b.Timestamp.UnixNano()]
		if !ok {
			ac = b.Close
		}
		bars = append(bars, model.Bar{
			Time:     b.Timestamp.UTC(),
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			AdjClose: ac,
			Volume:   float64(b.Volume),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars
}

func alpacaTimeFrame(interval string) (marketdata.TimeFrame, error) {
	switch interval {
	case "1h":
		return marketdata.OneHour, nil
	case "1d":
		return marketdata.OneDay, nil
	}
	return marketdata.TimeFrame{}, fmt.Errorf("alpaca: unsupported interval %q", interval)
}

// windowStart subtracts a range like "1y" or "6mo" from end.
func windowStart(end time.Time, rng string) (time.Time, error) {
	switch {
	case strings.HasSuffix(rng, "mo"):
		n, err := strconv.Atoi(strings.TrimSuffix(rng, "mo"))
		if err != nil || n <= 0 {
			return time.Time{}, fmt.Errorf("invalid range %q", rng)
		}
		return end.AddDate(0, -n, 0), nil
	case strings.HasSuffix(rng, "y"):
		n, err := strconv.Atoi(strings.TrimSuffix(rng, "y"))
		if err != nil || n <= 0 {
			return time.Time{}, fmt.Errorf("invalid range %q", rng)
		}
		return end.AddDate(-n, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("invalid range %q", rng)
}
