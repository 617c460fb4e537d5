package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"IndexLens/internal/model"
)

func fixedBars(start time.Time, n int, open float64) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		bars[i] = model.Bar{
			Time: start.Add(time.Duration(i) * time.Hour),
			Open: open, High: open + 1, Low: open - 1, Close: open + 0.5, AdjClose: open + 0.5, Volume: 10,
		}
	}
	return bars
}

func TestDownload_AllSymbols(t *testing.T) {
	t0 := time.Date(2024, 2, 1, 15, 0, 0, 0, time.UTC)
	mock := &MockFetcher{Bars: map[string][]model.Bar{
		"AAA": fixedBars(t0, 3, 10),
		"BBB": fixedBars(t0.Add(time.Hour), 2, 20),
	}}
	c := NewCollector(mock, DefaultWindow, zap.NewNop())

	dl, err := c.Download(context.Background(), []string{"AAA", "BBB"})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "BBB"}, mock.Calls, "symbols are fetched in order")
	assert.Empty(t, dl.Failed)
	assert.Equal(t, 3, dl.Table.Len())
	assert.Equal(t, []string{"AAA", "BBB"}, dl.Table.Symbols())
	assert.Equal(t, 20.0, dl.Table.Value(model.FieldOpen, "BBB", 1))
}

func TestDownload_PartialFailure(t *testing.T) {
	t0 := time.Date(2024, 2, 1, 15, 0, 0, 0, time.UTC)
	mock := &MockFetcher{
		Bars:   map[string][]model.Bar{"AAA": fixedBars(t0, 2, 10), "EMPTY": {}},
		Errors: map[string]error{"BAD": errors.New("delisted")},
	}
	c := NewCollector(mock, DefaultWindow, zap.NewNop())

	dl, err := c.Download(context.Background(), []string{"BAD", "AAA", "EMPTY"})
	require.NoError(t, err)
	assert.Len(t, dl.Failed, 2)
	assert.Contains(t, dl.Failed, "BAD")
	assert.Contains(t, dl.Failed, "EMPTY")
	assert.Equal(t, []string{"AAA"}, dl.Table.Symbols())
}

func TestDownload_Failures(t *testing.T) {
	c := NewCollector(&MockFetcher{Errors: map[string]error{"X": errors.New("boom")}}, DefaultWindow, zap.NewNop())

	_, err := c.Download(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSymbols)
	assert.ErrorIs(t, err, ErrDownload)

	_, err = c.Download(context.Background(), []string{"X"})
	assert.ErrorIs(t, err, ErrDownload)
	assert.Contains(t, err.Error(), "boom")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Download(ctx, []string{"Y"})
	assert.ErrorIs(t, err, ErrDownload)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockFetcher_Generated(t *testing.T) {
	bars, err := (&MockFetcher{}).FetchBars(context.Background(), "ANY", DefaultWindow)
	require.NoError(t, err)
	assert.Len(t, bars, 5)
}
