package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IndexLens/internal/collector"
	"IndexLens/internal/membership"
	"IndexLens/internal/model"
	"IndexLens/internal/pipeline"
)

var ts = time.Date(2024, 7, 1, 13, 30, 0, 0, time.UTC)

func sample() *model.TidyTable {
	return &model.TidyTable{Joined: true, Rows: []model.TidyRow{
		{Datetime: ts, Symbol: "ABC", Open: 10, High: 11, Low: 10, Close: 11, AdjClose: 11, Volume: 1200,
			Return: 0.1, DollarReturn: 1.1, Company: &model.CompanyInfo{
				CompanyName: "Acme Co", Industry: "Industrials", SubIndustry: "Tools",
				HeadquartersLocation: "Springfield", DateAdded: "2001-01-01", Founded: "1990"}},
		{Datetime: ts, Symbol: "NEW", Open: 0, High: 1, Low: 0, Close: 1, AdjClose: 1, Volume: 7,
			Return: math.NaN(), DollarReturn: math.NaN()},
	}}
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "11.00", Number(11, 2))
	assert.Equal(t, "0.100000", Number(0.1, 6))
	assert.Equal(t, "1.23", Number(1.2345, 2))
	assert.Equal(t, "NaN", Number(math.NaN(), 2))
	assert.Equal(t, "Inf", Number(math.Inf(1), 2))
}

func TestCells(t *testing.T) {
	rows := sample().Rows
	cells := Cells(rows[0])
	require.Len(t, cells, len(Columns))
	assert.Equal(t, []string{
		"2024-07-01 13:30:00", "ABC", "11.00", "11.00", "11.00", "10.00", "10.00", "1200",
		"0.100000", "Acme Co", "Industrials", "Tools", "Springfield", "2001-01-01", "1990", "1.100000",
	}, cells)

	unmatched := Cells(rows[1])
	assert.Equal(t, "NaN", unmatched[8])
	assert.Equal(t, "NaN", unmatched[15])
	for _, c := range unmatched[9:15] {
		assert.Empty(t, c)
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sample(), Options{}))
	out := buf.String()
	assert.Contains(t, out, "Dollar_Return")
	assert.Contains(t, out, "Acme Co")
	assert.Contains(t, out, "NEW")

	buf.Reset()
	require.NoError(t, Text(&buf, sample(), Options{Limit: 1}))
	assert.NotContains(t, buf.String(), "NEW")

	buf.Reset()
	require.NoError(t, Text(&buf, nil, Options{}))
	assert.Contains(t, buf.String(), "Symbol")
}

func TestMarkdownSource(t *testing.T) {
	md := MarkdownSource(sample(), Options{})
	assert.True(t, strings.HasPrefix(md, "# "+Title))
	assert.Contains(t, md, "| Datetime | Symbol | Adj Close |")
	assert.Contains(t, md, "| 2024-07-01 13:30:00 | ABC | 11.00 |")
	assert.Equal(t, 2+2, strings.Count(md, "\n|"), "header, separator and two rows")
}

func TestMarkdownSource_EscapesPipes(t *testing.T) {
	tbl := sample()
	tbl.Rows[0].Company.CompanyName = "A|B"
	assert.Contains(t, MarkdownSource(tbl, Options{Limit: 1}), `A\|B`)
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, sample(), Options{}))
	assert.Contains(t, buf.String(), Title)
	assert.Contains(t, buf.String(), "ABC")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sample(), Options{}))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "ABC", got[0]["Symbol"])
	assert.Equal(t, 0.1, got[0]["Return"])
	assert.Equal(t, "1990", got[0]["Founded"])
	assert.Equal(t, "2024-07-01T13:30:00Z", got[0]["Datetime"])

	assert.Nil(t, got[1]["Return"], "NaN is null")
	assert.Nil(t, got[1]["Company_Name"], "unmatched metadata is null")
	assert.Contains(t, got[1], "Company_Name")
	assert.Contains(t, buf.String(), "\n  ", "output is indented")
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, sample()))
	out := buf.String()
	assert.Contains(t, out, "Mean Return")
	assert.Contains(t, out, "ABC")
	assert.Contains(t, out, "0.100000")
	assert.Contains(t, out, "NaN")
}

func TestBanner(t *testing.T) {
	assert.Empty(t, Banner(""))
	assert.Contains(t, Banner("Error fetching index membership: boom"), "Error fetching index membership: boom")
}

func TestModel_LoadAndQuit(t *testing.T) {
	loads := 0
	loader := func(context.Context) (*pipeline.Result, error) {
		loads++
		return &pipeline.Result{
			Source:   "mock",
			Symbols:  []string{"ABC", "NEW", "BAD"},
			Final:    sample(),
			Download: &collector.Download{Failed: map[string]error{"BAD": errors.New("delisted")}},
		}, nil
	}
	m := NewModel(context.Background(), loader)
	assert.Contains(t, m.View(), "Loading")

	msg := m.Init()()
	next, cmd := m.Update(msg)
	assert.Nil(t, cmd)
	m = next.(Model)
	assert.Equal(t, 1, loads)

	view := m.View()
	assert.Contains(t, view, Title)
	assert.Contains(t, view, "ABC")
	assert.Contains(t, view, "2 rows")
	assert.Contains(t, view, "1 failed: BAD")

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Loading")
	m2, _ := m.Update(cmd())
	assert.Equal(t, 2, loads)
	assert.NotContains(t, m2.View(), "Loading")

	_, cmd = m2.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_ShowsBanner(t *testing.T) {
	loader := func(context.Context) (*pipeline.Result, error) {
		return &pipeline.Result{}, &pipeline.StageError{Stage: pipeline.StageFetch, Err: membership.ErrNoTable}
	}
	m := NewModel(context.Background(), loader)
	next, _ := m.Update(m.Init()())
	view := next.View()
	assert.Contains(t, view, "Error fetching index membership")
	assert.NotContains(t, view, "Loading")
}
