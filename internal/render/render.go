package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
	"github.com/tidwall/pretty"

	"IndexLens/internal/calculator"
	"IndexLens/internal/model"
)

// Title and Description name the default membership source. They do not
// follow membership.url; a different index keeps the S&P 500 heading.
const (
	Title       = "S&P 500 Analysis"
	Description = "An interactive analysis of S&P 500 companies, allowing users to view historical stock data, returns, and additional company information."

	TimeLayout = "2006-01-02 15:04:05"
)

// Columns is the display order of the final table.
var Columns = []string{
	"Datetime", "Symbol", "Adj Close", "Close", "High", "Low", "Open", "Volume",
	"Return", "Company_Name", "Industry", "Sub_Industry", "Headquarters_Location",
	"Date_Added", "Founded", "Dollar_Return",
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// Options controls one-shot output.
type Options struct {
	// Limit caps the rendered rows; zero renders everything.
	Limit int
}

func (o Options) rows(t *model.TidyTable) []model.TidyRow {
	if t == nil {
		return nil
	}
	if o.Limit > 0 && o.Limit < len(t.Rows) {
		return t.Rows[:o.Limit]
	}
	return t.Rows
}

// Number rounds v to places decimals. NaN stays NaN.
func Number(v float64, places int32) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// Cells formats one row in Columns order.
func Cells(r model.TidyRow) []string {
	var info model.CompanyInfo
	if r.Company != nil {
		info = *r.Company
	}
	return []string{
		r.Datetime.UTC().Format(TimeLayout),
		r.Symbol,
		Number(r.AdjClose, 2),
		Number(r.Close, 2),
		Number(r.High, 2),
		Number(r.Low, 2),
		Number(r.Open, 2),
		Number(r.Volume, 0),
		Number(r.Return, 6),
		info.CompanyName,
		info.Industry,
		info.SubIndustry,
		info.HeadquartersLocation,
		info.DateAdded,
		info.Founded,
		Number(r.DollarReturn, 6),
	}
}

func newTable(headers []string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// Text writes the table as a bordered terminal grid.
func Text(w io.Writer, t *model.TidyTable, opts Options) error {
	tbl := newTable(Columns)
	for _, r := range opts.rows(t) {
		tbl.Row(Cells(r)...)
	}
	_, err := fmt.Fprintln(w, tbl.String())
	return err
}

// MarkdownSource builds the markdown document rendered by Markdown.
func MarkdownSource(t *model.TidyTable, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n### Data Table:\n\n", Title, Description)

	b.WriteString("| " + strings.Join(Columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(Columns)) + "\n")
	for _, r := range opts.rows(t) {
		cells := Cells(r)
		for i, c := range cells {
			cells[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

// Markdown renders the table through glamour.
func Markdown(w io.Writer, t *model.TidyTable, opts Options) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(240),
	)
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(MarkdownSource(t, opts))
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

type jsonRow struct {
	Datetime             string   `json:"Datetime"`
	Symbol               string   `json:"Symbol"`
	AdjClose             *float64 `json:"Adj Close"`
	Close                *float64 `json:"Close"`
	High                 *float64 `json:"High"`
	Low                  *float64 `json:"Low"`
	Open                 *float64 `json:"Open"`
	Volume               *float64 `json:"Volume"`
	Return               *float64 `json:"Return"`
	CompanyName          *string  `json:"Company_Name"`
	Industry             *string  `json:"Industry"`
	SubIndustry          *string  `json:"Sub_Industry"`
	HeadquartersLocation *string  `json:"Headquarters_Location"`
	DateAdded            *string  `json:"Date_Added"`
	Founded              *string  `json:"Founded"`
	DollarReturn         *float64 `json:"Dollar_Return"`
}

// num maps NaN and Inf to null, which JSON cannot otherwise carry.
func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func toJSONRow(r model.TidyRow) jsonRow {
	out := jsonRow{
		Datetime:     r.Datetime.UTC().Format(time.RFC3339),
		Symbol:       r.Symbol,
		AdjClose:     num(r.AdjClose),
		Close:        num(r.Close),
		High:         num(r.High),
		Low:          num(r.Low),
		Open:         num(r.Open),
		Volume:       num(r.Volume),
		Return:       num(r.Return),
		DollarReturn: num(r.DollarReturn),
	}
	if c := r.Company; c != nil {
		out.CompanyName = &c.CompanyName
		out.Industry = &c.Industry
		out.SubIndustry = &c.SubIndustry
		out.HeadquartersLocation = &c.HeadquartersLocation
		out.DateAdded = &c.DateAdded
		out.Founded = &c.Founded
	}
	return out
}

// JSON writes the rows as an indented array. Missing values become null.
func JSON(w io.Writer, t *model.TidyTable, opts Options) error {
	src := opts.rows(t)
	rows := make([]jsonRow, 0, len(src))
	for _, r := range src {
		rows = append(rows, toJSONRow(r))
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	_, err := w.Write(pretty.Pretty(buf.Bytes()))
	return err
}

// Summary writes one line per symbol with its aggregates.
func Summary(w io.Writer, t *model.TidyTable) error {
	var rows []model.TidyRow
	if t != nil {
		rows = t.Rows
	}
	tbl := newTable([]string{"Symbol", "Bars", "Mean Return", "Total Dollar_Return", "High", "Low", "Last Adj Close"})
	for _, s := range calculator.Summarize(rows) {
		tbl.Row(
			s.Symbol,
			strconv.Itoa(s.Bars),
			Number(s.MeanReturn, 6),
			Number(s.TotalDollarReturn, 6),
			Number(s.High, 2),
			Number(s.Low, 2),
			Number(s.LastAdjClose, 2),
		)
	}
	_, err := fmt.Fprintln(w, tbl.String())
	return err
}

// Banner styles a failure message. The message text comes from msg.
func Banner(msg string) string {
	if msg == "" {
		return ""
	}
	return bannerStyle.Render(msg)
}
