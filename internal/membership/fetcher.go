// Package membership retrieves the constituent table of an index from a web document.
package membership

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"IndexLens/internal/model"
)

var (
	// ErrFetch marks every failure of the membership step.
	ErrFetch = errors.New("membership fetch failed")
	// ErrNoTable means the document held no table with a header and data rows.
	ErrNoTable = fmt.Errorf("%w: no parseable table", ErrFetch)
	// ErrNoSymbolColumn means the first table has no Symbol column.
	ErrNoSymbolColumn = fmt.Errorf("%w: no Symbol column", ErrFetch)
	// ErrNoSymbols means the Symbol column is empty.
	ErrNoSymbols = fmt.Errorf("%w: no symbols", ErrFetch)
)

// SymbolColumn is the identifier column of the membership table.
const SymbolColumn = "Symbol"

// Options configures a Fetcher.
type Options struct {
	URL       string
	UserAgent string
	Proxy     string
	Timeout   time.Duration
}

// Fetcher downloads a membership document and extracts its first table.
type Fetcher struct {
	URL       string
	UserAgent string
	Client    *http.Client
	Logger    *zap.Logger
}

// NewFetcher creates a fetcher with optional proxy support.
func NewFetcher(opts Options, logger *zap.Logger) *Fetcher {
	transport := &http.Transport{}
	if opts.Proxy != "" {
		if u, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Fetcher{
		URL:       opts.URL,
		UserAgent: opts.UserAgent,
		Client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		Logger: logger,
	}
}

// Fetch retrieves the document and returns its first table.
func (f *Fetcher) Fetch(ctx context.Context) (*model.Table, error) {
	t, err := f.fetch(ctx)
	if err != nil {
		f.Logger.Error("fetch membership table", zap.String("url", f.URL), zap.Error(err))
		return nil, err
	}
	f.Logger.Info("membership table fetched",
		zap.String("url", f.URL),
		zap.Int("rows", t.Len()),
		zap.Strings("columns", t.Columns))
	return t, nil
}

func (f *Fetcher) fetch(ctx context.Context) (*model.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrFetch, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrFetch, resp.StatusCode, string(body))
	}
	return Parse(resp.Body)
}

// Parse reads an HTML document and returns its first table that has a header
// row and at least one data row.
func Parse(r io.Reader) (*model.Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %w", ErrFetch, err)
	}
	// Footnote markers are not part of the cell values.
	doc.Find("sup.reference").Remove()

	var found *model.Table
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if t := parseTable(table); t != nil {
			found = t
			return false
		}
		return true
	})
	if found == nil {
		return nil, ErrNoTable
	}
	return found, nil
}

func parseTable(table *goquery.Selection) *model.Table {
	// Rows of nested tables belong to those tables.
	rows := table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(table)
	})
	if rows.Length() == 0 {
		return nil
	}

	headerAt := -1
	rows.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if tr.Find("th").Length() > 0 {
			headerAt = i
			return false
		}
		return true
	})
	if headerAt < 0 {
		headerAt = 0
	}

	columns := cellTexts(rows.Eq(headerAt))
	if len(columns) == 0 {
		return nil
	}

	t := &model.Table{Columns: columns}
	rows.Slice(headerAt+1, rows.Length()).Each(func(_ int, tr *goquery.Selection) {
		if tr.Find("td").Length() == 0 {
			return
		}
		cells := cellTexts(tr)
		row := make([]string, len(columns))
		copy(row, cells)
		t.Rows = append(t.Rows, row)
	})
	if len(t.Rows) == 0 {
		return nil
	}
	return t
}

func cellTexts(tr *goquery.Selection) []string {
	var out []string
	tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
		out = append(out, strings.Join(strings.Fields(cell.Text()), " "))
	})
	return out
}

// Symbols extracts the ordered, de-duplicated identifiers of a membership table.
func Symbols(t *model.Table) ([]string, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: no membership table", ErrFetch)
	}
	col, ok := t.Column(SymbolColumn)
	if !ok {
		return nil, ErrNoSymbolColumn
	}
	seen := make(map[string]bool, len(col))
	out := make([]string, 0, len(col))
	for _, s := range col {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, ErrNoSymbols
	}
	return out, nil
}
