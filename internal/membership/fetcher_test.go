package membership

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"IndexLens/internal/model"
)

const constituentsPage = `<html><body>
<p>Intro</p>
<table class="wikitable sortable" id="constituents">
<tbody>
<tr><th>Symbol</th><th>Security</th><th>GICS Sector</th><th>GICS Sub-Industry</th>
<th>Headquarters Location</th><th>Date added</th><th>CIK</th><th>Founded</th></tr>
<tr><td><a href="#">MMM</a></td><td>3M</td><td>Industrials</td><td>Industrial Conglomerates</td>
<td>Saint Paul, Minnesota</td><td>1957-03-04</td><td>0000066740</td><td>1902</td></tr>
<tr><td>AOS</td><td>A. O. Smith<sup class="reference">[3]</sup></td><td>Industrials</td><td>Building Products</td>
<td>Milwaukee, Wisconsin</td><td>2017-07-26</td><td>0000091142</td><td>1916</td></tr>
<tr><td>ABT</td><td>Abbott</td><td>Health Care</td></tr>
</tbody></table>
<table><tr><th>Date</th><th>Added</th></tr><tr><td>x</td><td>y</td></tr></table>
</body></html>`

func testFetcher(url string) *Fetcher {
	return NewFetcher(Options{URL: url, UserAgent: "test-agent", Timeout: 5 * time.Second}, zap.NewNop())
}

func TestParse_FirstTable(t *testing.T) {
	tbl, err := Parse(strings.NewReader(constituentsPage))
	require.NoError(t, err)

	assert.Equal(t, []string{"Symbol", "Security", "GICS Sector", "GICS Sub-Industry",
		"Headquarters Location", "Date added", "CIK", "Founded"}, tbl.Columns)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, "MMM", tbl.Rows[0][0])
	assert.Equal(t, "Saint Paul, Minnesota", tbl.Rows[0][4])
	assert.Equal(t, "A. O. Smith", tbl.Rows[1][1], "footnote markers are dropped")

	// Short rows are padded to the header width.
	assert.Len(t, tbl.Rows[2], len(tbl.Columns))
	assert.Equal(t, "", tbl.Rows[2][7])
}

func TestParse_NoTable(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"no table", `<html><body><p>nothing here</p></body></html>`},
		{"header only", `<table><tr><th>Symbol</th></tr></table>`},
		{"empty table", `<table></table>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.html))
			assert.ErrorIs(t, err, ErrNoTable)
			assert.ErrorIs(t, err, ErrFetch)
		})
	}
}

func TestParse_SkipsHeaderOnlyTable(t *testing.T) {
	html := `<table><tr><th>Nav</th></tr></table>
<table><tr><th>Symbol</th></tr><tr><td>ABC</td></tr></table>`
	tbl, err := Parse(strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, []string{"Symbol"}, tbl.Columns)
}

func TestFetch_MockServer(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(constituentsPage))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tbl, err := testFetcher(server.URL).Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, "test-agent", gotAgent)
}

func TestFetch_Failures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	tbl, err := testFetcher(server.URL).Fetch(context.Background())
	assert.Nil(t, tbl)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "404")

	// Closed server: transport error.
	server.Close()
	tbl, err = testFetcher(server.URL).Fetch(context.Background())
	assert.Nil(t, tbl)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestSymbols(t *testing.T) {
	tbl := &model.Table{
		Columns: []string{"Symbol", "Security"},
		Rows:    [][]string{{"MMM", "3M"}, {" AOS ", "A. O. Smith"}, {"MMM", "dup"}, {"", "blank"}},
	}
	syms, err := Symbols(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"MMM", "AOS"}, syms)
}

func TestSymbols_Guards(t *testing.T) {
	_, err := Symbols(nil)
	assert.ErrorIs(t, err, ErrFetch)

	_, err = Symbols(&model.Table{Columns: []string{"Ticker"}, Rows: [][]string{{"X"}}})
	assert.True(t, errors.Is(err, ErrNoSymbolColumn))

	_, err = Symbols(&model.Table{Columns: []string{"Symbol"}, Rows: [][]string{{""}}})
	assert.ErrorIs(t, err, ErrNoSymbols)
}
