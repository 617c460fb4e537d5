package model

import (
	"math"
	"sort"
	"time"
)

// Field names a price measure in the wide table.
type Field string

const (
	FieldAdjClose Field = "Adj Close"
	FieldClose    Field = "Close"
	FieldHigh     Field = "High"
	FieldLow      Field = "Low"
	FieldOpen     Field = "Open"
	FieldVolume   Field = "Volume"
)

// Fields lists every field in column order.
var Fields = []Field{FieldAdjClose, FieldClose, FieldHigh, FieldLow, FieldOpen, FieldVolume}

// ColumnKey addresses one column of the two-level header.
type ColumnKey struct {
	Field  Field
	Symbol string
}

// WideTable is a time-indexed price table with one column per (field, symbol).
type WideTable struct {
	Index   []time.Time
	Columns []ColumnKey
	values  map[ColumnKey][]float64
}

// NewWideTable creates an empty table over the given index.
// The caller owns the order of index; builders keep it ascending.
func NewWideTable(index []time.Time) *WideTable {
	return &WideTable{
		Index:  index,
		values: make(map[ColumnKey][]float64),
	}
}

// SetColumn adds or replaces a column. vals must have len(Index) entries.
func (w *WideTable) SetColumn(key ColumnKey, vals []float64) {
	if _, ok := w.values[key]; !ok {
		w.Columns = append(w.Columns, key)
	}
	w.values[key] = vals
}

// HasColumn reports whether the column exists.
func (w *WideTable) HasColumn(f Field, symbol string) bool {
	_, ok := w.values[ColumnKey{Field: f, Symbol: symbol}]
	return ok
}

// Value returns the cell at row i, or NaN when the column or cell is missing.
func (w *WideTable) Value(f Field, symbol string, i int) float64 {
	col, ok := w.values[ColumnKey{Field: f, Symbol: symbol}]
	if !ok || i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

// Symbols returns the distinct symbols of the column header in order.
func (w *WideTable) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range w.Columns {
		if !seen[c.Symbol] {
			seen[c.Symbol] = true
			out = append(out, c.Symbol)
		}
	}
	return out
}

// Len returns the number of timestamps.
func (w *WideTable) Len() int { return len(w.Index) }

// WideBuilder assembles a WideTable from per-symbol bar series.
type WideBuilder struct {
	symbols []string
	bars    map[string][]Bar
}

// NewWideBuilder returns an empty builder.
func NewWideBuilder() *WideBuilder {
	return &WideBuilder{bars: make(map[string][]Bar)}
}

// Add records the bars of one symbol. Adding the same symbol twice appends.
func (b *WideBuilder) Add(symbol string, bars []Bar) {
	if _, ok := b.bars[symbol]; !ok {
		b.symbols = append(b.symbols, symbol)
	}
	b.bars[symbol] = append(b.bars[symbol], bars...)
}

// Build unions every timestamp into an ascending index and fills gaps with NaN.
// When a symbol has two bars on the same timestamp the later one wins.
func (b *WideBuilder) Build() *WideTable {
	stamps := make(map[int64]time.Time)
	for _, bars := range b.bars {
		for _, bar := range bars {
			stamps[bar.Time.UnixNano()] = bar.Time
		}
	}
	index := make([]time.Time, 0, len(stamps))
	for _, t := range stamps {
		index = append(index, t)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })

	pos := make(map[int64]int, len(index))
	for i, t := range index {
		pos[t.UnixNano()] = i
	}

	w := NewWideTable(index)
	for _, f := range Fields {
		for _, sym := range b.symbols {
			col := make([]float64, len(index))
			for i := range col {
				col[i] = math.NaN()
			}
			for _, bar := range b.bars[sym] {
				col[pos[bar.Time.UnixNano()]] = bar.field(f)
			}
			w.SetColumn(ColumnKey{Field: f, Symbol: sym}, col)
		}
	}
	return w
}

func (b Bar) field(f Field) float64 {
	switch f {
	case FieldAdjClose:
		return b.AdjClose
	case FieldClose:
		return b.Close
	case FieldHigh:
		return b.High
	case FieldLow:
		return b.Low
	case FieldOpen:
		return b.Open
	case FieldVolume:
		return b.Volume
	}
	return math.NaN()
}
