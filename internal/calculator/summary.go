package calculator

import (
	"math"
	"sort"

	"IndexLens/internal/model"
)

// SymbolSummary aggregates the rows of one symbol over the download window.
type SymbolSummary struct {
	Symbol            string
	Bars              int
	MeanReturn        float64
	TotalDollarReturn float64
	High              float64
	Low               float64
	LastAdjClose      float64
}

// Summarize groups rows by symbol. NaN values are skipped; a symbol with no
// usable returns gets a NaN mean. Rows are expected in time order.
func Summarize(rows []model.TidyRow) []SymbolSummary {
	type acc struct {
		s       SymbolSummary
		retSum  float64
		retN    int
		hasHigh bool
	}
	by := make(map[string]*acc)
	for _, r := range rows {
		a, ok := by[r.Symbol]
		if !ok {
			a = &acc{s: SymbolSummary{
				Symbol:       r.Symbol,
				High:         math.Inf(-1),
				Low:          math.Inf(1),
				LastAdjClose: math.NaN(),
			}}
			by[r.Symbol] = a
		}
		a.s.Bars++
		if !math.IsNaN(r.Return) {
			a.retSum += r.Return
			a.retN++
		}
		if !math.IsNaN(r.DollarReturn) {
			a.s.TotalDollarReturn += r.DollarReturn
		}
		if !math.IsNaN(r.High) && r.High > a.s.High {
			a.s.High = r.High
			a.hasHigh = true
		}
		if !math.IsNaN(r.Low) && r.Low < a.s.Low {
			a.s.Low = r.Low
		}
		if !math.IsNaN(r.AdjClose) {
			a.s.LastAdjClose = r.AdjClose
		}
	}

	out := make([]SymbolSummary, 0, len(by))
	for _, a := range by {
		a.s.MeanReturn = math.NaN()
		if a.retN > 0 {
			a.s.MeanReturn = a.retSum / float64(a.retN)
		}
		if !a.hasHigh {
			a.s.High = math.NaN()
		}
		if math.IsInf(a.s.Low, 1) {
			a.s.Low = math.NaN()
		}
		out = append(out, a.s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
