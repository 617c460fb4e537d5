// Package transform turns the wide price table into the joined tidy table.
package transform

import (
	"errors"
	"fmt"

	"IndexLens/internal/calculator"
	"IndexLens/internal/model"
)

var (
	// ErrReshape marks every failure of the reshape step.
	ErrReshape = errors.New("reshape failed")
	// ErrShape means the wide table lacks the expected two-level columns.
	ErrShape = fmt.Errorf("%w: unexpected table shape", ErrReshape)
)

// Reshape pivots the symbol axis of w into rows, one per (timestamp, symbol),
// and derives Return. Pairs whose fields are all missing emit no row.
func Reshape(w *model.WideTable) (*model.TidyTable, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: no price table", ErrReshape)
	}
	symbols := w.Symbols()
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no columns", ErrShape)
	}
	for _, sym := range symbols {
		for _, f := range model.Fields {
			if !w.HasColumn(f, sym) {
				return nil, fmt.Errorf("%w: %s has no %q column", ErrShape, sym, f)
			}
		}
	}
	for i := 1; i < len(w.Index); i++ {
		if !w.Index[i].After(w.Index[i-1]) {
			return nil, fmt.Errorf("%w: index not ascending at %d", ErrShape, i)
		}
	}

	out := &model.TidyTable{Rows: make([]model.TidyRow, 0, len(w.Index)*len(symbols))}
	for i, ts := range w.Index {
		for _, sym := range symbols {
			bar := model.Bar{
				Time:     ts,
				Open:     w.Value(model.FieldOpen, sym, i),
				High:     w.Value(model.FieldHigh, sym, i),
				Low:      w.Value(model.FieldLow, sym, i),
				Close:    w.Value(model.FieldClose, sym, i),
				AdjClose: w.Value(model.FieldAdjClose, sym, i),
				Volume:   w.Value(model.FieldVolume, sym, i),
			}
			if bar.Empty() {
				continue
			}
			out.Rows = append(out.Rows, model.TidyRow{
				Datetime: ts,
				Symbol:   sym,
				Open:     bar.Open,
				High:     bar.High,
				Low:      bar.Low,
				Close:    bar.Close,
				AdjClose: bar.AdjClose,
				Volume:   bar.Volume,
				Return:   calculator.Return(bar.Open, bar.Close),
			})
		}
	}
	return out, nil
}
