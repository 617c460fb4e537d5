package model

import "time"

// CompanyInfo is the metadata joined onto a price row.
type CompanyInfo struct {
	CompanyName          string
	Industry             string
	SubIndustry          string
	HeadquartersLocation string
	DateAdded            string
	Founded              string
}

// TidyRow is one (Datetime, Symbol) observation.
// Company is nil when the symbol had no membership record.
type TidyRow struct {
	Datetime     time.Time
	Symbol       string
	Open         float64
	High         float64
	Low          float64
	Close        float64
	AdjClose     float64
	Volume       float64
	Return       float64
	DollarReturn float64
	Company      *CompanyInfo
}

// TidyTable is the long form of the price table.
type TidyTable struct {
	Rows   []TidyRow
	Joined bool
}

// Len returns the number of rows.
func (t *TidyTable) Len() int { return len(t.Rows) }

// Symbols returns the distinct symbols in first-seen order.
func (t *TidyTable) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Rows {
		if !seen[r.Symbol] {
			seen[r.Symbol] = true
			out = append(out, r.Symbol)
		}
	}
	return out
}
