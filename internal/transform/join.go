package transform

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"IndexLens/internal/calculator"
	"IndexLens/internal/model"
)

var (
	// ErrJoin marks every failure of the metadata join step.
	ErrJoin = errors.New("join failed")
	// ErrMissingColumn means the membership table lacks a selected column.
	ErrMissingColumn = fmt.Errorf("%w: missing column", ErrJoin)
)

// Membership columns selected for the join, in output order.
const (
	ColSymbol      = "Symbol"
	ColSecurity    = "Security"
	ColSector      = "GICS Sector"
	ColSubIndustry = "GICS Sub-Industry"
	ColHQ          = "Headquarters Location"
	ColDateAdded   = "Date added"
	ColFounded     = "Founded"
)

var metadataColumns = []string{ColSymbol, ColSecurity, ColSector, ColSubIndustry, ColHQ, ColDateAdded, ColFounded}

var parenthetical = regexp.MustCompile(`\(.*?\)`)

// CleanFounded drops parenthetical annotations from a founding year,
// so "1988 (1912)" becomes "1988".
func CleanFounded(s string) string {
	return strings.TrimSpace(parenthetical.ReplaceAllString(s, ""))
}

// Records selects the metadata columns of a membership table.
// When a symbol repeats, the first record wins.
func Records(members *model.Table) (map[string]model.MembershipRecord, error) {
	if members == nil {
		return nil, fmt.Errorf("%w: no membership table", ErrJoin)
	}
	idx := make(map[string]int, len(metadataColumns))
	for _, c := range metadataColumns {
		i := members.ColumnIndex(c)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
		idx[c] = i
	}

	out := make(map[string]model.MembershipRecord, members.Len())
	for _, row := range members.Rows {
		sym := strings.TrimSpace(row[idx[ColSymbol]])
		if sym == "" {
			continue
		}
		if _, dup := out[sym]; dup {
			continue
		}
		out[sym] = model.MembershipRecord{
			Symbol:               sym,
			Security:             row[idx[ColSecurity]],
			Sector:               row[idx[ColSector]],
			SubIndustry:          row[idx[ColSubIndustry]],
			HeadquartersLocation: row[idx[ColHQ]],
			DateAdded:            row[idx[ColDateAdded]],
			Founded:              row[idx[ColFounded]],
		}
	}
	return out, nil
}

// Join left-joins membership metadata onto tidy by symbol and derives
// DollarReturn. Every input row is kept; unmatched rows carry no Company.
func Join(tidy *model.TidyTable, members *model.Table) (*model.TidyTable, error) {
	if tidy == nil {
		return nil, fmt.Errorf("%w: no price rows", ErrJoin)
	}
	records, err := Records(members)
	if err != nil {
		return nil, err
	}

	infos := make(map[string]*model.CompanyInfo, len(records))
	for sym, rec := range records {
		infos[sym] = &model.CompanyInfo{
			CompanyName:          rec.Security,
			Industry:             rec.Sector,
			SubIndustry:          rec.SubIndustry,
			HeadquartersLocation: rec.HeadquartersLocation,
			DateAdded:            rec.DateAdded,
			Founded:              CleanFounded(rec.Founded),
		}
	}

	out := &model.TidyTable{Rows: make([]model.TidyRow, len(tidy.Rows)), Joined: true}
	for i, row := range tidy.Rows {
		row.Company = infos[row.Symbol]
		row.DollarReturn = calculator.DollarReturn(row.Return, row.AdjClose)
		out.Rows[i] = row
	}
	return out, nil
}
