package model

// MembershipRecord describes one index constituent as listed in the membership document.
type MembershipRecord struct {
	Symbol               string
	Security             string
	Sector               string
	SubIndustry          string
	HeadquartersLocation string
	DateAdded            string
	Founded              string // raw, may carry a parenthetical like "1988 (1912)"
}

// Table is a string table scraped from a document.
// Every row holds exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]string, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }
