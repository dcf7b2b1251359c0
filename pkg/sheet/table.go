// Package sheet holds the normalized in-memory form of a spreadsheet tab:
// typed cells, the header row and a case, whitespace and underscore
// insensitive header index.
package sheet

// Table is one sheet split into its header row and data rows. A Table is
// shared through the repository cache and must not be mutated once built.
type Table struct {
	Headers []string
	Rows    [][]Cell
	Index   map[string]int
}

// NewTable slices the header row off raw and indexes it.
func NewTable(raw [][]Cell) *Table {
	if len(raw) == 0 {
		return &Table{Index: map[string]int{}}
	}
	headers := make([]string, len(raw[0]))
	for i, c := range raw[0] {
		headers[i] = c.String()
	}
	return &Table{
		Headers: headers,
		Rows:    raw[1:],
		Index:   BuildIndex(headers),
	}
}

// Truncate returns a table holding at most max data rows. The receiver is
// returned unchanged when it is already within bounds or max <= 0.
func (t *Table) Truncate(max int) *Table {
	if max <= 0 || len(t.Rows) <= max {
		return t
	}
	return &Table{
		Headers: t.Headers,
		Rows:    t.Rows[:max:max],
		Index:   t.Index,
	}
}

// Column resolves a logical field to a column index, or -1 when the sheet
// has none of the candidate headers.
func (t *Table) Column(candidates []string) int {
	i, _ := Resolve(t.Index, candidates)
	return i
}

// At returns the cell at col, or an empty cell when col is unresolved or
// the row is shorter than the header.
func At(row []Cell, col int) Cell {
	if col < 0 || col >= len(row) {
		return Cell{}
	}
	return row[col]
}

// TextAt returns the trimmed string form of the cell at col.
func TextAt(row []Cell, col int) string {
	return At(row, col).String()
}
