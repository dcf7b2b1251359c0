package sheet

import (
	"strconv"
	"strings"
)

// Kind identifies which variant a Cell holds.
type Kind int

const (
	Empty Kind = iota
	Text
	Number
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Number:
		return "number"
	default:
		return "empty"
	}
}

// Cell is a single loosely typed spreadsheet value. The zero value is an
// empty cell.
type Cell struct {
	kind Kind
	text string
	num  float64
}

// TextCell returns a text cell holding s.
func TextCell(s string) Cell {
	return Cell{kind: Text, text: s}
}

// NumberCell returns a numeric cell holding v.
func NumberCell(v float64) Cell {
	return Cell{kind: Number, num: v}
}

// Kind reports which variant the cell holds.
func (c Cell) Kind() Kind { return c.kind }

// Raw returns the untrimmed text of a text cell.
func (c Cell) Raw() string { return c.text }

// Float returns the value of a numeric cell.
func (c Cell) Float() float64 { return c.num }

// IsBlank reports whether the cell is empty or holds only whitespace.
func (c Cell) IsBlank() bool {
	switch c.kind {
	case Text:
		return strings.TrimSpace(c.text) == ""
	case Number:
		return false
	default:
		return true
	}
}

// String renders the cell the way it is compared and displayed: trimmed text,
// numbers in their shortest decimal form, empty cells as "".
func (c Cell) String() string {
	switch c.kind {
	case Text:
		return strings.TrimSpace(c.text)
	case Number:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	default:
		return ""
	}
}

// TextRow converts a row of strings into text cells.
func TextRow(values ...string) []Cell {
	row := make([]Cell, len(values))
	for i, v := range values {
		row[i] = TextCell(v)
	}
	return row
}
