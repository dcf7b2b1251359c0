package source

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rubiojr/crmdesk/pkg/sheet"
	"github.com/xuri/excelize/v2"
)

// XLSX reads sheets from a local workbook. The file is reopened on every
// read so edits are picked up once the repository cache expires.
type XLSX struct {
	path     string
	timezone string
}

func NewXLSX(path, timezone string) *XLSX {
	return &XLSX{path: path, timezone: timezone}
}

func (x *XLSX) ReadSheet(ctx context.Context, name string) ([][]sheet.Cell, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(x.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
	}

	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", name, err)
	}

	rows := make([][]sheet.Cell, len(raw))
	for r, values := range raw {
		row := make([]sheet.Cell, len(values))
		for c, v := range values {
			if v == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(name, axis)
			if err != nil {
				return nil, fmt.Errorf("reading cell %s!%s: %w", name, axis, err)
			}
			row[c] = xlsxCell(typ, v)
		}
		rows[r] = row
	}
	return rows, nil
}

func (x *XLSX) Timezone(ctx context.Context) (string, error) {
	return x.timezone, nil
}

// xlsxCell keeps numeric cells numeric so serial dates reach the date
// formatter as numbers, while string cells such as "+100" stay verbatim.
func xlsxCell(typ excelize.CellType, raw string) sheet.Cell {
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeDate:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return sheet.NumberCell(v)
		}
	}
	return sheet.TextCell(raw)
}
