package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rubiojr/crmdesk/pkg/sheet"
)

// SQLite serves each table of a database as a sheet whose header row is the
// table's column names. An optional settings(key, value) table may carry a
// "timezone" row.
type SQLite struct {
	db       *sql.DB
	timezone string
}

func NewSQLite(path, timezone string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	return &SQLite{db: db, timezone: timezone}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) tableExists(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?", name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLite) ReadSheet(ctx context.Context, name string) ([][]sheet.Cell, error) {
	ok, err := s.tableExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("checking table %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(name))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := [][]sheet.Cell{sheet.TextRow(cols...)}

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", name, err)
		}
		row := make([]sheet.Cell, len(cols))
		for i, v := range values {
			row[i] = sqliteCell(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", name, err)
	}
	return out, nil
}

func (s *SQLite) Timezone(ctx context.Context) (string, error) {
	ok, err := s.tableExists(ctx, "settings")
	if err != nil {
		return "", err
	}
	if !ok {
		return s.timezone, nil
	}

	var tz string
	err = s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = 'timezone'").Scan(&tz)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && tz == "") {
		return s.timezone, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading timezone setting: %w", err)
	}
	return tz, nil
}

func sqliteCell(v any) sheet.Cell {
	switch val := v.(type) {
	case nil:
		return sheet.Cell{}
	case int64:
		return sheet.NumberCell(float64(val))
	case float64:
		return sheet.NumberCell(val)
	case string:
		return sheet.TextCell(val)
	case []byte:
		return sheet.TextCell(string(val))
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 {
			return sheet.TextCell(val.Format(time.DateOnly))
		}
		return sheet.TextCell(val.Format(time.RFC3339))
	default:
		return sheet.TextCell(fmt.Sprint(val))
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
