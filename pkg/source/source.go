// Package source reads raw sheets from the backing tabular store. The
// production backend is a Google spreadsheet; local xlsx workbooks and
// SQLite databases serve development and offline deployments.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rubiojr/crmdesk/pkg/config"
	"github.com/rubiojr/crmdesk/pkg/sheet"
)

// ErrSheetNotFound is returned when the named sheet does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// Source is a read-only tabular data source.
type Source interface {
	// ReadSheet returns every row of the named sheet, header row first.
	ReadSheet(ctx context.Context, name string) ([][]sheet.Cell, error)
	// Timezone returns the IANA zone the data is recorded in, or "" when
	// the source does not know.
	Timezone(ctx context.Context) (string, error)
}

// New builds the source selected by cfg.Type.
func New(cfg config.SourceConfig) (Source, error) {
	switch cfg.Type {
	case config.SourceGoogleSheets, "":
		creds := []byte(cfg.ServiceAccountJSON)
		if len(creds) == 0 && cfg.ServiceAccountFile != "" {
			data, err := os.ReadFile(cfg.ServiceAccountFile)
			if err != nil {
				return nil, fmt.Errorf("reading service account file: %w", err)
			}
			creds = data
		}
		return NewGoogleSheets(GoogleSheetsConfig{
			SpreadsheetID:      cfg.SpreadsheetID,
			ServiceAccountJSON: creds,
			ValueRenderOption:  cfg.ValueRenderOption,
		}), nil
	case config.SourceXLSX:
		return NewXLSX(cfg.Path, cfg.Timezone), nil
	case config.SourceSQLite:
		return NewSQLite(cfg.Path, cfg.Timezone)
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}
