package source

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rubiojr/crmdesk/pkg/sheet"
)

// Memory is an in-process Source holding fixed sheets. It counts reads so
// callers can assert on cache behaviour.
type Memory struct {
	mu       sync.RWMutex
	sheets   map[string][][]sheet.Cell
	timezone string
	err      error

	reads   atomic.Int64
	tzReads atomic.Int64
}

// NewMemory returns a source serving sheets. Sheets are given as plain
// strings; use SetSheet for typed cells.
func NewMemory(timezone string, sheets map[string][][]string) *Memory {
	m := &Memory{sheets: make(map[string][][]sheet.Cell), timezone: timezone}
	for name, rows := range sheets {
		cells := make([][]sheet.Cell, len(rows))
		for i, r := range rows {
			cells[i] = sheet.TextRow(r...)
		}
		m.sheets[name] = cells
	}
	return m
}

// SetSheet replaces a sheet.
func (m *Memory) SetSheet(name string, rows [][]sheet.Cell) {
	m.mu.Lock()
	m.sheets[name] = rows
	m.mu.Unlock()
}

// FailWith makes every subsequent read return err. A nil err clears it.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Reads returns how many times ReadSheet was called.
func (m *Memory) Reads() int64 { return m.reads.Load() }

// TimezoneReads returns how many times Timezone was called.
func (m *Memory) TimezoneReads() int64 { return m.tzReads.Load() }

func (m *Memory) ReadSheet(ctx context.Context, name string) ([][]sheet.Cell, error) {
	m.reads.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	rows, ok := m.sheets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
	}
	return rows, nil
}

func (m *Memory) Timezone(ctx context.Context) (string, error) {
	m.tzReads.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return "", m.err
	}
	return m.timezone, nil
}
