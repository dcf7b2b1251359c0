// Package dates turns spreadsheet date cells into canonical YYYY-MM-DD
// strings.
package dates

import (
	"math"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rubiojr/crmdesk/pkg/sheet"
)

// Layout is the canonical output format.
const Layout = "2006-01-02"

// Accepted text layouts, tried in order. Single-digit fields also match
// zero-padded values.
var textLayouts = []string{
	"2006-1-2",
	"2.1.2006",
	"2/1/2006",
}

// Format renders a date cell. Numbers are day counts since 1899-12-30 placed
// in the tz zone; text is parsed against the accepted layouts and returned
// trimmed but otherwise unchanged when none match. Empty cells yield "".
func Format(c sheet.Cell, tz string) string {
	if c.IsBlank() {
		return ""
	}
	switch c.Kind() {
	case sheet.Number:
		return FromSerial(c.Float(), Location(tz)).Format(Layout)
	case sheet.Text:
		return FormatText(c.Raw())
	default:
		return ""
	}
}

// FormatText reformats a free-text date.
func FormatText(value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ""
	}
	for _, layout := range textLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(Layout)
		}
	}
	return raw
}

// FromSerial converts a spreadsheet serial day number into wall-clock time
// in loc. The day fraction is truncated to whole seconds so a time just
// before midnight stays on its day.
func FromSerial(days float64, loc *time.Location) time.Time {
	whole := math.Floor(days)
	secs := int((days - whole) * 86400)
	return time.Date(1899, time.December, 30+int(whole), 0, 0, secs, 0, loc)
}

// Location loads the named IANA zone, falling back to UTC.
func Location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
