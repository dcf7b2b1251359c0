package dates

import (
	"testing"
	"time"

	"github.com/rubiojr/crmdesk/pkg/sheet"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		cell sheet.Cell
		tz   string
		want string
	}{
		{"iso text", sheet.TextCell("2024-03-10"), "UTC", "2024-03-10"},
		{"dotted text", sheet.TextCell("10.03.2024"), "UTC", "2024-03-10"},
		{"slashed text", sheet.TextCell(" 10/03/2024 "), "UTC", "2024-03-10"},
		{"unpadded iso", sheet.TextCell("2024-3-5"), "UTC", "2024-03-05"},
		{"unpadded dotted", sheet.TextCell("5.3.2024"), "UTC", "2024-03-05"},
		{"unpadded slashed", sheet.TextCell("5/3/2024"), "UTC", "2024-03-05"},
		{"mixed padding", sheet.TextCell("05.3.2024"), "UTC", "2024-03-05"},
		{"serial", sheet.NumberCell(45361), "UTC", "2024-03-10"},
		{"serial just before midnight", sheet.NumberCell(45361.999999), "UTC", "2024-03-10"},
		{"serial with time", sheet.NumberCell(45361.75), "UTC", "2024-03-10"},
		{"serial other zone", sheet.NumberCell(45311), "Europe/Moscow", "2024-01-20"},
		{"unknown zone", sheet.NumberCell(45311), "Nowhere/City", "2024-01-20"},
		{"unparseable", sheet.TextCell("  next spring "), "UTC", "next spring"},
		{"blank text", sheet.TextCell("   "), "UTC", ""},
		{"empty", sheet.Cell{}, "UTC", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.cell, tt.tz); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSerialMatchesCalendar(t *testing.T) {
	epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	target := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	days := target.Sub(epoch).Hours() / 24

	if got := Format(sheet.NumberCell(days), "UTC"); got != "2024-03-10" {
		t.Fatalf("serial %v formatted as %q", days, got)
	}
	if days != 45361 {
		t.Fatalf("expected serial 45361, computed %v", days)
	}
}

func TestFromSerialFraction(t *testing.T) {
	got := FromSerial(45361.5, time.UTC)
	want := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestFromSerialTruncatesSeconds(t *testing.T) {
	got := FromSerial(45361.999999, time.UTC)
	if got.Day() != 10 || got.Hour() != 23 || got.Minute() != 59 {
		t.Fatalf("expected 2024-03-10 23:59:xx, got %v", got)
	}
}
