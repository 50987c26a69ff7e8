package vendors

import (
	"testing"
	"time"
)

func TestParseDateVariousFormats(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Month
		day  int
		year int
	}{
		{"2026-07-15T18:00:00Z", time.July, 15, 2026},
		{"2026-07-15 18:00:00", time.July, 15, 2026},
		{"2026-07-15", time.July, 15, 2026},
		{"Jul 15, 2026 6:00 PM", time.July, 15, 2026},
		{"July 15, 2026 at 6:00 PM", time.July, 15, 2026},
		{"07/15/2026", time.July, 15, 2026},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.raw)
		if !ok {
			t.Errorf("ParseDate(%q): not ok", tc.raw)
			continue
		}
		if got.Month() != tc.want || got.Day() != tc.day || got.Year() != tc.year {
			t.Errorf("ParseDate(%q) = %v, want %v %d, %d", tc.raw, got, tc.want, tc.day, tc.year)
		}
	}
}

func TestParseDateEmptyOrUnparseable(t *testing.T) {
	if _, ok := ParseDate(""); ok {
		t.Error("expected ok=false for empty input")
	}
	if _, ok := ParseDate("   "); ok {
		t.Error("expected ok=false for whitespace-only input")
	}
	if _, ok := ParseDate("not a date at all"); ok {
		t.Error("expected ok=false for unparseable input")
	}
}
