package calendar

import (
	"testing"
	"time"
)

func TestParseISO(t *testing.T) {
	d, err := Parse("2025-11-11")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Year != 2025 || d.Month != time.November || d.Day != 11 {
		t.Fatalf("unexpected date: %+v", d)
	}
}

func TestParseDisplayFormat(t *testing.T) {
	d, err := Parse("11/11/2025")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.String() != "2025-11-11" {
		t.Fatalf("expected 2025-11-11, got %s", d.String())
	}
}

func TestParseFallbackTruncatesTimeOfDay(t *testing.T) {
	d, err := Parse("2025-11-11T12:00:00Z")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.String() != "2025-11-11" {
		t.Fatalf("expected 2025-11-11, got %s", d.String())
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("not-a-date"); err == nil {
		t.Fatalf("expected error for unparseable input")
	}
	if _, err := Parse(""); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestFromTimeKeepsCarriedZone(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	d := FromTime(time.Date(2025, time.November, 11, 23, 30, 0, 0, loc))
	if d.String() != "2025-11-11" {
		t.Fatalf("expected 2025-11-11, got %s", d.String())
	}
}

func TestFormatRoundTrip(t *testing.T) {
	dates := []Date{
		{Year: 2025, Month: time.October, Day: 1},
		{Year: 2024, Month: time.February, Day: 29},
		{Year: 1999, Month: time.December, Day: 31},
	}
	for _, d := range dates {
		got, err := Parse(d.String())
		if err != nil {
			t.Fatalf("Parse(%s): %v", d.String(), err)
		}
		if !got.Equal(d) {
			t.Fatalf("round trip mismatch: %v != %v", got, d)
		}
	}
}

func TestDisplay(t *testing.T) {
	d := Date{Year: 2025, Month: time.November, Day: 11}
	if d.Display() != "11/11/2025" {
		t.Fatalf("expected 11/11/2025, got %s", d.Display())
	}
}

func TestDaysBetween(t *testing.T) {
	a := Date{Year: 2025, Month: time.November, Day: 11}
	b := Date{Year: 2025, Month: time.November, Day: 13}
	if got := DaysBetween(a, b); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := DaysBetween(b, a); got != 2 {
		t.Fatalf("expected 2 for reversed args, got %d", got)
	}
	if got := DaysBetween(a, a); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestScanVariants(t *testing.T) {
	var d Date
	if err := d.Scan(time.Date(2025, time.October, 1, 15, 4, 5, 0, time.UTC)); err != nil {
		t.Fatalf("Scan time: %v", err)
	}
	if d.String() != "2025-10-01" {
		t.Fatalf("expected 2025-10-01, got %s", d.String())
	}

	if err := d.Scan([]byte("2025-10-05")); err != nil {
		t.Fatalf("Scan bytes: %v", err)
	}
	if d.String() != "2025-10-05" {
		t.Fatalf("expected 2025-10-05, got %s", d.String())
	}

	if err := d.Scan(12345); err == nil {
		t.Fatalf("expected error scanning int")
	}
}
