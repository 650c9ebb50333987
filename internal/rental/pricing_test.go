package rental

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/RentalCars/RentalCars/internal/calendar"
)

func date(y int, m time.Month, d int) calendar.Date {
	return calendar.Date{Year: y, Month: m, Day: d}
}

func TestDays(t *testing.T) {
	cases := []struct {
		start, end calendar.Date
		want       int
	}{
		{date(2025, time.November, 11), date(2025, time.November, 11), 1}, // 当日租车按一天计
		{date(2025, time.November, 11), date(2025, time.November, 12), 1},
		{date(2025, time.November, 11), date(2025, time.November, 13), 2},
		{date(2025, time.October, 1), date(2025, time.October, 5), 4},
		{date(2025, time.October, 5), date(2025, time.October, 1), 4}, // 取绝对值
	}
	for _, c := range cases {
		if got := Days(c.start, c.end); got != c.want {
			t.Fatalf("Days(%s, %s) = %d, want %d", c.start, c.end, got, c.want)
		}
	}
}

func TestTotal(t *testing.T) {
	got, err := Total(2, 5000)
	if err != nil {
		t.Fatalf("Total: %v", err)
	}
	if got != 10000.00 {
		t.Fatalf("expected 10000.00, got %v", got)
	}

	got, err = Total(4, 5000)
	if err != nil {
		t.Fatalf("Total: %v", err)
	}
	if got != 20000.00 {
		t.Fatalf("expected 20000.00, got %v", got)
	}

	got, err = Total(3, 33.335)
	if err != nil {
		t.Fatalf("Total: %v", err)
	}
	if got != 100.01 {
		t.Fatalf("expected 100.01, got %v", got)
	}
}

func TestTotalRejectsNaNRate(t *testing.T) {
	_, err := Total(2, math.NaN())
	if !errors.Is(err, ErrPriceOutOfRange) {
		t.Fatalf("expected ErrPriceOutOfRange, got %v", err)
	}
}

func TestTotalRejectsOverflow(t *testing.T) {
	_, err := Total(100000, 5000)
	if !errors.Is(err, ErrPriceOutOfRange) {
		t.Fatalf("expected ErrPriceOutOfRange, got %v", err)
	}
	_, err = Total(2, math.Inf(1))
	if !errors.Is(err, ErrPriceOutOfRange) {
		t.Fatalf("expected ErrPriceOutOfRange, got %v", err)
	}
}

func TestOverlaps(t *testing.T) {
	s1, e1 := date(2025, time.October, 1), date(2025, time.October, 5)
	if !Overlaps(s1, e1, date(2025, time.October, 3), date(2025, time.October, 4)) {
		t.Fatalf("contained range should overlap")
	}
	if !Overlaps(s1, e1, date(2025, time.October, 5), date(2025, time.October, 8)) {
		t.Fatalf("shared boundary day should overlap (inclusive semantics)")
	}
	if Overlaps(s1, e1, date(2025, time.October, 6), date(2025, time.October, 8)) {
		t.Fatalf("disjoint ranges should not overlap")
	}
}
