package scrape

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthlyWindowsNewestFirst(t *testing.T) {
	windows := MonthlyWindows(date(2024, 1, 1), date(2024, 3, 31))
	if len(windows) != 3 {
		t.Fatalf("Expected 3 windows, got %d", len(windows))
	}
	if !windows[0].From.Equal(date(2024, 3, 1)) || !windows[0].To.Equal(date(2024, 3, 31)) {
		t.Fatalf("Expected March first, got %v..%v", windows[0].From, windows[0].To)
	}
	if !windows[2].From.Equal(date(2024, 1, 1)) || !windows[2].To.Equal(date(2024, 1, 31)) {
		t.Fatalf("Expected January last, got %v..%v", windows[2].From, windows[2].To)
	}
}

func TestMonthlyWindowsClampedToBounds(t *testing.T) {
	windows := MonthlyWindows(date(2024, 1, 15), date(2024, 2, 10))
	if len(windows) != 2 {
		t.Fatalf("Expected 2 windows, got %d", len(windows))
	}
	if !windows[0].From.Equal(date(2024, 2, 1)) || !windows[0].To.Equal(date(2024, 2, 10)) {
		t.Fatalf("Expected clamped February window, got %v..%v", windows[0].From, windows[0].To)
	}
	if !windows[1].From.Equal(date(2024, 1, 15)) || !windows[1].To.Equal(date(2024, 1, 31)) {
		t.Fatalf("Expected clamped January window, got %v..%v", windows[1].From, windows[1].To)
	}
}

func TestMonthlyWindowsNoGaps(t *testing.T) {
	windows := MonthlyWindows(date(2023, 11, 3), date(2024, 2, 20))
	// Walk oldest to newest: each window must start the day after the
	// previous one ends.
	for i := len(windows) - 1; i > 0; i-- {
		older := windows[i]
		newer := windows[i-1]
		if !older.To.AddDate(0, 0, 1).Equal(newer.From) {
			t.Fatalf("Gap between %v and %v", older.To, newer.From)
		}
	}
}

func TestMonthlyWindowsSingleMonth(t *testing.T) {
	windows := MonthlyWindows(date(2024, 5, 5), date(2024, 5, 20))
	if len(windows) != 1 {
		t.Fatalf("Expected 1 window, got %d", len(windows))
	}
	if !windows[0].From.Equal(date(2024, 5, 5)) || !windows[0].To.Equal(date(2024, 5, 20)) {
		t.Fatalf("Unexpected window %v..%v", windows[0].From, windows[0].To)
	}
}

func TestMonthlyWindowsYearBoundary(t *testing.T) {
	windows := MonthlyWindows(date(2023, 12, 1), date(2024, 1, 31))
	if len(windows) != 2 {
		t.Fatalf("Expected 2 windows, got %d", len(windows))
	}
	if windows[0].From.Year() != 2024 || windows[1].From.Year() != 2023 {
		t.Fatal("Expected January 2024 before December 2023")
	}
}
