package freshness

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func TestIsStaleAbsentOrMalformed(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)
	for _, raw := range []string{"", "  ", "nan", "NaT", "None", "not-a-date", "2025-13-45"} {
		for _, threshold := range []int{0, 1, 7, 30} {
			if !IsStale(raw, threshold, now) {
				t.Fatalf("IsStale(%q, %d) = false, want true", raw, threshold)
			}
		}
	}
}

func TestIsStaleThreshold(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "same day", raw: "2025-03-10", want: false},
		{name: "six days", raw: "2025-03-04", want: false},
		{name: "exactly seven", raw: "2025-03-03", want: true},
		{name: "ten days", raw: "2025-02-28", want: true},
		{name: "future date", raw: "2025-03-12", want: false},
		{name: "timestamp", raw: "2025-03-03T08:00:00Z", want: true},
	}

	for _, tc := range tests {
		if got := IsStale(tc.raw, DefaultThresholdDays, now); got != tc.want {
			t.Fatalf("%s: IsStale(%q) = %v, want %v", tc.name, tc.raw, got, tc.want)
		}
	}
}

func TestIsStaleMatchesDayCount(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	for offset := -3; offset <= 20; offset++ {
		d := now.AddDate(0, 0, -offset)
		raw := d.Format("2006-01-02")
		for _, threshold := range []int{1, 7, 14} {
			want := DaysSince(d, now) >= threshold
			if got := IsStale(raw, threshold, now); got != want {
				t.Fatalf("IsStale(%s, %d) = %v, want %v", raw, threshold, got, want)
			}
		}
	}
}

func TestParseDateUsesLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("EST", -5*3600)
	got, ok := ParseDate("2025-01-02", loc)
	if !ok {
		t.Fatalf("ParseDate returned ok=false")
	}
	if got.Location() != loc || got.Day() != 2 {
		t.Fatalf("unexpected parsed date: %v", got)
	}
}

func TestIsStaleAcrossDaylightSavingShift(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// 2026-03-08 loses an hour in New York.
	now := time.Date(2026, time.March, 15, 0, 30, 0, 0, ny)
	last, ok := ParseDate("2026-03-08", ny)
	if !ok {
		t.Fatalf("ParseDate failed")
	}
	if got := DaysSince(last, now); got != 7 {
		t.Fatalf("DaysSince across spring forward = %d, want 7", got)
	}
	if !IsStale("2026-03-08", 7, now) {
		t.Fatalf("seven calendar days must be stale")
	}
	if IsStale("2026-03-09", 7, now) {
		t.Fatalf("six calendar days must be fresh")
	}

	// 2026-11-01 gains an hour.
	autumn := time.Date(2026, time.November, 7, 23, 30, 0, 0, ny)
	if got := DaysSince(time.Date(2026, time.October, 31, 23, 30, 0, 0, ny), autumn); got != 7 {
		t.Fatalf("DaysSince across fall back = %d, want 7", got)
	}
}
