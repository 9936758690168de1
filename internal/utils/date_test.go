package utils

import (
	"errors"
	"testing"
	"time"
)

func TestMondayOf(t *testing.T) {
	monday := time.Date(2025, 4, 21, 0, 0, 0, 0, time.UTC)

	cases := []time.Time{
		time.Date(2025, 4, 21, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 21, 23, 59, 59, 0, time.UTC),
		time.Date(2025, 4, 23, 10, 20, 0, 0, time.UTC),
		time.Date(2025, 4, 27, 18, 0, 0, 0, time.UTC),
	}
	for _, in := range cases {
		if got := MondayOf(in); !got.Equal(monday) {
			t.Fatalf("MondayOf(%s) = %s, expected %s", in, got, monday)
		}
	}

	if got := MondayKey(time.Date(2025, 4, 20, 12, 0, 0, 0, time.UTC)); got != "20250414" {
		t.Fatalf("expected sunday to round down to previous monday, got %s", got)
	}
}

func TestParseMondayKey(t *testing.T) {
	date, err := ParseMondayKey("20250421")
	if err != nil {
		t.Fatalf("parse monday: %v", err)
	}
	if date.Weekday() != time.Monday || date.Day() != 21 {
		t.Fatalf("unexpected date %s", date)
	}

	if _, err := ParseMondayKey("20250420"); !errors.Is(err, ErrNotMonday) {
		t.Fatalf("expected ErrNotMonday, got %v", err)
	}

	for _, bad := range []string{"", "2025-04-21", "2025042", "202504211", "2025O421", "20251321", "20250230", "+2025042"} {
		if _, err := ParseMondayKey(bad); !errors.Is(err, ErrMondayKeyFormat) {
			t.Fatalf("ParseMondayKey(%q): expected ErrMondayKeyFormat, got %v", bad, err)
		}
	}
}

func TestAvailabilityCacheKey(t *testing.T) {
	if got := AvailabilityCacheKey("20250421"); got != "weekly_availability_20250421" {
		t.Fatalf("unexpected cache key %s", got)
	}
}
