package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewDatePeriod_IncludesEndOfDay(t *testing.T) {
	start := time.Date(2024, time.January, 1, 15, 30, 0, 0, time.UTC)
	end := time.Date(2024, time.January, 31, 8, 0, 0, 0, time.UTC)

	p, err := NewDatePeriod(start, end, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !p.Start.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected start at midnight, got %s", p.Start)
	}

	lastSecond := time.Date(2024, time.January, 31, 23, 59, 59, 0, time.UTC)
	if !p.Contains(lastSecond) {
		t.Fatalf("expected %s to be inside %v", lastSecond, p)
	}

	nextDay := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	if p.Contains(nextDay) {
		t.Fatalf("expected %s to be outside %v", nextDay, p)
	}
}

func TestNewDatePeriod_UsesLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	day := time.Date(2024, time.May, 2, 0, 0, 0, 0, loc)

	p, err := NewDatePeriod(day, day, loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 02:30 UTC on May 3rd is still May 2nd in BRT.
	if !p.Contains(time.Date(2024, time.May, 3, 2, 30, 0, 0, time.UTC)) {
		t.Fatalf("expected local end of day to be honoured")
	}
}

func TestNewPeriod_StartAfterEnd(t *testing.T) {
	now := time.Now()
	_, err := NewPeriod(now, now.Add(-time.Second))
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestNewPeriod_SameInstant(t *testing.T) {
	now := time.Now()
	p, err := NewPeriod(now, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Contains(now) {
		t.Fatalf("expected degenerate period to contain its instant")
	}
}

func TestPeriod_OpenBounds(t *testing.T) {
	day := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

	from, err := NewDatePeriod(day, time.Time{}, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !from.Contains(day.AddDate(10, 0, 0)) || from.Contains(day.Add(-time.Second)) {
		t.Fatalf("expected open-ended upper bound, got %+v", from)
	}

	until, _ := NewDatePeriod(time.Time{}, day, time.UTC)
	if !until.Contains(day.AddDate(-10, 0, 0)) || until.Contains(day.AddDate(0, 0, 1)) {
		t.Fatalf("expected open-ended lower bound, got %+v", until)
	}

	if !(Period{}).IsOpen() || from.IsOpen() {
		t.Fatalf("unexpected IsOpen result")
	}
}
