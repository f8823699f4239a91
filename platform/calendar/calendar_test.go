package calendar

import (
	"testing"
	"time"
)

// 2026-08-21 is a Friday, 2026-08-24 the following Monday.
var (
	friday = time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)
	monday = time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
)

func TestAddBusinessDays_FridayPlusOneIsMonday(t *testing.T) {
	got := AddBusinessDays(friday, 1)
	if !got.Equal(monday) {
		t.Fatalf("AddBusinessDays(Friday, 1) = %v, want %v", got, monday)
	}
}

func TestAddBusinessDays_MondayPlusThreeSkipsNothing(t *testing.T) {
	want := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC) // Thursday
	got := AddBusinessDays(monday, 3)
	if !got.Equal(want) {
		t.Fatalf("AddBusinessDays(Monday, 3) = %v, want %v", got, want)
	}
}

func TestAddBusinessDays_ThursdayPlusThreeSkipsWeekend(t *testing.T) {
	thursday := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	want := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC) // Tuesday
	got := AddBusinessDays(thursday, 3)
	if !got.Equal(want) {
		t.Fatalf("AddBusinessDays(Thursday, 3) = %v, want %v", got, want)
	}
}

func TestAddBusinessDays_ZeroReturnsInput(t *testing.T) {
	if got := AddBusinessDays(friday, 0); !got.Equal(friday) {
		t.Fatalf("AddBusinessDays(t, 0) = %v, want %v", got, friday)
	}
}

func TestAddBusinessDays_PreservesTimeOfDay(t *testing.T) {
	got := AddBusinessDays(friday, 5)
	if got.Hour() != 9 || got.Minute() != 0 {
		t.Fatalf("time of day not preserved: %v", got)
	}
}

func TestIsBusinessDay(t *testing.T) {
	saturday := time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)

	if !IsBusinessDay(friday) {
		t.Error("Friday should be a business day")
	}
	if IsBusinessDay(saturday) {
		t.Error("Saturday should not be a business day")
	}
	if IsBusinessDay(sunday) {
		t.Error("Sunday should not be a business day")
	}
	if !IsBusinessDay(monday) {
		t.Error("Monday should be a business day")
	}
}

func TestNextBusinessDay(t *testing.T) {
	saturday := time.Date(2026, 8, 22, 11, 0, 0, 0, time.UTC)
	want := time.Date(2026, 8, 24, 11, 0, 0, 0, time.UTC)
	if got := NextBusinessDay(saturday); !got.Equal(want) {
		t.Fatalf("NextBusinessDay(Saturday) = %v, want %v", got, want)
	}
	if got := NextBusinessDay(friday); !got.Equal(friday) {
		t.Fatalf("NextBusinessDay(Friday) should be identity, got %v", got)
	}
}

func TestBusinessDaysBetween(t *testing.T) {
	tests := []struct {
		name  string
		from  time.Time
		until time.Time
		want  int
	}{
		{"friday to monday", friday, monday, 1},
		{"monday to friday", monday, monday.AddDate(0, 0, 4), 4},
		{"over full week", friday, friday.AddDate(0, 0, 7), 5},
		{"same instant", friday, friday, 0},
		{"until before from", monday, friday, 0},
	}

	for _, tc := range tests {
		if got := BusinessDaysBetween(tc.from, tc.until); got != tc.want {
			t.Errorf("%s: BusinessDaysBetween = %d, want %d", tc.name, got, tc.want)
		}
	}
}
