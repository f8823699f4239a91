// Package calendar provides business-day arithmetic.
// This is part of the platform layer and contains no business logic beyond
// the Monday-Friday working week.
package calendar

import "time"

// IsBusinessDay reports whether t falls on a Monday through Friday.
func IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// AddBusinessDays returns the date n business days after from, skipping
// Saturdays and Sundays. The time of day is preserved. A non-positive n
// returns from unchanged.
func AddBusinessDays(from time.Time, n int) time.Time {
	result := from
	for remaining := n; remaining > 0; {
		result = result.AddDate(0, 0, 1)
		if IsBusinessDay(result) {
			remaining--
		}
	}
	return result
}

// NextBusinessDay returns from if it already falls on a business day,
// otherwise the next Monday at the same time of day.
func NextBusinessDay(from time.Time) time.Time {
	result := from
	for !IsBusinessDay(result) {
		result = result.AddDate(0, 0, 1)
	}
	return result
}

// BusinessDaysBetween counts the business days strictly after from and up to
// and including until. Returns 0 when until is not after from.
func BusinessDaysBetween(from, until time.Time) int {
	if !until.After(from) {
		return 0
	}

	count := 0
	day := from.Truncate(24 * time.Hour)
	end := until.Truncate(24 * time.Hour)
	for day.Before(end) {
		day = day.AddDate(0, 0, 1)
		if IsBusinessDay(day) {
			count++
		}
	}
	return count
}
