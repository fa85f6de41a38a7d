// Package booking holds the pure temporal rules of the room booking domain:
// the half-open interval overlap predicate, the Monday-to-Friday business
// window, and the arithmetic that derives available business seconds from an
// arbitrary query range. The package has no dependencies on persistence or
// transport so the rules can be tested in isolation.
package booking

import "time"

const (
	// BusinessDayStartHour is the first hour (inclusive) a booking may start.
	BusinessDayStartHour = 8
	// BusinessDayEndHour is the hour the business day closes. A booking may
	// end at exactly this hour but not start at it.
	BusinessDayEndHour = 20

	// MinDuration is the shortest bookable slot.
	MinDuration = 15 * time.Minute
	// MaxDuration is the longest bookable slot.
	MaxDuration = 4 * time.Hour
)

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// OnBusinessDay reports whether t falls on a weekday (Monday through Friday).
func OnBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// ValidStart reports whether t is an allowed booking start instant: the hour
// must lie in [BusinessDayStartHour, BusinessDayEndHour).
func ValidStart(t time.Time) bool {
	hour := t.Hour()
	return hour >= BusinessDayStartHour && hour < BusinessDayEndHour
}

// ValidEnd reports whether t is an allowed booking end instant. Any instant
// strictly inside the business window qualifies, as does the closing boundary
// itself (20:00:00 exactly).
func ValidEnd(t time.Time) bool {
	hour := t.Hour()
	if hour >= BusinessDayStartHour && hour < BusinessDayEndHour {
		return true
	}
	return hour == BusinessDayEndHour && t.Minute() == 0
}

// BusinessSeconds returns the number of seconds inside the Mon-Fri
// 08:00-20:00 business window that intersect [from, to). Weekend days
// contribute nothing. A non-positive range yields zero.
func BusinessSeconds(from, to time.Time) int64 {
	if !from.Before(to) {
		return 0
	}

	var total int64
	current := from
	for current.Before(to) {
		if OnBusinessDay(current) {
			dayStart := time.Date(current.Year(), current.Month(), current.Day(), BusinessDayStartHour, 0, 0, 0, current.Location())
			dayEnd := time.Date(current.Year(), current.Month(), current.Day(), BusinessDayEndHour, 0, 0, 0, current.Location())

			effStart := current
			if effStart.Before(dayStart) {
				effStart = dayStart
			}
			effEnd := dayEnd
			if to.Before(dayEnd) && sameDay(to, current) {
				effEnd = to
			}

			if effEnd.After(effStart) {
				total += int64(effEnd.Sub(effStart) / time.Second)
			}
		}
		current = startOfNextDay(current)
	}
	return total
}

// Clip bounds the interval [start, end) to the window [from, to) and returns
// the clipped duration in seconds, or zero when the intersection is empty.
func Clip(start, end, from, to time.Time) int64 {
	if start.Before(from) {
		start = from
	}
	if end.After(to) {
		end = to
	}
	if !end.After(start) {
		return 0
	}
	return int64(end.Sub(start) / time.Second)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfNextDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}
