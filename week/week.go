// Package week computes the canonical Monday–Sunday windows the tracker
// operates on: the "current" week that is open for task entry and the
// "previous" week that is open for reflection.
//
// All functions are pure: they take the reference instant as an explicit
// argument and never read the ambient clock. Day-of-week numbering follows
// time.Weekday (0 = Sunday .. 6 = Saturday). Sunday is the single special
// case throughout: it belongs to the week that is just ending, so on a
// Sunday the "current" week is the upcoming one and the "previous" week is
// the one ending that same day.
package week

import "time"

// Window is one calendar week, Start at Monday 00:00:00.000 local time and
// End at Sunday 23:59:59.999 local time.
type Window struct {
	Start time.Time
	End   time.Time
}

// Anchor selects which stored week bound a day-granularity lookup matches
// against.
type Anchor int

const (
	// AnchorStart matches records by their week_start_date.
	AnchorStart Anchor = iota
	// AnchorEnd matches records by their week_end_date.
	AnchorEnd
)

// StartOfDay returns t normalized to 00:00:00.000 in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns t normalized to 23:59:59.999 in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DayBounds returns the inclusive start-of-day and end-of-day instants of
// t's calendar day. This is the primitive the store uses to match a week
// bound by day rather than by exact instant: tasks are written with a
// start-of-day week bound while lookups can happen at any time of day.
func DayBounds(t time.Time) (time.Time, time.Time) {
	return StartOfDay(t), EndOfDay(t)
}

// CurrentWindow returns the week that is open for task entry at now.
//
// If now is a Sunday the current week starts the next day: Sunday has no
// current-week task entry, the upcoming week is the current one. On any
// other weekday the current week starts on the Monday of now's calendar
// week.
func CurrentWindow(now time.Time) Window {
	day := StartOfDay(now)

	var start time.Time
	if day.Weekday() == time.Sunday {
		start = day.AddDate(0, 0, 1)
	} else {
		start = day.AddDate(0, 0, 1-int(day.Weekday()))
	}

	return Window{Start: start, End: EndOfDay(start.AddDate(0, 0, 6))}
}

// PreviousWindow returns the week that is open for reflection at now.
//
// If now is a Sunday the previous week is the one ending that same day:
// start is six days back and end is now's end of day. On any other weekday
// it is the calendar week immediately before CurrentWindow(now).
func PreviousWindow(now time.Time) Window {
	day := StartOfDay(now)

	if day.Weekday() == time.Sunday {
		return Window{Start: day.AddDate(0, 0, -6), End: EndOfDay(day)}
	}

	start := CurrentWindow(now).Start.AddDate(0, 0, -7)
	return Window{Start: start, End: EndOfDay(start.AddDate(0, 0, 6))}
}

// PreviousAnchor returns the bound and the day a store lookup must match to
// find the Task or Reflection of the reflectable week at now.
//
// On Sunday the previous week's start day belongs to a week that is still
// in progress from the store's perspective, so records are matched by their
// week end falling within today. On every other weekday records are matched
// by their week start falling within the previous Monday.
func PreviousAnchor(now time.Time) (Anchor, time.Time) {
	prev := PreviousWindow(now)
	if StartOfDay(now).Weekday() == time.Sunday {
		return AnchorEnd, prev.End
	}
	return AnchorStart, prev.Start
}
