package calendar

import "time"

// Rejection explains why a click did not change the selection.
type Rejection int

const (
	// RejectionNone means the click was applied (or was a silent no-op).
	RejectionNone Rejection = iota
	// RejectionRangeOverlapsBooking means the picked end date would span
	// at least one booked day. The selection is left untouched so the
	// caller can surface a warning without losing the start pick.
	RejectionRangeOverlapsBooking
)

func (r Rejection) String() string {
	if r == RejectionRangeOverlapsBooking {
		return "range overlaps booking"
	}
	return "none"
}

// Selection is the in-progress two-click date-range pick. Zero times mean
// "not picked yet". The cycle is re-enterable: once both boundaries are
// set, the next pick starts over.
type Selection struct {
	Start time.Time
	End   time.Time
}

// HasStart reports whether the first boundary has been picked.
func (s Selection) HasStart() bool { return !s.Start.IsZero() }

// Complete reports whether both boundaries are picked.
func (s Selection) Complete() bool { return !s.Start.IsZero() && !s.End.IsZero() }

// IsBoundary reports whether date equals either picked boundary.
func (s Selection) IsBoundary(date time.Time) bool {
	return (s.HasStart() && SameDay(date, s.Start)) ||
		(!s.End.IsZero() && SameDay(date, s.End))
}

// InRange reports whether date lies strictly between the two boundaries.
func (s Selection) InRange(date time.Time) bool {
	if !s.Complete() {
		return false
	}
	date = Midnight(date)
	return date.After(Midnight(s.Start)) && date.Before(Midnight(s.End))
}

// Clear resets the selection to empty.
func (s Selection) Clear() Selection { return Selection{} }

// SelectDate applies one click of the two-step range pick.
//
// Disabled or padding cells are silent no-ops. With no start picked, or
// with a completed range, the click begins a new cycle. With only a start
// picked, a later click completes the range unless the open interval
// between the two crosses a booked day, in which case the selection is
// returned unchanged together with RejectionRangeOverlapsBooking. A click
// on or before the current start replaces the start.
func SelectDate(day Day, sel Selection, booked []DateRange) (Selection, Rejection) {
	if day.Padding() || day.Disabled {
		return sel, RejectionNone
	}
	date := Midnight(day.Date)

	if !sel.HasStart() || sel.Complete() {
		return Selection{Start: date}, RejectionNone
	}

	if date.After(Midnight(sel.Start)) {
		if RangeBooked(sel.Start, date, booked) {
			return sel, RejectionRangeOverlapsBooking
		}
		return Selection{Start: sel.Start, End: date}, RejectionNone
	}

	// On or before the current start: restart from the clicked day.
	return Selection{Start: date}, RejectionNone
}
