package calendar

import (
	"fmt"
	"time"
)

// DayFormat is the wire format for all booking dates.
const DayFormat = "2006-01-02"

// DateRange is a span of days during which a property is unavailable.
// Both boundary days count as occupied. Start never follows End.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange normalizes both boundaries to midnight and orders them.
func NewDateRange(start, end time.Time) DateRange {
	start = Midnight(start)
	end = Midnight(end)
	if end.Before(start) {
		start, end = end, start
	}
	return DateRange{Start: start, End: end}
}

// Contains reports whether day falls inside the range, boundaries included.
func (r DateRange) Contains(day time.Time) bool {
	day = Midnight(day)
	return !day.Before(r.Start) && !day.After(r.End)
}

// Days returns every day of the range in order, boundaries included.
func (r DateRange) Days() []time.Time {
	var days []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Midnight strips the time-of-day component. Booked dates arrive as plain
// YYYY-MM-DD strings, so any residue from local clocks would cause
// off-by-one mismatches during comparison.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return t, nil
}

// FormatDay renders a day in wire format.
func FormatDay(t time.Time) string {
	return t.Format(DayFormat)
}

// SameDay compares two dates at day granularity.
func SameDay(a, b time.Time) bool {
	return Midnight(a).Equal(Midnight(b))
}

// DateBooked reports whether day falls inside any booked range,
// boundaries included.
func DateBooked(day time.Time, booked []DateRange) bool {
	for _, r := range booked {
		if r.Contains(day) {
			return true
		}
	}
	return false
}

// RangeBooked reports whether any day strictly between start and end is
// booked. The boundaries themselves are excluded so a stay may end on the
// same day another one begins.
func RangeBooked(start, end time.Time, booked []DateRange) bool {
	start = Midnight(start)
	end = Midnight(end)
	for d := start.AddDate(0, 0, 1); d.Before(end); d = d.AddDate(0, 0, 1) {
		if DateBooked(d, booked) {
			return true
		}
	}
	return false
}

// Nights returns the number of billable nights between start and end.
// Same-day or inverted ranges yield zero. The count is taken over UTC
// calendar days so a short DST day in a local zone never drops a night.
func Nights(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	n := int(e.Sub(s) / (24 * time.Hour))
	if n < 0 {
		return 0
	}
	return n
}

// Total returns the stay price. Non-positive nights or price yield zero.
func Total(nights int, pricePerNight float64) float64 {
	if nights <= 0 || pricePerNight <= 0 {
		return 0
	}
	return float64(nights) * pricePerNight
}
