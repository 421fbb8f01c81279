package calendar

import "time"

// YearMonth identifies the month a calendar grid is rendered for.
type YearMonth struct {
	Year  int
	Month time.Month
}

// YearMonthOf returns the YearMonth containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// Next returns the following month, wrapping the year at December.
func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// Prev returns the preceding month, wrapping the year at January.
func (ym YearMonth) Prev() YearMonth {
	if ym.Month == time.January {
		return YearMonth{Year: ym.Year - 1, Month: time.December}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month - 1}
}

// FirstDay returns midnight of the 1st of the month in UTC.
func (ym YearMonth) FirstDay() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of days in the month.
func (ym YearMonth) Days() int {
	switch ym.Month {
	case time.February:
		if (ym.Year%4 == 0 && ym.Year%100 != 0) || ym.Year%400 == 0 {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

// Day is one cell of the rendered grid. A zero Date marks a leading
// padding cell before the 1st of the month.
type Day struct {
	Date     time.Time
	Booked   bool
	Past     bool
	Boundary bool
	InRange  bool
	Disabled bool
}

// Padding reports whether the cell is a placeholder before day 1.
func (d Day) Padding() bool {
	return d.Date.IsZero()
}

// Grid renders the month as a flat sequence of cells with a Sunday-first
// week layout. The result is derived entirely from the inputs; identical
// inputs always produce an identical sequence.
func Grid(month YearMonth, booked []DateRange, today time.Time, sel Selection) []Day {
	return GridWeekStart(month, booked, today, sel, time.Sunday)
}

// GridWeekStart is Grid with a configurable first day of the week.
func GridWeekStart(month YearMonth, booked []DateRange, today time.Time, sel Selection, weekStart time.Weekday) []Day {
	first := month.FirstDay()
	offset := (int(first.Weekday()) - int(weekStart) + 7) % 7
	today = Midnight(today)

	cells := make([]Day, 0, offset+month.Days())
	for i := 0; i < offset; i++ {
		cells = append(cells, Day{})
	}

	for day := 1; day <= month.Days(); day++ {
		date := time.Date(month.Year, month.Month, day, 0, 0, 0, 0, time.UTC)
		cell := Day{
			Date:     date,
			Booked:   DateBooked(date, booked),
			Past:     date.Before(today),
			Boundary: sel.IsBoundary(date),
			InRange:  sel.InRange(date),
		}
		cell.Disabled = cell.Booked || cell.Past
		cells = append(cells, cell)
	}
	return cells
}
