// Package fiscal maps calendar dates onto fiscal-year coordinates and builds
// the rolling windows of monthly periods that sales history reports bucket into.
//
// The fiscal year starts on day 1 of a configured month. Dates on or after that
// boundary belong to the fiscal year labeled calendarYear+1; for example with a
// September start, 2024-09-01 through 2025-08-31 is fiscal year 2025. A January
// start makes fiscal years identical to calendar years.
package fiscal

import (
	"time"
)

// LabelLayout is the time layout of a period label ("2025-01").
// Data sources must bucket transactions with the same token.
const LabelLayout = "2006-01"

// Calendar is a fiscal calendar anchored on a start month.
type Calendar struct {
	startMonth time.Month
}

// NewCalendar creates a calendar whose fiscal year starts on day 1 of startMonth.
// An out-of-range month falls back to January.
func NewCalendar(startMonth time.Month) Calendar {
	if startMonth < time.January || startMonth > time.December {
		startMonth = time.January
	}
	return Calendar{startMonth: startMonth}
}

// StartMonth returns the month the fiscal year starts in.
func (c Calendar) StartMonth() time.Month {
	return c.startMonth
}

// FiscalYearOf returns the fiscal year label for date.
func (c Calendar) FiscalYearOf(date time.Time) int {
	if c.startMonth == time.January {
		return date.Year()
	}
	if date.Month() >= c.startMonth {
		return date.Year() + 1
	}
	return date.Year()
}

// FiscalMonthIndex returns the 1-based month of date within its fiscal year.
func (c Calendar) FiscalMonthIndex(date time.Time) int {
	return (int(date.Month())-int(c.startMonth)+12)%12 + 1
}

// FiscalYearStart returns the first instant of fiscal year fy in UTC.
func (c Calendar) FiscalYearStart(fy int) time.Time {
	year := fy
	if c.startMonth != time.January {
		year = fy - 1
	}
	return time.Date(year, c.startMonth, 1, 0, 0, 0, 0, time.UTC)
}

// BuildWindow returns trailingFullYears complete fiscal years followed by the
// elapsed months of the fiscal year containing asOf, asOf's month included.
func (c Calendar) BuildWindow(asOf time.Time, trailingFullYears int) Window {
	if trailingFullYears < 0 {
		trailingFullYears = 0
	}
	asOfMonth := monthStart(asOf)
	currentFY := c.FiscalYearOf(asOfMonth)
	start := c.FiscalYearStart(currentFY - trailingFullYears)

	size := trailingFullYears*12 + c.FiscalMonthIndex(asOfMonth)
	periods := make([]Period, 0, size)
	for i := 0; i < size; i++ {
		m := start.AddDate(0, i, 0)
		periods = append(periods, Period{
			FiscalYear:  c.FiscalYearOf(m),
			FiscalMonth: c.FiscalMonthIndex(m),
			Label:       m.Format(LabelLayout),
			Ordinal:     i + 1,
			Start:       m,
		})
	}
	return newWindow(periods)
}

// Label returns the period label a transaction dated date is bucketed under.
func Label(date time.Time) string {
	return date.Format(LabelLayout)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
