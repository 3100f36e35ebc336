package report

import (
	"github.com/salesops/backend/internal/domain/fiscal"
	"github.com/shopspring/decimal"
)

// PeriodValue is one metric value in one window period
type PeriodValue struct {
	Label      string          `json:"label"`
	FiscalYear int             `json:"fiscal_year"`
	Value      decimal.Decimal `json:"value"`
}

// YearTotal is the rollup of a metric across one fiscal year of the window
type YearTotal struct {
	FiscalYear int             `json:"fiscal_year"`
	Value      decimal.Decimal `json:"value"`
}

// Series holds a metric's values for every window period plus yearly rollups.
// Periods absent from the data source are zero.
type Series struct {
	Periods []PeriodValue `json:"periods"`
	Years   []YearTotal   `json:"years"`
	// YearToDate is the rollup of the current (last) fiscal year
	YearToDate decimal.Decimal `json:"year_to_date"`
	// PriorYearToDate sums the prior fiscal year over the same elapsed fiscal months
	PriorYearToDate decimal.Decimal `json:"prior_year_to_date"`
}

// ReportRow is one grouping-key combination with its per-period metric values
type ReportRow struct {
	Keys   map[GroupKey]string `json:"keys"`
	Series map[string]*Series  `json:"series"`
}

// Key returns the value of grouping attribute k
func (r ReportRow) Key(k GroupKey) string {
	return r.Keys[k]
}

// Value returns metric's value in the period labeled label
func (r ReportRow) Value(metric, label string) decimal.Decimal {
	s, ok := r.Series[metric]
	if !ok {
		return decimal.Zero
	}
	for _, p := range s.Periods {
		if p.Label == label {
			return p.Value
		}
	}
	return decimal.Zero
}

// YearTotal returns metric's rollup for fiscal year fy
func (r ReportRow) YearTotal(metric string, fy int) decimal.Decimal {
	s, ok := r.Series[metric]
	if !ok {
		return decimal.Zero
	}
	for _, y := range s.Years {
		if y.FiscalYear == fy {
			return y.Value
		}
	}
	return decimal.Zero
}

// newSeries creates a zero-filled series aligned to window
func newSeries(window fiscal.Window) *Series {
	periods := window.Periods()
	s := &Series{Periods: make([]PeriodValue, len(periods))}
	for i, p := range periods {
		s.Periods[i] = PeriodValue{Label: p.Label, FiscalYear: p.FiscalYear, Value: decimal.Zero}
	}
	return s
}

// rollup recomputes year totals and year-to-date figures from period values
func (s *Series) rollup(window fiscal.Window) {
	years := window.FiscalYears()
	s.Years = make([]YearTotal, len(years))
	index := make(map[int]int, len(years))
	for i, fy := range years {
		s.Years[i] = YearTotal{FiscalYear: fy, Value: decimal.Zero}
		index[fy] = i
	}
	for _, p := range s.Periods {
		i := index[p.FiscalYear]
		s.Years[i].Value = s.Years[i].Value.Add(p.Value)
	}

	s.YearToDate = decimal.Zero
	s.PriorYearToDate = decimal.Zero
	last, ok := window.Last()
	if !ok {
		return
	}
	s.YearToDate = s.Years[index[last.FiscalYear]].Value

	periods := window.Periods()
	for i, p := range periods {
		if p.FiscalYear == last.FiscalYear-1 && p.FiscalMonth <= last.FiscalMonth {
			s.PriorYearToDate = s.PriorYearToDate.Add(s.Periods[i].Value)
		}
	}
}
