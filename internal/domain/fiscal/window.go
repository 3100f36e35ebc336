package fiscal

import "time"

// Period is one calendar month positioned inside a fiscal window
type Period struct {
	FiscalYear  int       `json:"fiscal_year"`
	FiscalMonth int       `json:"fiscal_month"` // 1-based month within the fiscal year
	Label       string    `json:"label"`
	Ordinal     int       `json:"ordinal"` // 1-based position in the window
	Start       time.Time `json:"start"`
}

// End returns the exclusive upper bound of the period
func (p Period) End() time.Time {
	return p.Start.AddDate(0, 1, 0)
}

// Window is an ordered, contiguous run of monthly periods.
// The zero value is an empty window.
type Window struct {
	periods []Period
	byLabel map[string]int
	years   []int
}

func newWindow(periods []Period) Window {
	w := Window{
		periods: periods,
		byLabel: make(map[string]int, len(periods)),
	}
	for i, p := range periods {
		w.byLabel[p.Label] = i
		if len(w.years) == 0 || w.years[len(w.years)-1] != p.FiscalYear {
			w.years = append(w.years, p.FiscalYear)
		}
	}
	return w
}

// Periods returns a copy of the window's periods in order
func (w Window) Periods() []Period {
	out := make([]Period, len(w.periods))
	copy(out, w.periods)
	return out
}

// Len returns the number of periods
func (w Window) Len() int {
	return len(w.periods)
}

// IsEmpty reports whether the window holds no periods
func (w Window) IsEmpty() bool {
	return len(w.periods) == 0
}

// First returns the earliest period
func (w Window) First() (Period, bool) {
	if w.IsEmpty() {
		return Period{}, false
	}
	return w.periods[0], true
}

// Last returns the latest period
func (w Window) Last() (Period, bool) {
	if w.IsEmpty() {
		return Period{}, false
	}
	return w.periods[len(w.periods)-1], true
}

// Start returns the inclusive lower date bound of the window
func (w Window) Start() time.Time {
	p, ok := w.First()
	if !ok {
		return time.Time{}
	}
	return p.Start
}

// End returns the exclusive upper date bound of the window
func (w Window) End() time.Time {
	p, ok := w.Last()
	if !ok {
		return time.Time{}
	}
	return p.End()
}

// Lookup finds the period carrying label
func (w Window) Lookup(label string) (Period, bool) {
	i, ok := w.byLabel[label]
	if !ok {
		return Period{}, false
	}
	return w.periods[i], true
}

// Labels returns the period labels in window order
func (w Window) Labels() []string {
	labels := make([]string, len(w.periods))
	for i, p := range w.periods {
		labels[i] = p.Label
	}
	return labels
}

// FiscalYears returns the fiscal years covered, ascending
func (w Window) FiscalYears() []int {
	out := make([]int, len(w.years))
	copy(out, w.years)
	return out
}

// PeriodsOf returns the periods belonging to fiscal year fy
func (w Window) PeriodsOf(fy int) []Period {
	var out []Period
	for _, p := range w.periods {
		if p.FiscalYear == fy {
			out = append(out, p)
		}
	}
	return out
}
