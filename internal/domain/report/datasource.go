package report

import (
	"context"
	"strings"
)

// periodSeparator joins a metric name and a period label in result column names
const periodSeparator = "@"

// ResultSet is a raw, column-discovered result of executing a plan.
// Group key columns are named after the GroupKey; metric columns are named
// "<metric>@<period label>".
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// DataSource executes query plans over historical transaction records
type DataSource interface {
	// Query unions the plan's sources, filters and buckets them, and returns
	// one pivoted row per grouping-key combination
	Query(ctx context.Context, plan QueryPlan) (*ResultSet, error)
}

// DataSourceFunc adapts a function to DataSource
type DataSourceFunc func(ctx context.Context, plan QueryPlan) (*ResultSet, error)

// Query calls f
func (f DataSourceFunc) Query(ctx context.Context, plan QueryPlan) (*ResultSet, error) {
	return f(ctx, plan)
}

// MetricColumn returns the result column name for metric in period label
func MetricColumn(metric, label string) string {
	return metric + periodSeparator + label
}

// ParseMetricColumn splits a result column into metric name and period label
func ParseMetricColumn(column string) (metric, label string, ok bool) {
	i := strings.LastIndex(column, periodSeparator)
	if i <= 0 || i == len(column)-1 {
		return "", "", false
	}
	return column[:i], column[i+1:], true
}
