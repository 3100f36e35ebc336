package report

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Execute runs plan against ds and reshapes the result into report rows.
//
// Period columns are discovered from the result set and mapped back onto the
// plan's window by label; unknown labels are ignored and missing periods are
// zero. Rows sharing a grouping key are merged. A failing or timed-out data
// source yields a *DataSourceError and no rows; an empty result is not an error.
func Execute(ctx context.Context, plan QueryPlan, ds DataSource) ([]ReportRow, error) {
	if plan.IsEmpty() {
		return []ReportRow{}, nil
	}

	rs, err := ds.Query(ctx, plan)
	if err != nil {
		return nil, NewDataSourceError(plan.Sources, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, NewDataSourceError(plan.Sources, ctxErr)
	}
	if rs == nil || len(rs.Rows) == 0 {
		return []ReportRow{}, nil
	}

	layout, err := mapColumns(plan, rs.Columns)
	if err != nil {
		return nil, NewDataSourceError(plan.Sources, err)
	}

	groups := make(map[string]*ReportRow)
	var order []string
	for n, raw := range rs.Rows {
		if len(raw) != len(rs.Columns) {
			return nil, NewDataSourceError(plan.Sources,
				fmt.Errorf("%w: row %d has %d values for %d columns", ErrMalformedResult, n, len(raw), len(rs.Columns)))
		}

		keys := make(map[GroupKey]string, len(plan.GroupBy))
		for k, idx := range layout.keys {
			keys[k] = cellString(raw[idx])
		}
		id := groupID(plan.GroupBy, keys)

		row, ok := groups[id]
		if !ok {
			row = &ReportRow{Keys: keys, Series: make(map[string]*Series, len(plan.Metrics))}
			for _, m := range plan.Metrics {
				row.Series[m.Name] = newSeries(plan.Window)
			}
			groups[id] = row
			order = append(order, id)
		}

		for _, c := range layout.values {
			v, err := cellDecimal(raw[c.column])
			if err != nil {
				return nil, NewDataSourceError(plan.Sources,
					fmt.Errorf("%w: column %q: %v", ErrMalformedResult, rs.Columns[c.column], err))
			}
			p := &row.Series[c.metric].Periods[c.period]
			p.Value = p.Value.Add(v)
		}
	}

	slices.Sort(order)
	rows := make([]ReportRow, 0, len(order))
	for _, id := range order {
		row := groups[id]
		for _, s := range row.Series {
			s.rollup(plan.Window)
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

type valueColumn struct {
	column int
	metric string
	period int
}

type columnLayout struct {
	keys   map[GroupKey]int
	values []valueColumn
}

func mapColumns(plan QueryPlan, columns []string) (columnLayout, error) {
	layout := columnLayout{keys: make(map[GroupKey]int, len(plan.GroupBy))}

	wanted := make(map[string]GroupKey, len(plan.GroupBy))
	for _, k := range plan.GroupBy {
		wanted[string(k)] = k
	}

	for i, col := range columns {
		if k, ok := wanted[col]; ok {
			layout.keys[k] = i
			continue
		}
		metric, label, ok := ParseMetricColumn(col)
		if !ok {
			continue
		}
		if _, known := plan.Metric(metric); !known {
			continue
		}
		p, inWindow := plan.Window.Lookup(label)
		if !inWindow {
			continue
		}
		layout.values = append(layout.values, valueColumn{column: i, metric: metric, period: p.Ordinal - 1})
	}

	for _, k := range plan.GroupBy {
		if _, ok := layout.keys[k]; !ok {
			return columnLayout{}, fmt.Errorf("%w: missing group column %q", ErrMalformedResult, k)
		}
	}
	return layout, nil
}

// groupID encodes keys in plan order; the unit separator never appears in codes
func groupID(groupBy []GroupKey, keys map[GroupKey]string) string {
	parts := make([]string, len(groupBy))
	for i, k := range groupBy {
		parts[i] = keys[k]
	}
	return strings.Join(parts, "\x1f")
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func cellDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return t, nil
	case *decimal.Decimal:
		if t == nil {
			return decimal.Zero, nil
		}
		return *t, nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int32:
		return decimal.NewFromInt32(t), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case *big.Int:
		return decimal.NewFromBigInt(t, 0), nil
	case []byte:
		return parseDecimal(string(t))
	case string:
		return parseDecimal(t)
	default:
		return decimal.Zero, fmt.Errorf("unsupported value type %T", v)
	}
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
