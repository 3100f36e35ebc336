package persistence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/salesops/backend/internal/domain/report"
	"github.com/salesops/backend/internal/infrastructure/persistence/datascope"
	"github.com/salesops/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

var sourceIDPattern = regexp.MustCompile(`^[a-z0-9_]{1,48}$`)

// unionColumns is the projection every source branch contributes to the union
var unionColumns = []string{
	"owner_code", "ship_to_code", "item_code", "region_code", "record_key",
	"extended_amount", "quantity", "cost_amount",
}

// periodLabelColumn holds the YYYY-MM bucket of each unioned row
const periodLabelColumn = "period_label"

// GormSalesDataSource executes report plans against sales_history_<source>
// tables. All sources are unioned before grouping so a key present in several
// sources yields one row; each period becomes a "<metric>@<label>" column.
type GormSalesDataSource struct {
	db *gorm.DB
}

// NewGormSalesDataSource creates a new GormSalesDataSource
func NewGormSalesDataSource(db *gorm.DB) *GormSalesDataSource {
	return &GormSalesDataSource{db: db}
}

// Query implements report.DataSource
func (r *GormSalesDataSource) Query(ctx context.Context, plan report.QueryPlan) (*report.ResultSet, error) {
	if len(plan.Sources) == 0 {
		return nil, errors.New("plan has no sources")
	}
	db := r.db.WithContext(ctx)

	union, err := r.unionQuery(db, plan)
	if err != nil {
		return nil, err
	}

	selectSQL, args := pivotSelect(plan)
	query := db.Table("(?) AS u", union).Select(selectSQL, args...)
	if len(plan.GroupBy) > 0 {
		keys := make([]string, len(plan.GroupBy))
		for i, k := range plan.GroupBy {
			keys[i] = "u." + k.Column()
		}
		// a single raw expression keeps GORM from quoting u.column as one identifier
		query = query.Group(strings.Join(keys, ", ")).Order(strings.Join(keys, ", "))
	}
	query = query.Having("COUNT(*) > 0")

	rows, err := query.Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	rs := &report.ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

// unionQuery builds "branch UNION ALL branch ..." with the date bounds and
// access filter applied inside every branch
func (r *GormSalesDataSource) unionQuery(db *gorm.DB, plan report.QueryPlan) (*gorm.DB, error) {
	projection := strings.Join(unionColumns, ", ") + ", " + periodLabelExpr(db) + " AS " + periodLabelColumn

	branches := make([]any, 0, len(plan.Sources))
	for _, src := range plan.Sources {
		if !sourceIDPattern.MatchString(string(src)) {
			return nil, fmt.Errorf("invalid source id %q", src)
		}
		branch := db.Table(models.SalesHistoryTable(src)).
			Select(projection).
			Where(report.ColumnTxnDate+" >= ? AND "+report.ColumnTxnDate+" < ?", plan.LowerBound(), plan.UpperBound())
		branches = append(branches, datascope.Apply(branch, plan.Filter))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("? UNION ALL ", len(branches)), " UNION ALL ")
	return db.Raw(placeholders, branches...), nil
}

// pivotSelect returns the outer projection: group keys aliased to their key
// names followed by one conditional sum per metric and window period
func pivotSelect(plan report.QueryPlan) (string, []any) {
	labels := plan.Window.Labels()
	parts := make([]string, 0, len(plan.GroupBy)+len(plan.Metrics)*len(labels))
	args := make([]any, 0, len(plan.Metrics)*len(labels))

	for _, k := range plan.GroupBy {
		parts = append(parts, "u."+k.Column()+" AS "+quoteIdent(string(k)))
	}
	for _, m := range plan.Metrics {
		for _, label := range labels {
			parts = append(parts, fmt.Sprintf(
				"COALESCE(SUM(CASE WHEN u.%s = ? THEN u.%s ELSE 0 END), 0) AS %s",
				periodLabelColumn, m.Column, quoteIdent(report.MetricColumn(m.Name, label)),
			))
			args = append(args, label)
		}
	}
	return strings.Join(parts, ", "), args
}

// periodLabelExpr formats txn_date as YYYY-MM in the connected dialect
func periodLabelExpr(db *gorm.DB) string {
	if db.Dialector.Name() == "sqlite" {
		return "strftime('%Y-%m', " + report.ColumnTxnDate + ")"
	}
	return "to_char(" + report.ColumnTxnDate + ", 'YYYY-MM')"
}

// quoteIdent double-quotes an identifier; postgres and sqlite both accept it
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var _ report.DataSource = (*GormSalesDataSource)(nil)
