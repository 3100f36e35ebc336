// Package report builds and materializes fiscal-period sales history pivots.
//
// A QueryPlan names the sources to union, the access filter, the fiscal window
// and the metrics to sum per period. Data sources execute plans and return
// result sets whose period columns vary with the window; Execute maps those
// columns back onto the window and produces stable ReportRows.
package report

import (
	"slices"
	"time"

	"github.com/salesops/backend/internal/domain/access"
	"github.com/salesops/backend/internal/domain/fiscal"
)

// SourceID names one physically separate sales history dataset
type SourceID string

// GroupKey is a natural key attribute of a sales history record
type GroupKey string

const (
	GroupOwner     GroupKey = "owner"
	GroupShipTo    GroupKey = "ship_to"
	GroupItem      GroupKey = "item"
	GroupRegion    GroupKey = "region"
	GroupRecordKey GroupKey = "record_key"
)

// naturalKeyColumns maps each group key to its column in every source table.
// This is the single source of truth for the projection shared by all sources.
var naturalKeyColumns = map[GroupKey]string{
	GroupOwner:     "owner_code",
	GroupShipTo:    "ship_to_code",
	GroupItem:      "item_code",
	GroupRegion:    "region_code",
	GroupRecordKey: "record_key",
}

// Column returns the source column backing the group key
func (k GroupKey) Column() string {
	return naturalKeyColumns[k]
}

// IsNatural reports whether k is a natural key attribute
func (k GroupKey) IsNatural() bool {
	_, ok := naturalKeyColumns[k]
	return ok
}

// Transaction columns used by row filters and period bucketing
const (
	ColumnOwner     = "owner_code"
	ColumnRecordKey = "record_key"
	ColumnRegion    = "region_code"
	ColumnTxnDate   = "txn_date"
)

// metricColumns lists the numeric columns a metric may sum
var metricColumns = map[string]bool{
	"extended_amount": true,
	"quantity":        true,
	"cost_amount":     true,
}

// MetricDef names a summed aggregate and the keys it is grouped by
type MetricDef struct {
	Name    string     `json:"name"`
	Column  string     `json:"column"`
	GroupBy []GroupKey `json:"group_by"`
}

// Sum defines a metric summing column grouped by keys
func Sum(name, column string, groupBy ...GroupKey) MetricDef {
	return MetricDef{Name: name, Column: column, GroupBy: groupBy}
}

// Revenue sums extended revenue
func Revenue(groupBy ...GroupKey) MetricDef {
	return Sum("revenue", "extended_amount", groupBy...)
}

// Quantity sums shipped quantity
func Quantity(groupBy ...GroupKey) MetricDef {
	return Sum("quantity", "quantity", groupBy...)
}

// Cost sums extended cost
func Cost(groupBy ...GroupKey) MetricDef {
	return Sum("cost", "cost_amount", groupBy...)
}

// RowFilter is the data-level translation of an access predicate.
// Conditions are ANDed.
type RowFilter struct {
	// MatchNothing is set for the fail-closed predicate
	MatchNothing bool `json:"match_nothing,omitempty"`
	// OwnerEquals restricts owner_code; empty means any owner
	OwnerEquals string `json:"owner_equals,omitempty"`
	// OrRecordKeyIn widens OwnerEquals with extra record keys
	OrRecordKeyIn []string `json:"or_record_key_in,omitempty"`
	// RegionIn restricts region_code when RegionRestricted is set
	RegionIn         []string `json:"region_in,omitempty"`
	RegionRestricted bool     `json:"region_restricted,omitempty"`
}

// IsUnrestricted reports whether the filter admits every row
func (f RowFilter) IsUnrestricted() bool {
	return !f.MatchNothing && f.OwnerEquals == "" && !f.RegionRestricted
}

// Matches evaluates the filter against one record's owner, key and region
func (f RowFilter) Matches(owner, recordKey, region string) bool {
	if f.MatchNothing {
		return false
	}
	if f.RegionRestricted && !slices.Contains(f.RegionIn, region) {
		return false
	}
	if f.OwnerEquals == "" {
		return true
	}
	return owner == f.OwnerEquals || slices.Contains(f.OrRecordKeyIn, recordKey)
}

// QueryPlan describes which sources to union, how to filter them, which
// periods to bucket into and which metrics to sum
type QueryPlan struct {
	Sources   []SourceID
	Predicate access.AccessPredicate
	Filter    RowFilter
	Window    fiscal.Window
	Metrics   []MetricDef
	GroupBy   []GroupKey
}

// IsEmpty reports whether the plan can never yield rows
func (p QueryPlan) IsEmpty() bool {
	return p.Filter.MatchNothing
}

// LowerBound is the inclusive transaction date bound of the plan
func (p QueryPlan) LowerBound() time.Time {
	return p.Window.Start()
}

// UpperBound is the exclusive transaction date bound of the plan
func (p QueryPlan) UpperBound() time.Time {
	return p.Window.End()
}

// Metric returns the metric definition named name
func (p QueryPlan) Metric(name string) (MetricDef, bool) {
	for _, m := range p.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return MetricDef{}, false
}
