package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/salesops/backend/internal/domain/fiscal"
	"github.com/shopspring/decimal"
)

// Transaction is one historical sales line in a source dataset
type Transaction struct {
	Owner          string          `json:"owner"`
	ShipTo         string          `json:"ship_to"`
	Item           string          `json:"item"`
	Region         string          `json:"region"`
	RecordKey      string          `json:"record_key"`
	Date           time.Time       `json:"date"`
	ExtendedAmount decimal.Decimal `json:"extended_amount"`
	Quantity       decimal.Decimal `json:"quantity"`
	CostAmount     decimal.Decimal `json:"cost_amount"`
}

func (t Transaction) attribute(k GroupKey) string {
	switch k {
	case GroupOwner:
		return t.Owner
	case GroupShipTo:
		return t.ShipTo
	case GroupItem:
		return t.Item
	case GroupRegion:
		return t.Region
	case GroupRecordKey:
		return t.RecordKey
	default:
		return ""
	}
}

func (t Transaction) measure(column string) decimal.Decimal {
	switch column {
	case "extended_amount":
		return t.ExtendedAmount
	case "quantity":
		return t.Quantity
	case "cost_amount":
		return t.CostAmount
	default:
		return decimal.Zero
	}
}

// MemoryDataSource executes plans over in-memory transaction sets.
// It unions sources before grouping, like the SQL adapter. The server uses
// it when report.data_source is memory.
type MemoryDataSource struct {
	mu      sync.RWMutex
	sources map[SourceID][]Transaction
}

// NewMemoryDataSource creates an empty in-memory data source
func NewMemoryDataSource() *MemoryDataSource {
	return &MemoryDataSource{sources: make(map[SourceID][]Transaction)}
}

// Add appends transactions to source, creating it if needed
func (m *MemoryDataSource) Add(source SourceID, txns ...Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[source] = append(m.sources[source], txns...)
}

// Declare registers sources with no transactions so plans naming them succeed
func (m *MemoryDataSource) Declare(sources ...SourceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, src := range sources {
		if _, ok := m.sources[src]; !ok {
			m.sources[src] = []Transaction{}
		}
	}
}

// LoadJSON adds the transactions of a seed document shaped as
// {"<source id>": [transaction, ...]}
func (m *MemoryDataSource) LoadJSON(r io.Reader) error {
	var seed map[SourceID][]Transaction
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	for src, txns := range seed {
		if src == "" {
			return fmt.Errorf("seed: empty source id")
		}
		m.Add(src, txns...)
	}
	return nil
}

// Query implements DataSource
func (m *MemoryDataSource) Query(ctx context.Context, plan QueryPlan) (*ResultSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var union []Transaction
	for _, src := range plan.Sources {
		txns, ok := m.sources[src]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", src)
		}
		for _, t := range txns {
			if t.Date.Before(plan.LowerBound()) || !t.Date.Before(plan.UpperBound()) {
				continue
			}
			if !plan.Filter.Matches(t.Owner, t.RecordKey, t.Region) {
				continue
			}
			union = append(union, t)
		}
	}

	labels := plan.Window.Labels()
	columns := make([]string, 0, len(plan.GroupBy)+len(plan.Metrics)*len(labels))
	for _, k := range plan.GroupBy {
		columns = append(columns, string(k))
	}
	for _, metric := range plan.Metrics {
		for _, label := range labels {
			columns = append(columns, MetricColumn(metric.Name, label))
		}
	}

	type bucket struct {
		keys   []string
		values map[string]decimal.Decimal
	}
	buckets := make(map[string]*bucket)
	var order []string
	for _, t := range union {
		keys := make([]string, len(plan.GroupBy))
		for i, k := range plan.GroupBy {
			keys[i] = t.attribute(k)
		}
		id := fmt.Sprint(keys)
		b, ok := buckets[id]
		if !ok {
			b = &bucket{keys: keys, values: make(map[string]decimal.Decimal)}
			buckets[id] = b
			order = append(order, id)
		}
		label := fiscal.Label(t.Date)
		for _, metric := range plan.Metrics {
			col := MetricColumn(metric.Name, label)
			b.values[col] = b.values[col].Add(t.measure(metric.Column))
		}
	}

	rs := &ResultSet{Columns: columns}
	for _, id := range order {
		b := buckets[id]
		row := make([]any, 0, len(columns))
		for _, k := range b.keys {
			row = append(row, k)
		}
		for _, col := range columns[len(plan.GroupBy):] {
			row = append(row, b.values[col])
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, nil
}

var _ DataSource = (*MemoryDataSource)(nil)
