package models

import (
	"time"

	"github.com/salesops/backend/internal/domain/report"
	"github.com/shopspring/decimal"
)

// SalesHistoryTablePrefix prefixes each source's table name
const SalesHistoryTablePrefix = "sales_history_"

// SalesHistoryModel is one sales transaction line. Every source table has
// exactly this shape so sources can be unioned column for column.
type SalesHistoryModel struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement"`
	OwnerCode      string          `gorm:"type:varchar(32);not null;index"`
	ShipToCode     string          `gorm:"type:varchar(32);not null"`
	ItemCode       string          `gorm:"type:varchar(64);not null"`
	RegionCode     string          `gorm:"type:varchar(32);not null;index"`
	RecordKey      string          `gorm:"type:varchar(64);not null;index"`
	TxnDate        time.Time       `gorm:"not null;index"`
	ExtendedAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CostAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// SalesHistoryTable returns the table backing source
func SalesHistoryTable(source report.SourceID) string {
	return SalesHistoryTablePrefix + string(source)
}

// SalesHistoryModelFromTransaction converts an in-memory transaction
func SalesHistoryModelFromTransaction(t report.Transaction) *SalesHistoryModel {
	return &SalesHistoryModel{
		OwnerCode:      t.Owner,
		ShipToCode:     t.ShipTo,
		ItemCode:       t.Item,
		RegionCode:     t.Region,
		RecordKey:      t.RecordKey,
		TxnDate:        t.Date.UTC(),
		ExtendedAmount: t.ExtendedAmount,
		Quantity:       t.Quantity,
		CostAmount:     t.CostAmount,
	}
}
