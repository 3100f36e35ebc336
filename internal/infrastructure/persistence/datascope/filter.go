// Package datascope applies access row filters to GORM queries.
//
// A report.RowFilter is the data-level form of an access predicate. Apply
// turns it into WHERE conditions on the natural-key columns shared by every
// sales history table:
//   - match nothing: 1 = 0
//   - owner only: owner_code = ?
//   - owner plus extra: (owner_code = ? OR record_key IN ?)
//   - region narrowing: region_code IN ?, ANDed with the owner condition
//
// Usage:
//
//	scoped := datascope.Apply(db.Table("sales_history_current"), plan.Filter)
package datascope

import (
	"github.com/salesops/backend/internal/domain/report"
	"gorm.io/gorm"
)

// Apply restricts db to the rows admitted by f
func Apply(db *gorm.DB, f report.RowFilter) *gorm.DB {
	if f.MatchNothing {
		return db.Where("1 = 0")
	}

	if f.RegionRestricted {
		if len(f.RegionIn) == 0 {
			return db.Where("1 = 0")
		}
		db = db.Where(report.ColumnRegion+" IN ?", f.RegionIn)
	}

	if f.OwnerEquals == "" {
		return db
	}
	if len(f.OrRecordKeyIn) == 0 {
		return db.Where(report.ColumnOwner+" = ?", f.OwnerEquals)
	}
	return db.Where("("+report.ColumnOwner+" = ? OR "+report.ColumnRecordKey+" IN ?)", f.OwnerEquals, f.OrRecordKeyIn)
}

// Scope returns Apply as a GORM scope function
func Scope(f report.RowFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return Apply(db, f)
	}
}
