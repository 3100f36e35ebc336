// Package models contains GORM persistence models that map to database tables.
// These models are separate from domain types to keep the domain layer free
// of ORM concerns; each model converts to and from its domain type.
//
// Structure:
// - base.go: shared columns
// - sales.go: per-source sales history rows (sales_history_<source>)
// - usage.go: report usage audit events
// - notification.go: notice dedup log with its unique key
// - agreement.go: pricing agreements
package models
