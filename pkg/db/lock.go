package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WithRowLock adds a FOR UPDATE clause on dialects that support it.
// SQLite serializes writers on its own, so the clause is skipped there.
func WithRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// RowLockSuffix returns the FOR UPDATE suffix for raw queries, empty on
// dialects without row locking.
func RowLockSuffix(tx *gorm.DB, skipLocked bool) string {
	if tx.Dialector.Name() == "sqlite" {
		return ""
	}
	if skipLocked {
		return " FOR UPDATE SKIP LOCKED"
	}
	return " FOR UPDATE"
}
