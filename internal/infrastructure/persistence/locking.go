package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// isSQLite reports whether db talks to SQLite, which has neither row locks
// nor advisory locks. SQLite serializes writers on the whole database.
func isSQLite(db *gorm.DB) bool {
	return db.Dialector.Name() == "sqlite"
}

// forUpdate adds SELECT ... FOR UPDATE to the query
func forUpdate(db *gorm.DB) *gorm.DB {
	if isSQLite(db) {
		return db
	}
	return db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

// advisoryXactLock takes a transaction-scoped advisory lock on key. It must
// run inside a transaction and is released on commit or rollback.
func advisoryXactLock(ctx context.Context, db *gorm.DB, key string) error {
	if isSQLite(db) {
		return nil
	}
	if err := db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
		return fmt.Errorf("failed to acquire advisory lock %q: %w", key, err)
	}
	return nil
}
