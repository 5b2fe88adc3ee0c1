package core

import (
	"context"
	"strconv"

	"github.com/coregx/fluentdb/internal/metrics"
)

// Begin opens a transaction at depth 0 and a savepoint "trans<depth>" when
// already inside one. Savepoint failures are logged, not returned.
//
// The depth is cleared by every statement reset, so nesting is only
// tracked across consecutive Begin, Commit and Rollback calls.
func (db *DB) Begin(ctx context.Context) error {
	prior := db.txDepth
	db.txDepth++
	if prior == 0 {
		db.metrics.ObserveTransaction(metrics.TransactionBegin)
		return db.conn.Begin(ctx)
	}

	db.metrics.ObserveTransaction(metrics.TransactionSavepoint)
	name := "trans" + strconv.Itoa(db.txDepth)
	if _, err := db.conn.Exec(ctx, "SAVEPOINT "+name); err != nil {
		db.logger.Warn("savepoint failed", "savepoint", name, "error", err)
	}
	return nil
}

// Commit leaves one nesting level. Only the outermost level commits; inner
// levels return nil without releasing their savepoint.
func (db *DB) Commit(_ context.Context) error {
	if db.txDepth == 0 {
		return ErrNoTransaction
	}
	db.txDepth--
	if db.txDepth > 0 {
		return nil
	}
	db.metrics.ObserveTransaction(metrics.TransactionCommit)
	return db.conn.Commit()
}

// Rollback leaves one nesting level. Inner levels roll back to their
// savepoint; the outermost rolls back the transaction.
func (db *DB) Rollback(ctx context.Context) error {
	if db.txDepth == 0 {
		return ErrNoTransaction
	}
	db.txDepth--
	db.metrics.ObserveTransaction(metrics.TransactionRollback)
	if db.txDepth > 0 {
		name := "trans" + strconv.Itoa(db.txDepth+1)
		if _, err := db.conn.Exec(ctx, "ROLLBACK TO "+name); err != nil {
			db.logger.Warn("rollback to savepoint failed", "savepoint", name, "error", err)
		}
		return nil
	}
	return db.conn.Rollback()
}
