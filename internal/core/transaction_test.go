package core

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/fluentdb/internal/metrics"
)

func TestTransaction_NestedSequence(t *testing.T) {
	db, conn := newTestDB()
	ctx := context.Background()

	require.NoError(t, db.Begin(ctx))
	assert.Equal(t, 1, db.TransactionDepth())
	assert.Equal(t, 1, conn.begins)

	require.NoError(t, db.Begin(ctx))
	assert.Equal(t, 2, db.TransactionDepth())
	assert.Equal(t, []string{"SAVEPOINT trans2"}, conn.execs)

	require.NoError(t, db.Commit(ctx))
	assert.Equal(t, 1, db.TransactionDepth())
	assert.Zero(t, conn.commits, "inner commit is a no-op")

	require.NoError(t, db.Rollback(ctx))
	assert.Equal(t, 0, db.TransactionDepth())
	assert.Equal(t, 1, conn.rollbacks)
	assert.Equal(t, []string{"SAVEPOINT trans2"}, conn.execs)
}

func TestTransaction_InnerRollbackToSavepoint(t *testing.T) {
	db, conn := newTestDB()
	ctx := context.Background()

	require.NoError(t, db.Begin(ctx))
	require.NoError(t, db.Begin(ctx))
	require.NoError(t, db.Begin(ctx))

	require.NoError(t, db.Rollback(ctx))
	require.NoError(t, db.Rollback(ctx))
	assert.Equal(t, 1, db.TransactionDepth())
	assert.Zero(t, conn.rollbacks)

	require.NoError(t, db.Commit(ctx))
	assert.Equal(t, 1, conn.commits)

	assert.Equal(t, []string{
		"SAVEPOINT trans2",
		"SAVEPOINT trans3",
		"ROLLBACK TO trans3",
		"ROLLBACK TO trans2",
	}, conn.execs)
}

func TestTransaction_DepthZero(t *testing.T) {
	db, conn := newTestDB()
	ctx := context.Background()

	assert.ErrorIs(t, db.Commit(ctx), ErrNoTransaction)
	assert.ErrorIs(t, db.Rollback(ctx), ErrNoTransaction)
	assert.Zero(t, conn.commits+conn.rollbacks)
	assert.Equal(t, 0, db.TransactionDepth())
}

func TestTransaction_StatementResetsDepth(t *testing.T) {
	db, conn := newTestDB()
	ctx := context.Background()

	require.NoError(t, db.Begin(ctx))
	_, err := db.Table("users").Insert(ctx, Pair{"name", "a"})
	require.NoError(t, err)
	assert.Equal(t, 0, db.TransactionDepth())

	assert.ErrorIs(t, db.Commit(ctx), ErrNoTransaction)
	assert.ErrorIs(t, db.Begin(ctx), ErrTxInProgress, "the driver transaction is still open")
	assert.True(t, conn.inTx)
}

func TestTransaction_Metrics(t *testing.T) {
	c := metrics.NewCollector()
	db, _ := newTestDB(WithMetrics(c))
	ctx := context.Background()

	require.NoError(t, db.Begin(ctx))
	require.NoError(t, db.Begin(ctx))
	require.NoError(t, db.Commit(ctx))
	require.NoError(t, db.Rollback(ctx))

	assert.Equal(t, float64(1), testutil.ToFloat64(c.Transactions.WithLabelValues(metrics.TransactionBegin)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Transactions.WithLabelValues(metrics.TransactionSavepoint)))
	assert.Zero(t, testutil.ToFloat64(c.Transactions.WithLabelValues(metrics.TransactionCommit)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Transactions.WithLabelValues(metrics.TransactionRollback)))
}
