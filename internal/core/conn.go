package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/coregx/fluentdb/internal/cache"
	"github.com/coregx/fluentdb/internal/dialects"
	"github.com/coregx/fluentdb/internal/logger"
)

// Rows is the cursor returned by Conn.Query. *sql.Rows implements it.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Conn is the driver surface a handle runs statements through.
// Statements arrive fully rendered; there are no bind arguments.
type Conn interface {
	Exec(ctx context.Context, query string) (int64, error)
	Query(ctx context.Context, query string) (Rows, error)
	Quote(s string) string
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	LastInsertID() (int64, error)
	Close() error
}

// connOptions configure the *sql.DB behind a sqlConn.
type connOptions struct {
	maxOpen        int
	maxIdle        int
	stmtCacheSize  int
	healthInterval time.Duration
}

// sqlConn implements Conn over database/sql. While a transaction is open
// every statement runs on it.
type sqlConn struct {
	db      *sql.DB
	dialect dialects.Dialect
	stmts   *cache.StmtCache
	health  *healthChecker

	// Per handle; forks get their own.
	tx     *sql.Tx
	last   sql.Result
	forked bool
}

func newSQLConn(db *sql.DB, dialect dialects.Dialect, opts connOptions, log logger.Logger) *sqlConn {
	if opts.maxOpen > 0 {
		db.SetMaxOpenConns(opts.maxOpen)
	}
	if opts.maxIdle > 0 {
		db.SetMaxIdleConns(opts.maxIdle)
	}

	c := &sqlConn{db: db, dialect: dialect}
	if opts.stmtCacheSize > 0 {
		c.stmts = cache.NewStmtCacheWithCapacity(opts.stmtCacheSize)
	}
	if opts.healthInterval > 0 {
		c.health = newHealthChecker(db, log, opts.healthInterval)
		c.health.start()
	}
	return c
}

// prepared returns a cached statement for query. Transactions bypass the
// cache.
func (c *sqlConn) prepared(ctx context.Context, query string) (*sql.Stmt, error) {
	if stmt, ok := c.stmts.Get(query); ok {
		return stmt, nil
	}
	stmt, err := c.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	c.stmts.Set(query, stmt)
	return stmt, nil
}

func (c *sqlConn) Exec(ctx context.Context, query string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	switch {
	case c.tx != nil:
		res, err = c.tx.ExecContext(ctx, query)
	case c.stmts != nil:
		var stmt *sql.Stmt
		if stmt, err = c.prepared(ctx, query); err == nil {
			res, err = stmt.ExecContext(ctx)
		}
	default:
		res, err = c.db.ExecContext(ctx, query)
	}
	if err != nil {
		return 0, err
	}
	c.last = res
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (c *sqlConn) Query(ctx context.Context, query string) (Rows, error) {
	switch {
	case c.tx != nil:
		return c.tx.QueryContext(ctx, query)
	case c.stmts != nil:
		stmt, err := c.prepared(ctx, query)
		if err != nil {
			return nil, err
		}
		return stmt.QueryContext(ctx)
	}
	return c.db.QueryContext(ctx, query)
}

func (c *sqlConn) Quote(s string) string {
	return c.dialect.Quote(s)
}

func (c *sqlConn) Begin(ctx context.Context) error {
	if c.tx != nil {
		return ErrTxInProgress
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

func (c *sqlConn) Commit() error {
	if c.tx == nil {
		return sql.ErrTxDone
	}
	tx := c.tx
	c.tx = nil
	return tx.Commit()
}

func (c *sqlConn) Rollback() error {
	if c.tx == nil {
		return sql.ErrTxDone
	}
	tx := c.tx
	c.tx = nil
	return tx.Rollback()
}

// LastInsertID reports the id generated by the most recent Exec. Drivers
// without support (lib/pq) yield 0 and the driver's error.
func (c *sqlConn) LastInsertID() (int64, error) {
	if c.last == nil {
		return 0, nil
	}
	return c.last.LastInsertId()
}

func (c *sqlConn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// fork returns a Conn over the same pool, statement cache and health
// checker with its own transaction and last result. Closing a fork only
// rolls back its transaction.
func (c *sqlConn) fork() Conn {
	return &sqlConn{
		db:      c.db,
		dialect: c.dialect,
		stmts:   c.stmts,
		health:  c.health,
		forked:  true,
	}
}

func (c *sqlConn) healthy() bool {
	return c.health == nil || c.health.isHealthy()
}

// Close rolls back a dangling transaction and releases the pool.
func (c *sqlConn) Close() error {
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}
	if c.forked {
		return nil
	}
	if c.health != nil {
		c.health.shutdown()
	}
	if c.stmts != nil {
		c.stmts.Clear()
	}
	return c.db.Close()
}
