// Package core implements the fluent statement builder, its compiler, the
// execution engine with its one-shot result cache, and the nested
// transaction counter.
package core

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/coregx/fluentdb/internal/cache"
	"github.com/coregx/fluentdb/internal/dialects"
	"github.com/coregx/fluentdb/internal/logger"
	"github.com/coregx/fluentdb/internal/metrics"
	"github.com/coregx/fluentdb/internal/security"
	"github.com/coregx/fluentdb/internal/tracer"
)

// DB is a connection handle carrying the statement being built.
// A DB is not safe for concurrent use; see Clone.
type DB struct {
	conn       Conn
	driverName string
	prefix     string
	debug      bool
	sink       ErrorSink
	logger     logger.Logger
	sanitizer  *logger.Sanitizer
	tracer     tracer.Tracer
	metrics    metrics.Recorder
	queryHook  QueryHook
	validator  *security.Validator
	auditor    *security.Auditor
	store      cache.Store
	connOpts   connOptions

	state        builderState
	phase        Phase
	query        string
	rowCount     int
	lastInsertID int64
	queryCount   int
	lastError    error
	txDepth      int
	cache        *cacheScope
	rejected     error
	clone        bool
}

// Option configures a DB.
type Option func(*DB)

// WithPrefix sets the prefix added to every table name.
func WithPrefix(prefix string) Option {
	return func(db *DB) {
		db.prefix = prefix
	}
}

// WithDebug routes statement failures to a DebugSink writing text to
// stderr and exiting the process. WithErrorSink overrides it.
func WithDebug(debug bool) Option {
	return func(db *DB) {
		db.debug = debug
	}
}

// WithErrorSink sets where statement failures are reported.
func WithErrorSink(sink ErrorSink) Option {
	return func(db *DB) {
		db.sink = sink
	}
}

// WithLogger enables structured logging of every statement.
func WithLogger(l *slog.Logger) Option {
	return func(db *DB) {
		db.logger = logger.NewSlogAdapter(l)
	}
}

// WithSensitiveFields replaces the column names whose values are masked
// in logs and spans.
func WithSensitiveFields(fields ...string) Option {
	return func(db *DB) {
		db.sanitizer = logger.NewSanitizer(fields)
	}
}

// WithTracer sets the tracer used for statement spans.
func WithTracer(t tracer.Tracer) Option {
	return func(db *DB) {
		if t != nil {
			db.tracer = t
		}
	}
}

// WithOtelTracer traces statements through an OpenTelemetry tracer.
func WithOtelTracer(t trace.Tracer) Option {
	return func(db *DB) {
		db.tracer = tracer.NewOtelTracer(t)
	}
}

// WithMetrics records statement, cache and transaction counters.
func WithMetrics(r metrics.Recorder) Option {
	return func(db *DB) {
		if r != nil {
			db.metrics = r
		}
	}
}

// WithQueryHook sets a callback run after every statement.
func WithQueryHook(hook QueryHook) Option {
	return func(db *DB) {
		db.queryHook = hook
	}
}

// WithValidator rejects raw statements passed to Query and Prepare, and
// Prepare arguments, that match injection patterns.
func WithValidator(v *security.Validator) Option {
	return func(db *DB) {
		db.validator = v
	}
}

// WithAuditor writes an audit record for every executed statement the
// auditor's level covers.
func WithAuditor(a *security.Auditor) Option {
	return func(db *DB) {
		db.auditor = a
	}
}

// WithCacheStore sets the backend used by Cache. The default keeps results
// in process memory.
func WithCacheStore(store cache.Store) Option {
	return func(db *DB) {
		if store != nil {
			db.store = store
		}
	}
}

// WithStmtCacheCapacity prepares every statement and keeps up to capacity
// of them. Off by default, since rendered statements rarely repeat.
func WithStmtCacheCapacity(capacity int) Option {
	return func(db *DB) {
		db.connOpts.stmtCacheSize = capacity
	}
}

// WithHealthCheck pings the pool every interval in the background.
func WithHealthCheck(interval time.Duration) Option {
	return func(db *DB) {
		db.connOpts.healthInterval = interval
	}
}

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(db *DB) {
		db.connOpts.maxOpen = n
	}
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(db *DB) {
		db.connOpts.maxIdle = n
	}
}

func newHandle(conn Conn, driverName string, opts []Option) *DB {
	db := &DB{
		conn:       conn,
		driverName: driverName,
		logger:     logger.NoopLogger{},
		tracer:     tracer.NoopTracer{},
		metrics:    metrics.Noop{},
		state:      newBuilderState(),
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.sanitizer == nil {
		db.sanitizer = logger.NewSanitizer(nil)
	}
	if db.store == nil {
		db.store = cache.NewMemoryStore(cache.DefaultMemoryCapacity)
	}
	if db.sink == nil {
		if db.debug {
			db.sink = DebugSink{}
		} else {
			db.sink = ReturnSink{}
		}
	}
	return db
}

// NewDB builds a handle over an existing Conn.
func NewDB(conn Conn, driverName string, opts ...Option) *DB {
	return newHandle(conn, driverName, opts)
}

// Open opens a pool for driverName and wraps it. No connection is made
// until the first statement or Ping.
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	dialect, ok := dialects.Lookup(driverName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, driverName)
	}
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return wrap(sqlDB, driverName, dialect, opts), nil
}

// WrapDB builds a handle over a pool the caller already opened. Close
// closes it.
func WrapDB(sqlDB *sql.DB, driverName string, opts ...Option) (*DB, error) {
	dialect, ok := dialects.Lookup(driverName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, driverName)
	}
	return wrap(sqlDB, driverName, dialect, opts), nil
}

func wrap(sqlDB *sql.DB, driverName string, dialect dialects.Dialect, opts []Option) *DB {
	db := newHandle(nil, driverName, opts)
	db.conn = newSQLConn(sqlDB, dialect, db.connOpts, db.logger)
	return db
}

// Clone returns a handle sharing the connection pool, cache backend and
// observers but with its own builder state, counters, transaction and
// last insert id. Closing a clone leaves the pool and cache backend open.
func (db *DB) Clone() *DB {
	conn := db.conn
	if f, ok := conn.(interface{ fork() Conn }); ok {
		conn = f.fork()
	}
	return &DB{
		conn:       conn,
		driverName: db.driverName,
		prefix:     db.prefix,
		debug:      db.debug,
		sink:       db.sink,
		logger:     db.logger,
		sanitizer:  db.sanitizer,
		tracer:     db.tracer,
		metrics:    db.metrics,
		queryHook:  db.queryHook,
		validator:  db.validator,
		auditor:    db.auditor,
		store:      db.store,
		connOpts:   db.connOpts,
		state:      newBuilderState(),
		clone:      true,
	}
}

// Ping verifies the connection when the Conn supports it.
func (db *DB) Ping(ctx context.Context) error {
	if p, ok := db.conn.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// IsHealthy reports the outcome of the last background health check.
// Handles without WithHealthCheck are always healthy.
func (db *DB) IsHealthy() bool {
	if c, ok := db.conn.(*sqlConn); ok {
		return c.healthy()
	}
	return true
}

// LastHealthCheck is when the background health checker last pinged the
// pool. It is zero without WithHealthCheck or before the first ping.
func (db *DB) LastHealthCheck() time.Time {
	if c, ok := db.conn.(*sqlConn); ok && c.health != nil {
		return c.health.lastCheck()
	}
	return time.Time{}
}

// Close closes the connection and the cache backend. On a clone it only
// rolls back the clone's open transaction.
func (db *DB) Close() error {
	if db.clone {
		if c, ok := db.conn.(*sqlConn); ok && c.forked {
			return c.Close()
		}
		return nil
	}
	err := db.conn.Close()
	if cerr := db.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// DriverName returns the driver the handle was opened with.
func (db *DB) DriverName() string { return db.driverName }

// Prefix returns the table name prefix.
func (db *DB) Prefix() string { return db.prefix }

// QueryCount is the number of statements run through Query and the
// terminal builders since the handle was created.
func (db *DB) QueryCount() int { return db.queryCount }

// LastQuery is the statement most recently run or prepared.
func (db *DB) LastQuery() string { return db.query }

// RowCount is the number of rows the last statement returned or affected.
func (db *DB) RowCount() int { return db.rowCount }

// LastInsertID is the id generated by the most recent Insert.
func (db *DB) LastInsertID() int64 { return db.lastInsertID }

// LastError is the failure of the last statement, if any.
func (db *DB) LastError() error { return db.lastError }

// TransactionDepth is the current Begin nesting level.
func (db *DB) TransactionDepth() int { return db.txDepth }

// Phase reports where the handle is in the build/execute cycle.
func (db *DB) Phase() Phase { return db.phase }
