// Package fluentdb is a fluent SQL statement builder for MySQL, PostgreSQL
// and SQLite. A handle accumulates clauses through chained calls, renders
// them into one statement with escaped literals, runs it, and resets. A
// one-shot result cache and savepoint-based nested transactions are built in.
package fluentdb

import (
	"context"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/coregx/fluentdb/internal/cache"
	"github.com/coregx/fluentdb/internal/config"
	"github.com/coregx/fluentdb/internal/core"
	"github.com/coregx/fluentdb/internal/metrics"
	"github.com/coregx/fluentdb/internal/security"
)

type (
	// DB is a connection handle carrying the statement being built.
	DB = core.DB
	// Option configures a DB.
	Option = core.Option
	// Conn is the driver surface a DB runs statements through.
	Conn = core.Conn
	// Rows is the cursor returned by Conn.Query.
	Rows = core.Rows

	// Condition is an argument to Where and Having.
	Condition = core.Condition
	// Pair is a single column = value predicate or column value.
	Pair = core.Pair
	// Pairs is an ordered list of Pair.
	Pairs = core.Pairs
	// HashExp maps columns to values, rendered in sorted column order.
	HashExp = core.HashExp
	// Template is a predicate with ? placeholders.
	Template = core.Template
	// Comparison is a column compared to a value.
	Comparison = core.Comparison
	// Row is one row of values for Insert or Update.
	Row = core.Row

	// FetchMode selects the shape of returned rows.
	FetchMode = core.FetchMode
	// Result is what a statement produced.
	Result = core.Result
	// Record is one row in column order.
	Record = core.Record
	// Phase is where a handle sits in the build/execute cycle.
	Phase = core.Phase

	// QueryError is a statement the driver rejected.
	QueryError = core.QueryError
	// ErrorSink decides what happens to a failed statement.
	ErrorSink = core.ErrorSink
	// ReturnSink returns failures to the caller.
	ReturnSink = core.ReturnSink
	// DebugSink prints failures and exits.
	DebugSink = core.DebugSink

	// QueryEvent describes one executed statement.
	QueryEvent = core.QueryEvent
	// QueryHook is called after every statement.
	QueryHook = core.QueryHook

	// Config holds connection settings for Connect.
	Config = config.Config
	// CacheStore is a result cache backend.
	CacheStore = cache.Store
	// MetricsCollector holds the prometheus vectors.
	MetricsCollector = metrics.Collector
	// Validator rejects raw statements matching injection patterns.
	Validator = security.Validator
	// Auditor writes an audit trail of executed statements.
	Auditor = security.Auditor
	// AuditLevel selects which statements are audited.
	AuditLevel = security.AuditLevel
)

// Fetch modes.
var (
	ModeObject = core.ModeObject
	ModeAssoc  = core.ModeAssoc
)

// Handle phases.
const (
	PhaseIdle      = core.PhaseIdle
	PhaseBuilding  = core.PhaseBuilding
	PhasePending   = core.PhasePending
	PhaseExecuting = core.PhaseExecuting
)

// Debug output formats.
const (
	FormatText = core.FormatText
	FormatHTML = core.FormatHTML
)

// Audit levels.
const (
	AuditNone   = security.AuditNone
	AuditWrites = security.AuditWrites
	AuditReads  = security.AuditReads
	AuditAll    = security.AuditAll
)

// Errors.
var (
	ErrNoStatement        = core.ErrNoStatement
	ErrNoTransaction      = core.ErrNoTransaction
	ErrTxInProgress       = core.ErrTxInProgress
	ErrNoData             = core.ErrNoData
	ErrUnsupportedDialect = core.ErrUnsupportedDialect
	ErrInvalidFetchTarget = core.ErrInvalidFetchTarget
	ErrUnsafeStatement    = security.ErrUnsafeStatement
)

// Re-export core functions.
var (
	Open            = core.Open
	NewDB           = core.NewDB
	WrapDB          = core.WrapDB
	Tpl             = core.Tpl
	Col             = core.Col
	Into            = core.Into
	ParseFetchMode  = core.ParseFetchMode
	IsOperator      = core.IsOperator
	DetectOperation = core.DetectOperation

	WithPrefix            = core.WithPrefix
	WithDebug             = core.WithDebug
	WithErrorSink         = core.WithErrorSink
	WithLogger            = core.WithLogger
	WithSensitiveFields   = core.WithSensitiveFields
	WithOtelTracer        = core.WithOtelTracer
	WithMetrics           = core.WithMetrics
	WithQueryHook         = core.WithQueryHook
	WithValidator         = core.WithValidator
	WithAuditor           = core.WithAuditor
	WithCacheStore        = core.WithCacheStore
	WithStmtCacheCapacity = core.WithStmtCacheCapacity
	WithHealthCheck       = core.WithHealthCheck
	WithMaxOpenConns      = core.WithMaxOpenConns
	WithMaxIdleConns      = core.WithMaxIdleConns

	NewMemoryStore = cache.NewMemoryStore
	NewFileStore   = cache.NewFileStore
	OpenBoltStore  = cache.OpenBoltStore

	NewMetricsCollector = metrics.NewCollector
	NewValidator        = security.NewValidator
	NewAuditor          = security.NewAuditor
	ParseAuditLevel     = security.ParseAuditLevel
	WithUser            = security.WithUser
	WithClientIP        = security.WithClientIP
	WithRequestID       = security.WithRequestID

	DefaultConfig = config.Default
	LoadConfig    = config.Load
)

// Connect opens a handle from cfg, wiring its prefix, debug mode, pool
// limits, cache backend, validator and auditor, and pings the database.
// opts are applied after the configured ones.
func Connect(ctx context.Context, cfg *Config, opts ...Option) (*DB, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	store, err := openCacheStore(cfg)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithPrefix(cfg.Prefix),
		WithDebug(cfg.Debug),
		WithCacheStore(store),
		WithMaxOpenConns(cfg.MaxOpenConns),
		WithMaxIdleConns(cfg.MaxIdleConns),
		WithHealthCheck(cfg.HealthCheck),
	}
	if cfg.ValidateStatements {
		base = append(base, WithValidator(security.NewValidator()))
	}
	if level := security.ParseAuditLevel(cfg.AuditLevel); level != security.AuditNone {
		audit := slog.New(slog.NewJSONHandler(os.Stderr, nil))
		base = append(base, WithAuditor(security.NewAuditor(audit, level)))
	}

	db, err := core.Open(cfg.DriverName(), dsn, append(base, opts...)...)
	if err != nil {
		_ = store.Close()
		return nil, errors.Wrapf(err, "opening %s", cfg.DriverName())
	}
	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "connecting to %s", cfg.DriverName())
	}
	return db, nil
}

func openCacheStore(cfg *Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.CacheFile:
		return cache.NewFileStore(cfg.Cache.Dir)
	case config.CacheBolt:
		if err := os.MkdirAll(cfg.Cache.Dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating cache dir %s", cfg.Cache.Dir)
		}
		return cache.OpenBoltStore(cfg.BoltPath())
	}
	return cache.NewMemoryStore(cfg.Cache.Capacity), nil
}
