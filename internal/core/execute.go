package core

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/coregx/fluentdb/internal/security"
	"github.com/coregx/fluentdb/internal/tracer"
)

var whitespaceRun = regexp.MustCompile(`\s\s+|\t\t+`)

// normalize trims sql and collapses runs of whitespace to one space.
func normalize(sql string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(sql), " ")
}

var rowReturningPrefixes = []string{"select", "optimize", "check", "repair", "checksum", "analyze"}

// isRowReturning reports whether sql starts with a keyword whose statement
// yields a result set.
func isRowReturning(sql string) bool {
	for _, p := range rowReturningPrefixes {
		if len(sql) >= len(p) && strings.EqualFold(sql[:len(p)], p) {
			return true
		}
	}
	return false
}

// run executes sql as the next statement: reset, normalize, classify,
// consult the cache scope, call the driver, fill the cache.
func (db *DB) run(ctx context.Context, sql string, all bool, mode FetchMode) (*Result, error) {
	db.reset()
	db.phase = PhaseExecuting
	defer func() { db.phase = PhaseIdle }()

	query := normalize(sql)
	db.query = query
	rowReturning := isRowReturning(query)

	scope := db.cache
	db.cache = nil

	ctx, span := db.tracer.StartSpan(ctx, tracer.SpanName)
	defer span.End()
	start := time.Now()
	event := QueryEvent{SQL: query, Operation: DetectOperation(query), RowReturning: rowReturning}

	useCache := scope != nil && rowReturning && !mode.isClass()
	if useCache {
		if rs, ok := db.lookup(scope, query); ok {
			res := rs.shape(mode)
			res.Cached = true
			db.rowCount = res.Len()
			db.queryCount++
			event.Cached = true
			event.Rows = res.Len()
			db.observe(ctx, span, start, event)
			return res, nil
		}
	}

	var (
		res *Result
		err error
	)
	if rowReturning {
		res, err = db.fetchRows(ctx, query, all, mode)
		if err == nil && useCache {
			db.fill(scope, query, &rowSet{Columns: res.Columns, Rows: recordValues(res)})
		}
	} else {
		var n int64
		if n, err = db.conn.Exec(ctx, query); err == nil {
			res = &Result{RowsAffected: n}
			db.rowCount = int(n)
		}
	}

	if err != nil {
		event.Error = err
		db.observe(ctx, span, start, event)
		return nil, db.fail(query, err)
	}

	if rowReturning {
		db.rowCount = res.Len()
	}
	db.queryCount++
	event.Rows = res.Len()
	event.RowsAffected = res.RowsAffected
	db.observe(ctx, span, start, event)
	return res, nil
}

// fetchRows runs a row-returning statement and shapes its rows.
func (db *DB) fetchRows(ctx context.Context, query string, all bool, mode FetchMode) (*Result, error) {
	rows, err := db.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	if mode.isClass() {
		n, err := globalScanner.scanInto(rows, mode.dest, all)
		if err != nil {
			return nil, err
		}
		return &Result{rows: n}, nil
	}
	rs, err := readRows(rows, all)
	if err != nil {
		return nil, err
	}
	return rs.shape(mode), nil
}

// recordValues recovers the raw rows from a shaped result for caching.
func recordValues(res *Result) [][]any {
	out := make([][]any, 0, res.Len())
	if res.Maps != nil {
		for _, m := range res.Maps {
			row := make([]any, len(res.Columns))
			for i, c := range res.Columns {
				row[i] = m[c]
			}
			out = append(out, row)
		}
		return out
	}
	for _, rec := range res.Records {
		out = append(out, rec.Values)
	}
	return out
}

// fail records err against query and hands it to the error sink.
func (db *DB) fail(query string, err error) error {
	qe := &QueryError{Query: query, Message: err.Error(), Err: err}
	db.lastError = qe
	return db.sink.Report(qe)
}

// observe reports a finished statement to the logger, span, metrics and hook.
func (db *DB) observe(ctx context.Context, span tracer.Span, start time.Time, event QueryEvent) {
	event.Duration = time.Since(start)
	masked := db.sanitizer.MaskSQL(event.SQL)

	if event.Error != nil {
		db.logger.Error("query execution failed",
			"sql", masked,
			"duration_ms", event.Duration.Milliseconds(),
			"database", db.driverName,
			"error", event.Error,
		)
	} else {
		db.logger.Info("query executed",
			"sql", masked,
			"duration_ms", event.Duration.Milliseconds(),
			"rows", event.Rows,
			"rows_affected", event.RowsAffected,
			"cached", event.Cached,
			"database", db.driverName,
		)
	}

	tracer.AddQueryAttributes(span, &tracer.QueryMetadata{
		SQL:          masked,
		Database:     db.driverName,
		Operation:    event.Operation,
		RowReturning: event.RowReturning,
		Cached:       event.Cached,
		Rows:         event.Rows,
		RowsAffected: event.RowsAffected,
		Duration:     event.Duration,
		Error:        event.Error,
	})
	db.metrics.ObserveQuery(event.Operation, event.Duration, event.Error)
	db.auditor.Record(ctx, security.Entry{
		Operation:    event.Operation,
		SQL:          masked,
		Rows:         event.Rows,
		RowsAffected: event.RowsAffected,
		Cached:       event.Cached,
		Duration:     event.Duration,
		Err:          event.Error,
	})
	db.invokeHook(ctx, event)
}

// validate runs the configured validator over a raw statement and its
// template arguments. Rejections are reported as security events.
func (db *DB) validate(ctx context.Context, query string, args []any) error {
	if db.validator == nil {
		return nil
	}
	err := db.validator.ValidateQuery(query)
	if err == nil {
		err = db.validator.ValidateArgs(args)
	}
	if err != nil {
		db.logger.Warn("statement rejected", "sql", db.sanitizer.MaskSQL(query), "error", err)
		db.auditor.LogSecurityEvent(ctx, "statement_rejected", db.sanitizer.MaskSQL(query), err)
	}
	return err
}

// Query runs a raw statement and returns all its rows, or the affected row
// count for statements that return none.
func (db *DB) Query(ctx context.Context, sql string, mode ...FetchMode) (*Result, error) {
	if err := db.validate(ctx, sql, nil); err != nil {
		db.reset()
		db.cache = nil
		db.query = normalize(sql)
		return nil, db.fail(db.query, err)
	}
	return db.run(ctx, sql, true, pickMode(mode))
}

// Prepare resets the handle and stores tpl, with each ? replaced by the
// escaped argument at its position, for a later Exec, Fetch or FetchAll.
// Nothing is sent to the database. A statement rejected by the validator
// fails on Exec or Fetch.
func (db *DB) Prepare(tpl string, args ...any) *DB {
	db.reset()
	db.rejected = db.validate(context.Background(), tpl, args)
	db.query = substitute(tpl, args, db.Escape)
	db.phase = PhasePending
	return db
}

// Exec runs the prepared (or last) statement for its affected row count.
// It bypasses the result cache and does not count toward QueryCount.
func (db *DB) Exec(ctx context.Context) (int64, error) {
	if db.query == "" {
		return 0, ErrNoStatement
	}
	query := db.query
	if db.rejected != nil {
		return 0, db.fail(query, db.rejected)
	}
	db.phase = PhaseExecuting
	defer func() { db.phase = PhaseIdle }()

	ctx, span := db.tracer.StartSpan(ctx, tracer.SpanName)
	defer span.End()
	start := time.Now()
	event := QueryEvent{SQL: query, Operation: DetectOperation(query)}

	n, err := db.conn.Exec(ctx, query)
	event.Error = err
	event.RowsAffected = n
	db.observe(ctx, span, start, event)
	if err != nil {
		return 0, db.fail(query, err)
	}
	db.rowCount = int(n)
	return n, nil
}

// Fetch runs the prepared (or last) statement and returns its first row.
// The result cache is never consulted.
func (db *DB) Fetch(ctx context.Context, mode ...FetchMode) (*Result, error) {
	return db.fetch(ctx, false, pickMode(mode))
}

// FetchAll is Fetch returning every row.
func (db *DB) FetchAll(ctx context.Context, mode ...FetchMode) (*Result, error) {
	return db.fetch(ctx, true, pickMode(mode))
}

func (db *DB) fetch(ctx context.Context, all bool, mode FetchMode) (*Result, error) {
	if db.query == "" {
		return nil, ErrNoStatement
	}
	query := db.query
	if db.rejected != nil {
		return nil, db.fail(query, db.rejected)
	}
	db.phase = PhaseExecuting
	defer func() { db.phase = PhaseIdle }()

	ctx, span := db.tracer.StartSpan(ctx, tracer.SpanName)
	defer span.End()
	start := time.Now()
	event := QueryEvent{SQL: query, Operation: DetectOperation(query), RowReturning: true}

	res, err := db.fetchRows(ctx, query, all, mode)
	if err != nil {
		event.Error = err
		db.observe(ctx, span, start, event)
		return nil, db.fail(query, err)
	}
	db.rowCount = res.Len()
	event.Rows = res.Len()
	db.observe(ctx, span, start, event)
	return res, nil
}

// Get runs the accumulated SELECT with LIMIT 1 and returns at most one row.
func (db *DB) Get(ctx context.Context, mode ...FetchMode) (*Result, error) {
	return db.run(ctx, db.compileSelect("1"), false, pickMode(mode))
}

// GetAll runs the accumulated SELECT and returns every row.
func (db *DB) GetAll(ctx context.Context, mode ...FetchMode) (*Result, error) {
	return db.run(ctx, db.compileSelect(""), true, pickMode(mode))
}

// Insert writes rows into the selected table and returns the generated id.
// Drivers that cannot report one yield 0.
func (db *DB) Insert(ctx context.Context, rows ...Row) (int64, error) {
	query, err := db.compileInsert(rows)
	if err != nil {
		db.reset()
		db.cache = nil
		return 0, err
	}
	if _, err := db.run(ctx, query, false, ModeObject); err != nil {
		return 0, err
	}
	id, err := db.conn.LastInsertID()
	if err != nil {
		db.logger.Debug("last insert id unavailable", "database", db.driverName, "error", err)
		id = 0
	}
	db.lastInsertID = id
	return id, nil
}

// Update applies data to the rows matched by the accumulated WHERE,
// ORDER BY and LIMIT, returning the affected row count.
func (db *DB) Update(ctx context.Context, data Row) (int64, error) {
	res, err := db.run(ctx, db.compileUpdate(data), false, ModeObject)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Delete removes the matched rows. Without WHERE, ORDER BY or LIMIT the
// table is truncated.
func (db *DB) Delete(ctx context.Context) (int64, error) {
	res, err := db.run(ctx, db.compileDelete(), false, ModeObject)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Analyze runs ANALYZE TABLE on the selected table.
func (db *DB) Analyze(ctx context.Context, mode ...FetchMode) (*Result, error) {
	return db.run(ctx, db.compileMaintenance("ANALYZE"), false, pickMode(mode))
}

// Check runs CHECK TABLE.
func (db *DB) Check(ctx context.Context, mode ...FetchMode) (*Result, error) {
	return db.run(ctx, db.compileMaintenance("CHECK"), false, pickMode(mode))
}

// Checksum runs CHECKSUM TABLE.
func (db *DB) Checksum(ctx context.Context, mode ...FetchMode) (*Result, error) {
	return db.run(ctx, db.compileMaintenance("CHECKSUM"), false, pickMode(mode))
}

// Optimize runs OPTIMIZE TABLE.
func (db *DB) Optimize(ctx context.Context, mode ...FetchMode) (*Result, error) {
	return db.run(ctx, db.compileMaintenance("OPTIMIZE"), false, pickMode(mode))
}

// Repair runs REPAIR TABLE.
func (db *DB) Repair(ctx context.Context, mode ...FetchMode) (*Result, error) {
	return db.run(ctx, db.compileMaintenance("REPAIR"), false, pickMode(mode))
}
