package core

import (
	"context"
	"strings"
	"time"
)

// QueryEvent describes one statement run against the connection or served
// from the result cache.
type QueryEvent struct {
	SQL          string
	Duration     time.Duration
	Operation    string // first keyword, see DetectOperation
	RowReturning bool
	Cached       bool
	Rows         int
	RowsAffected int64
	Error        error
}

// QueryHook is called after every statement.
//
// Example:
//
//	db, _ := fluentdb.Open("mysql", dsn,
//	    fluentdb.WithQueryHook(func(ctx context.Context, e fluentdb.QueryEvent) {
//	        slog.Info("query", "sql", e.SQL, "cached", e.Cached, "err", e.Error)
//	    }))
type QueryHook func(ctx context.Context, event QueryEvent)

var knownOperations = map[string]string{
	"SELECT":    "SELECT",
	"WITH":      "SELECT",
	"INSERT":    "INSERT",
	"UPDATE":    "UPDATE",
	"DELETE":    "DELETE",
	"TRUNCATE":  "TRUNCATE",
	"ANALYZE":   "ANALYZE",
	"CHECK":     "CHECK",
	"CHECKSUM":  "CHECKSUM",
	"OPTIMIZE":  "OPTIMIZE",
	"REPAIR":    "REPAIR",
	"SAVEPOINT": "SAVEPOINT",
	"ROLLBACK":  "ROLLBACK",
	"CREATE":    "CREATE",
	"DROP":      "DROP",
	"ALTER":     "ALTER",
}

// DetectOperation returns the upper-cased leading keyword of sql, or
// UNKNOWN when it is not a recognized statement keyword.
func DetectOperation(sql string) string {
	sql = strings.TrimSpace(sql)
	end := strings.IndexAny(sql, " \t\r\n(")
	if end < 0 {
		end = len(sql)
	}
	if op, ok := knownOperations[strings.ToUpper(sql[:end])]; ok {
		return op
	}
	return "UNKNOWN"
}

func (db *DB) invokeHook(ctx context.Context, event QueryEvent) {
	if db.queryHook != nil {
		db.queryHook(ctx, event)
	}
}
