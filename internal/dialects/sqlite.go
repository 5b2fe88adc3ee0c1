package dialects

import (
	"strings"
)

// SQLiteDialect implements SQLite-specific SQL dialect.
type SQLiteDialect struct{}

func init() {
	RegisterDialect("sqlite", &SQLiteDialect{})
	RegisterDialect("sqlite3", &SQLiteDialect{})
}

// Name returns "sqlite".
func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

// Quote wraps s in single quotes, doubling embedded quotes.
func (d *SQLiteDialect) Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
