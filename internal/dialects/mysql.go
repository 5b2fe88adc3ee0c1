package dialects

import (
	"strings"
)

// MySQLDialect implements MySQL-specific SQL dialect.
type MySQLDialect struct{}

// mysqlEscaper mirrors mysql_real_escape_string for the default sql_mode.
var mysqlEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"'", "\\'",
	"\"", "\\\"",
	"\x00", "\\0",
	"\n", "\\n",
	"\r", "\\r",
	"\x1a", "\\Z",
)

// Name returns "mysql".
func (d *MySQLDialect) Name() string {
	return "mysql"
}

// Quote wraps s in single quotes using backslash escaping.
func (d *MySQLDialect) Quote(s string) string {
	return "'" + mysqlEscaper.Replace(s) + "'"
}

func init() {
	RegisterDialect("mysql", &MySQLDialect{})
}
