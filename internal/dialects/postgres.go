package dialects

import (
	"github.com/lib/pq"
)

// PostgresDialect implements PostgreSQL-specific SQL dialect.
type PostgresDialect struct{}

func init() {
	RegisterDialect("postgres", &PostgresDialect{})
	RegisterDialect("postgresql", &PostgresDialect{})
	RegisterDialect("pgsql", &PostgresDialect{})
}

// Name returns "postgres".
func (d *PostgresDialect) Name() string {
	return "postgres"
}

// Quote delegates to pq.QuoteLiteral, which switches to the E-prefixed form
// when the value contains backslashes.
func (d *PostgresDialect) Quote(s string) string {
	return pq.QuoteLiteral(s)
}
