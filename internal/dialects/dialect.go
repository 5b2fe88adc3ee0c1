// Package dialects provides database-specific literal quoting for MySQL,
// PostgreSQL and SQLite, keyed by database/sql driver name.
package dialects

// Dialect defines database-specific behaviors.
type Dialect interface {
	// Name is the database system name reported in logs and traces.
	Name() string
	// Quote renders s as a complete, escaped string literal.
	Quote(s string) string
}

var dialects = make(map[string]Dialect)

// RegisterDialect registers a database dialect by driver name.
func RegisterDialect(name string, d Dialect) {
	dialects[name] = d
}

// Lookup returns the dialect registered for a driver name.
func Lookup(name string) (Dialect, bool) {
	d, ok := dialects[name]
	return d, ok
}

// GetDialect retrieves a registered dialect by driver name, panics if not found.
func GetDialect(name string) Dialect {
	if d, ok := dialects[name]; ok {
		return d
	}
	panic("unsupported dialect: " + name)
}
