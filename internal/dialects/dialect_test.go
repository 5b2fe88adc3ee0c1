package dialects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		input   string
		want    string
	}{
		{"mysql plain", &MySQLDialect{}, "alice", "'alice'"},
		{"mysql quote", &MySQLDialect{}, "O'Reilly", `'O\'Reilly'`},
		{"mysql backslash", &MySQLDialect{}, `a\b`, `'a\\b'`},
		{"mysql control chars", &MySQLDialect{}, "a\nb\x00", `'a\nb\0'`},
		{"postgres plain", &PostgresDialect{}, "alice", "'alice'"},
		{"postgres quote", &PostgresDialect{}, "O'Reilly", "'O''Reilly'"},
		{"postgres backslash", &PostgresDialect{}, `a\b`, ` E'a\\b'`},
		{"sqlite plain", &SQLiteDialect{}, "alice", "'alice'"},
		{"sqlite quote", &SQLiteDialect{}, "O'Reilly", "'O''Reilly'"},
		{"sqlite empty", &SQLiteDialect{}, "", "''"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.Quote(tt.input))
		})
	}
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"mysql", "postgres", "postgresql", "pgsql", "sqlite", "sqlite3"} {
		d, ok := Lookup(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, d.Name())
	}

	_, ok := Lookup("oracle")
	assert.False(t, ok)
}

func TestGetDialect_Unknown(t *testing.T) {
	assert.Panics(t, func() { GetDialect("oracle") })
}
