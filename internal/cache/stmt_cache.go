// Package cache holds the two caches behind a database handle: prepared
// statements keyed by SQL text, and result payloads keyed by the normalized
// statement that produced them.
package cache

import (
	"database/sql"
)

// DefaultStmtCacheCapacity is the default maximum number of cached prepared statements.
const DefaultStmtCacheCapacity = 1000

// StmtCache stores prepared statements with LRU eviction.
// Evicted and replaced statements are closed.
type StmtCache struct {
	entries *lru[*sql.Stmt]
}

// NewStmtCache creates a statement cache with default capacity.
func NewStmtCache() *StmtCache {
	return NewStmtCacheWithCapacity(DefaultStmtCacheCapacity)
}

// NewStmtCacheWithCapacity creates a statement cache holding at most capacity statements.
func NewStmtCacheWithCapacity(capacity int) *StmtCache {
	if capacity <= 0 {
		capacity = DefaultStmtCacheCapacity
	}
	return &StmtCache{
		entries: newLRU(capacity, func(_ string, stmt *sql.Stmt) {
			_ = stmt.Close()
		}),
	}
}

// Get returns the statement prepared for query, if any.
func (sc *StmtCache) Get(query string) (*sql.Stmt, bool) {
	return sc.entries.get(query)
}

// Set stores stmt under query, closing any statement it replaces.
func (sc *StmtCache) Set(query string, stmt *sql.Stmt) {
	sc.entries.set(query, stmt)
}

// Clear closes and removes all cached statements.
func (sc *StmtCache) Clear() {
	sc.entries.purge()
}

// Stats returns cache statistics.
func (sc *StmtCache) Stats() Stats {
	return sc.entries.stats()
}
