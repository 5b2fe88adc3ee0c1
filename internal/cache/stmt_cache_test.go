package cache

import (
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := openPrepareOnly()
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func createTestStmt(t *testing.T, db *sql.DB, query string) *sql.Stmt {
	t.Helper()
	stmt, err := db.Prepare(query)
	require.NoError(t, err)
	return stmt
}

func TestNewStmtCacheWithCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		expected int
	}{
		{"positive capacity", 100, 100},
		{"zero capacity defaults", 0, DefaultStmtCacheCapacity},
		{"negative capacity defaults", -10, DefaultStmtCacheCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewStmtCacheWithCapacity(tt.capacity)
			assert.Equal(t, tt.expected, cache.Stats().Capacity)
		})
	}
}

func TestStmtCache_GetSet(t *testing.T) {
	db := setupTestDB(t)
	cache := NewStmtCache()

	stmt, found := cache.Get("SELECT 1")
	assert.Nil(t, stmt)
	assert.False(t, found)

	testStmt := createTestStmt(t, db, "SELECT 1")
	cache.Set("SELECT 1", testStmt)

	stmt, found = cache.Get("SELECT 1")
	assert.True(t, found)
	assert.Equal(t, testStmt, stmt)

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.0001)
}

func TestStmtCache_LRUEviction(t *testing.T) {
	db := setupTestDB(t)
	cache := NewStmtCacheWithCapacity(3)

	for i := 1; i <= 3; i++ {
		cache.Set(fmt.Sprintf("q%d", i), createTestStmt(t, db, fmt.Sprintf("SELECT %d", i)))
	}

	// Touch q1 so q2 becomes the oldest.
	_, found := cache.Get("q1")
	require.True(t, found)

	cache.Set("q4", createTestStmt(t, db, "SELECT 4"))

	_, found = cache.Get("q2")
	assert.False(t, found)
	for _, key := range []string{"q1", "q3", "q4"} {
		_, found = cache.Get(key)
		assert.True(t, found, key)
	}
	assert.Equal(t, uint64(1), cache.Stats().Evictions)
}

func TestStmtCache_UpdateExisting(t *testing.T) {
	db := setupTestDB(t)
	cache := NewStmtCache()

	first := createTestStmt(t, db, "SELECT 1")
	second := createTestStmt(t, db, "SELECT 1")
	cache.Set("q", first)
	cache.Set("q", second)

	stmt, found := cache.Get("q")
	require.True(t, found)
	assert.Same(t, second, stmt)
	assert.Equal(t, 1, cache.Stats().Size)
	assert.Equal(t, uint64(0), cache.Stats().Evictions)
}

func TestStmtCache_Clear(t *testing.T) {
	db := setupTestDB(t)
	cache := NewStmtCache()

	for i := 0; i < 5; i++ {
		cache.Set(fmt.Sprintf("q%d", i), createTestStmt(t, db, "SELECT 1"))
	}
	require.Equal(t, 5, cache.Stats().Size)

	cache.Clear()
	assert.Equal(t, 0, cache.Stats().Size)
	_, found := cache.Get("q0")
	assert.False(t, found)
}

func TestStmtCache_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	cache := NewStmtCacheWithCapacity(50)

	stmts := make([]*sql.Stmt, 100)
	for i := range stmts {
		stmts[i] = createTestStmt(t, db, fmt.Sprintf("SELECT %d", i))
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("q%d", (g*13+i)%100)
				if _, ok := cache.Get(key); !ok {
					cache.Set(key, stmts[(g*13+i)%100])
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Stats().Size, 50)
}
