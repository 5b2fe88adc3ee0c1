package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/fluentdb/internal/cache"
	"github.com/coregx/fluentdb/internal/metrics"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newCachedDB(t *testing.T, opts ...Option) (*DB, *fakeConn, *clock, *metrics.Collector) {
	t.Helper()
	clk := &clock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := cache.NewMemoryStore(16).WithClock(clk.now)
	col := metrics.NewCollector()
	opts = append([]Option{WithCacheStore(store), WithMetrics(col)}, opts...)
	db, conn := newTestDB(opts...)
	conn.respond("SELECT * FROM users", userCols, []any{int64(1), "ann"}, []any{int64(2), "bob"})
	return db, conn, clk, col
}

func TestCache_HitSkipsDriver(t *testing.T) {
	db, conn, _, col := newCachedDB(t)
	ctx := context.Background()

	first, err := db.Cache(time.Minute).Table("users").GetAll(ctx)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := db.Cache(time.Minute).Table("users").GetAll(ctx)
	require.NoError(t, err)
	assert.True(t, second.Cached)

	assert.Len(t, conn.queries, 1)
	assert.Equal(t, first.Columns, second.Columns)
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, 2, db.RowCount())
	assert.Equal(t, 2, db.QueryCount())

	assert.Equal(t, float64(1), testutil.ToFloat64(col.CacheLookups.WithLabelValues(metrics.CacheResultMiss)))
	assert.Equal(t, float64(1), testutil.ToFloat64(col.CacheLookups.WithLabelValues(metrics.CacheResultHit)))
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	db, conn, clk, _ := newCachedDB(t)
	ctx := context.Background()

	_, err := db.Cache(time.Minute).Table("users").GetAll(ctx)
	require.NoError(t, err)

	clk.t = clk.t.Add(59 * time.Second)
	res, err := db.Cache(time.Minute).Table("users").GetAll(ctx)
	require.NoError(t, err)
	assert.True(t, res.Cached)

	clk.t = clk.t.Add(time.Second)
	res, err = db.Cache(time.Minute).Table("users").GetAll(ctx)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Len(t, conn.queries, 2)
}

func TestCache_ScopeIsOneShot(t *testing.T) {
	db, conn, _, _ := newCachedDB(t)
	ctx := context.Background()

	_, err := db.Cache(time.Minute).Table("users").GetAll(ctx)
	require.NoError(t, err)

	res, err := db.Table("users").GetAll(ctx)
	require.NoError(t, err)
	assert.False(t, res.Cached, "a statement without Cache must not read the cache")
	assert.Len(t, conn.queries, 2)
}

func TestCache_ConsumedByMutatingStatement(t *testing.T) {
	db, conn, _, col := newCachedDB(t)
	ctx := context.Background()

	db.Cache(time.Minute)
	_, err := db.Table("users").Where(Pair{"id", 1}).Delete(ctx)
	require.NoError(t, err)
	assert.Nil(t, db.cache)
	assert.Len(t, conn.execs, 1)
	assert.Zero(t, testutil.ToFloat64(col.CacheLookups.WithLabelValues(metrics.CacheResultMiss)))
}

func TestCache_ShapeOnHit(t *testing.T) {
	db, _, _, _ := newCachedDB(t)
	ctx := context.Background()

	_, err := db.Cache(time.Minute).Table("users").GetAll(ctx)
	require.NoError(t, err)

	res, err := db.Cache(time.Minute).Table("users").GetAll(ctx, ModeAssoc)
	require.NoError(t, err)
	require.True(t, res.Cached)
	require.Len(t, res.Maps, 2)
	assert.Equal(t, map[string]any{"id": int64(2), "name": "bob"}, res.Maps[1])
}

func TestCache_ClassModeBypasses(t *testing.T) {
	type user struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	db, conn, _, _ := newCachedDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		var users []user
		_, err := db.Cache(time.Minute).Table("users").GetAll(ctx, Into(&users))
		require.NoError(t, err)
		assert.Len(t, users, 2)
	}
	assert.Len(t, conn.queries, 2)
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	db, conn, _, col := newCachedDB(t)
	require.NoError(t, db.store.Set("SELECT * FROM users", []byte("not json"), time.Minute))

	res, err := db.Cache(time.Minute).Table("users").GetAll(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Len(t, conn.queries, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(col.CacheLookups.WithLabelValues(metrics.CacheResultError)))
}

type brokenStore struct{}

func (brokenStore) Get(string) ([]byte, bool, error)        { return nil, false, errors.New("disk gone") }
func (brokenStore) Set(string, []byte, time.Duration) error { return errors.New("disk gone") }
func (brokenStore) Close() error                            { return nil }

func TestCache_BackendFailureFallsThrough(t *testing.T) {
	db, conn := newTestDB(WithCacheStore(brokenStore{}))
	conn.respond("SELECT * FROM users", userCols, []any{int64(1), "ann"})

	res, err := db.Cache(time.Minute).Table("users").GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Len())
	assert.Len(t, conn.queries, 1)
}

func TestDecodeRowSet(t *testing.T) {
	rs, err := decodeRowSet([]byte(`{"columns":["a","b","c","d"],"rows":[[1,1.5,"x",null]]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, rs.Columns)
	assert.Equal(t, [][]any{{int64(1), 1.5, "x", nil}}, rs.Rows)

	rs, err = decodeRowSet([]byte(`{"columns":["a"]}`))
	require.NoError(t, err)
	assert.NotNil(t, rs.Rows)

	_, err = decodeRowSet([]byte(`[`))
	assert.Error(t, err)
}

func TestCache_ScopeDroppedByRejectedInsert(t *testing.T) {
	inserts := []struct {
		name string
		run  func(ctx context.Context, db *DB) error
	}{
		{"no rows", func(ctx context.Context, db *DB) error {
			_, err := db.Table("users").Insert(ctx)
			return err
		}},
		{"unmappable model", func(ctx context.Context, db *DB) error {
			_, err := db.Table("users").InsertModel(ctx, 42)
			return err
		}},
	}

	for _, tt := range inserts {
		t.Run(tt.name, func(t *testing.T) {
			db, conn, _, _ := newCachedDB(t)
			ctx := context.Background()

			db.Cache(time.Minute)
			require.ErrorIs(t, tt.run(ctx, db), ErrNoData)

			// Without the scope this read must not be stored.
			_, err := db.Table("users").GetAll(ctx)
			require.NoError(t, err)

			res, err := db.Cache(time.Minute).Table("users").GetAll(ctx)
			require.NoError(t, err)
			assert.False(t, res.Cached)
			assert.Len(t, conn.queries, 2)
		})
	}
}
