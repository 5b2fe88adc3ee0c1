package core

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/coregx/fluentdb/internal/cache"
	"github.com/coregx/fluentdb/internal/metrics"
)

// cacheScope is the one-shot cache association set by Cache and consumed
// by the next statement.
type cacheScope struct {
	store cache.Store
	ttl   time.Duration
}

// Cache serves the next row-returning statement from the cache backend when
// an identical statement was stored less than ttl ago, and stores its rows
// otherwise. The scope is cleared by the next statement whatever its kind.
func (db *DB) Cache(ttl time.Duration) *DB {
	db.cache = &cacheScope{store: db.store, ttl: ttl}
	return db.touch()
}

// lookup returns the cached rows for query. Backend and decode failures
// are logged and reported as misses.
func (db *DB) lookup(scope *cacheScope, query string) (*rowSet, bool) {
	data, found, err := scope.store.Get(query)
	if err != nil {
		db.logger.Warn("result cache read failed", "sql", db.sanitizer.MaskSQL(query), "error", err)
		db.metrics.ObserveCache(metrics.CacheResultError)
		return nil, false
	}
	if !found {
		db.metrics.ObserveCache(metrics.CacheResultMiss)
		return nil, false
	}

	rs, err := decodeRowSet(data)
	if err != nil {
		db.logger.Warn("result cache entry unreadable", "sql", db.sanitizer.MaskSQL(query), "error", err)
		db.metrics.ObserveCache(metrics.CacheResultError)
		return nil, false
	}
	db.metrics.ObserveCache(metrics.CacheResultHit)
	return rs, true
}

func (db *DB) fill(scope *cacheScope, query string, rs *rowSet) {
	data, err := json.Marshal(rs)
	if err == nil {
		err = scope.store.Set(query, data, scope.ttl)
	}
	if err != nil {
		db.logger.Warn("result cache write failed", "sql", db.sanitizer.MaskSQL(query), "error", err)
	}
}

// decodeRowSet reverses json.Marshal of a rowSet. Numbers come back as
// int64 when integral and float64 otherwise.
func decodeRowSet(data []byte) (*rowSet, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rs rowSet
	if err := dec.Decode(&rs); err != nil {
		return nil, err
	}
	if rs.Rows == nil {
		rs.Rows = [][]any{}
	}
	for _, row := range rs.Rows {
		for i, v := range row {
			n, ok := v.(json.Number)
			if !ok {
				continue
			}
			if iv, err := n.Int64(); err == nil {
				row[i] = iv
			} else if fv, err := n.Float64(); err == nil {
				row[i] = fv
			} else {
				row[i] = n.String()
			}
		}
	}
	return &rs, nil
}
