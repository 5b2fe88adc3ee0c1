package core

import (
	"context"
	"database/sql"
	"io"
	"reflect"

	"github.com/coregx/fluentdb/internal/dialects"
)

// fakeConn records every statement and answers queries from canned rows.
type fakeConn struct {
	quote    func(string) string
	execs    []string
	queries  []string
	data     map[string]*fakeRows
	affected int64
	insertID int64
	execErr  error
	queryErr error

	inTx      bool
	begins    int
	commits   int
	rollbacks int
	closed    bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		quote: dialects.GetDialect("mysql").Quote,
		data:  make(map[string]*fakeRows),
	}
}

func newTestDB(opts ...Option) (*DB, *fakeConn) {
	conn := newFakeConn()
	return NewDB(conn, "mysql", opts...), conn
}

// respond makes query return cols and rows.
func (c *fakeConn) respond(query string, cols []string, rows ...[]any) {
	c.data[query] = &fakeRows{cols: cols, rows: rows}
}

func (c *fakeConn) Exec(_ context.Context, query string) (int64, error) {
	c.execs = append(c.execs, query)
	if c.execErr != nil {
		return 0, c.execErr
	}
	return c.affected, nil
}

func (c *fakeConn) Query(_ context.Context, query string) (Rows, error) {
	c.queries = append(c.queries, query)
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	if r, ok := c.data[query]; ok {
		return &fakeRows{cols: r.cols, rows: r.rows}, nil
	}
	return &fakeRows{}, nil
}

func (c *fakeConn) Quote(s string) string { return c.quote(s) }

func (c *fakeConn) Begin(context.Context) error {
	if c.inTx {
		return ErrTxInProgress
	}
	c.inTx = true
	c.begins++
	return nil
}

func (c *fakeConn) Commit() error {
	if !c.inTx {
		return sql.ErrTxDone
	}
	c.inTx = false
	c.commits++
	return nil
}

func (c *fakeConn) Rollback() error {
	if !c.inTx {
		return sql.ErrTxDone
	}
	c.inTx = false
	c.rollbacks++
	return nil
}

func (c *fakeConn) LastInsertID() (int64, error) { return c.insertID, nil }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeRows struct {
	cols   []string
	rows   [][]any
	pos    int
	closed bool
}

func (r *fakeRows) Columns() ([]string, error) { return r.cols, nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.pos == 0 || r.pos > len(r.rows) {
		return io.EOF
	}
	row := r.rows[r.pos-1]
	for i, d := range dest {
		if p, ok := d.(*any); ok {
			*p = row[i]
			continue
		}
		target := reflect.ValueOf(d).Elem()
		if row[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(row[i]).Convert(target.Type()))
	}
	return nil
}

func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Close() error {
	r.closed = true
	return nil
}
