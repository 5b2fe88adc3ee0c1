package cache

import (
	"context"
	"database/sql"
	"database/sql/driver"
)

// prepareOnly is a driver whose connections can prepare and close
// statements but never run them. The statement cache needs nothing else.
type prepareOnly struct{}

func (prepareOnly) Connect(context.Context) (driver.Conn, error) { return prepareConn{}, nil }
func (d prepareOnly) Driver() driver.Driver                      { return d }
func (prepareOnly) Open(string) (driver.Conn, error)             { return prepareConn{}, nil }

type prepareConn struct{}

func (prepareConn) Prepare(query string) (driver.Stmt, error) {
	return &preparedStmt{query: query}, nil
}
func (prepareConn) Close() error              { return nil }
func (prepareConn) Begin() (driver.Tx, error) { return nil, driver.ErrSkip }

type preparedStmt struct {
	query string
}

func (*preparedStmt) Close() error                               { return nil }
func (*preparedStmt) NumInput() int                              { return -1 }
func (*preparedStmt) Exec([]driver.Value) (driver.Result, error) { return nil, driver.ErrSkip }
func (*preparedStmt) Query([]driver.Value) (driver.Rows, error)  { return nil, driver.ErrSkip }

// openPrepareOnly returns a pool over prepareOnly. Each call gets its own
// pool so tests never share prepared statements.
func openPrepareOnly() *sql.DB {
	return sql.OpenDB(prepareOnly{})
}
