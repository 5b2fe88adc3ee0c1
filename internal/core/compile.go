package core

import (
	"github.com/valyala/bytebufferpool"
)

// Row is one row of column values for INSERT or the SET list of UPDATE.
// Pairs keeps its order, HashExp sorts its columns.
type Row interface {
	columns() ([]string, []any)
}

func (p Pair) columns() ([]string, []any) {
	return []string{p.Column}, []any{p.Value}
}

func (p Pairs) columns() ([]string, []any) {
	cols := make([]string, len(p))
	vals := make([]any, len(p))
	for i, pair := range p {
		cols[i] = pair.Column
		vals[i] = pair.Value
	}
	return cols, vals
}

func (h HashExp) columns() ([]string, []any) {
	return h.pairs().columns()
}

// compileSelect assembles the SELECT statement. limit overrides the
// accumulated LIMIT when non-empty.
func (db *DB) compileSelect(limit string) string {
	s := &db.state
	if limit == "" {
		limit = s.limit
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("SELECT ")
	buf.WriteString(s.selectList)
	buf.WriteString(" FROM ")
	buf.WriteString(s.from)
	buf.WriteString(s.joins)
	writeClause(buf, " WHERE ", s.where)
	writeClause(buf, " GROUP BY ", s.groupBy)
	writeClause(buf, " HAVING ", s.having)
	writeClause(buf, " ORDER BY ", s.orderBy)
	writeClause(buf, " LIMIT ", limit)
	writeClause(buf, " OFFSET ", s.offset)
	return buf.String()
}

// compileInsert builds a single or multi-row INSERT. Columns come from the
// first row; every row contributes its own values in its own order.
func (db *DB) compileInsert(rows []Row) (string, error) {
	if len(rows) == 0 || rows[0] == nil {
		return "", ErrNoData
	}
	cols, _ := rows[0].columns()
	if len(cols) == 0 {
		return "", ErrNoData
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("INSERT INTO ")
	buf.WriteString(db.state.from)
	buf.WriteString(" (")
	writeList(buf, cols)
	buf.WriteString(") VALUES ")
	for i, row := range rows {
		if i > 0 {
			buf.WriteString(", ")
		}
		_, vals := row.columns()
		buf.WriteString("(")
		for j, v := range vals {
			if j > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(db.Escape(v))
		}
		buf.WriteString(")")
	}
	return buf.String(), nil
}

// compileUpdate builds UPDATE ... SET col=val,col=val with the optional
// WHERE, ORDER BY and LIMIT clauses.
func (db *DB) compileUpdate(data Row) string {
	s := &db.state

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("UPDATE ")
	buf.WriteString(s.from)
	buf.WriteString(" SET ")
	if data != nil {
		cols, vals := data.columns()
		for i, col := range cols {
			if i > 0 {
				buf.WriteString(",")
			}
			buf.WriteString(col)
			buf.WriteString("=")
			buf.WriteString(db.Escape(vals[i]))
		}
	}
	writeClause(buf, " WHERE ", s.where)
	writeClause(buf, " ORDER BY ", s.orderBy)
	writeClause(buf, " LIMIT ", s.limit)
	return buf.String()
}

// compileDelete builds DELETE FROM. Without WHERE, ORDER BY or LIMIT the
// statement becomes TRUNCATE TABLE.
func (db *DB) compileDelete() string {
	s := &db.state
	if s.where == "" && s.orderBy == "" && s.limit == "" {
		return "TRUNCATE TABLE " + s.from
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("DELETE FROM ")
	buf.WriteString(s.from)
	writeClause(buf, " WHERE ", s.where)
	writeClause(buf, " ORDER BY ", s.orderBy)
	writeClause(buf, " LIMIT ", s.limit)
	return buf.String()
}

// compileMaintenance builds ANALYZE|CHECK|CHECKSUM|OPTIMIZE|REPAIR TABLE.
func (db *DB) compileMaintenance(action string) string {
	return action + " TABLE " + db.state.from
}

func writeClause(buf *bytebufferpool.ByteBuffer, keyword, value string) {
	if value == "" {
		return
	}
	buf.WriteString(keyword)
	buf.WriteString(value)
}

func writeList(buf *bytebufferpool.ByteBuffer, items []string) {
	for i, item := range items {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(item)
	}
}

// GetSQL returns the statement Get would run. Nothing is executed or reset.
func (db *DB) GetSQL() string {
	return db.compileSelect("1")
}

// GetAllSQL returns the statement GetAll would run.
func (db *DB) GetAllSQL() string {
	return db.compileSelect("")
}

// InsertSQL returns the statement Insert would run.
func (db *DB) InsertSQL(rows ...Row) (string, error) {
	return db.compileInsert(rows)
}

// UpdateSQL returns the statement Update would run.
func (db *DB) UpdateSQL(data Row) string {
	return db.compileUpdate(data)
}

// DeleteSQL returns the statement Delete would run.
func (db *DB) DeleteSQL() string {
	return db.compileDelete()
}
