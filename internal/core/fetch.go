package core

type fetchKind int

const (
	fetchObject fetchKind = iota
	fetchAssoc
	fetchClass
)

// FetchMode selects the shape rows are returned in.
type FetchMode struct {
	kind fetchKind
	dest any
}

var (
	// ModeObject returns rows as Records. It is the default.
	ModeObject = FetchMode{kind: fetchObject}
	// ModeAssoc returns rows as maps keyed by column name.
	ModeAssoc = FetchMode{kind: fetchAssoc}
)

// Into hydrates rows into dest, a pointer to a struct (first row) or to a
// slice of structs or struct pointers. Columns map to fields by db tag.
// Results fetched this way are never cached.
func Into(dest any) FetchMode {
	return FetchMode{kind: fetchClass, dest: dest}
}

// ParseFetchMode maps "class" to Into(dest), "array" to ModeAssoc and
// anything else to ModeObject.
func ParseFetchMode(token string, dest any) FetchMode {
	switch token {
	case "class":
		return Into(dest)
	case "array":
		return ModeAssoc
	}
	return ModeObject
}

func (m FetchMode) String() string {
	switch m.kind {
	case fetchAssoc:
		return "array"
	case fetchClass:
		return "class"
	}
	return "object"
}

func (m FetchMode) isClass() bool { return m.kind == fetchClass }

func pickMode(modes []FetchMode) FetchMode {
	if len(modes) == 0 {
		return ModeObject
	}
	return modes[0]
}

// Record is one row in column order.
type Record struct {
	Columns []string
	Values  []any
}

// Get returns the value of column.
func (r Record) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Map returns the row keyed by column name.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}

// Result is what a statement produced. Row-returning statements fill
// Records (ModeObject) or Maps (ModeAssoc); class mode fills the caller's
// destination and only counts. Mutating statements set RowsAffected.
type Result struct {
	Columns      []string
	Records      []Record
	Maps         []map[string]any
	RowsAffected int64
	Cached       bool

	rows int
}

// Len is the number of rows returned.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return r.rows
}

// First returns the first row.
func (r *Result) First() (Record, bool) {
	if r == nil || r.rows == 0 {
		return Record{}, false
	}
	if len(r.Records) > 0 {
		return r.Records[0], true
	}
	if len(r.Maps) > 0 {
		rec := Record{Columns: r.Columns, Values: make([]any, len(r.Columns))}
		for i, c := range r.Columns {
			rec.Values[i] = r.Maps[0][c]
		}
		return rec, true
	}
	return Record{}, false
}

// rowSet is the mode-independent form rows are read into and cached as.
type rowSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// shape builds a Result in the requested mode.
func (rs *rowSet) shape(mode FetchMode) *Result {
	res := &Result{Columns: rs.Columns, rows: len(rs.Rows)}
	switch mode.kind {
	case fetchAssoc:
		res.Maps = make([]map[string]any, len(rs.Rows))
		for i, row := range rs.Rows {
			res.Maps[i] = Record{Columns: rs.Columns, Values: row}.Map()
		}
	default:
		res.Records = make([]Record, len(rs.Rows))
		for i, row := range rs.Rows {
			res.Records[i] = Record{Columns: rs.Columns, Values: row}
		}
	}
	return res
}

// readRows drains rows, or reads only the first when all is false.
// []byte values are surfaced as strings.
func readRows(rows Rows, all bool) (*rowSet, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, WrapError(err, "reading columns")
	}

	rs := &rowSet{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, WrapError(err, "scanning row")
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, vals)
		if !all {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}
