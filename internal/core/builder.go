package core

import (
	"strconv"
	"strings"
)

// Table sets the FROM list. Every name, and every comma-separated part of a
// single name, gets the handle's prefix.
func (db *DB) Table(names ...string) *DB {
	if len(names) == 1 {
		names = strings.Split(names[0], ",")
	}
	tables := make([]string, 0, len(names))
	for _, name := range names {
		tables = append(tables, db.prefix+strings.TrimLeft(name, " "))
	}
	db.state.from = strings.Join(tables, ", ")
	return db.touch()
}

// Select adds columns to the select list. The first call replaces the
// default *.
func (db *DB) Select(fields ...string) *DB {
	if len(fields) == 0 {
		return db.touch()
	}
	db.appendSelect(strings.Join(fields, ", "))
	return db.touch()
}

// Count adds COUNT(field), optionally aliased, to the select list.
func (db *DB) Count(field string, alias ...string) *DB {
	column := "COUNT(" + field + ")"
	if len(alias) > 0 && alias[0] != "" {
		column += " AS " + alias[0]
	}
	db.appendSelect(column)
	return db.touch()
}

func (db *DB) appendSelect(fields string) {
	if db.state.selectList == "*" {
		db.state.selectList = fields
		return
	}
	db.state.selectList += ", " + fields
}

// Join appends a plain JOIN. The ON condition takes three forms:
//
//	Join("posts", "posts.user_id = users.id")       raw expression
//	Join("posts", "posts.user_id", "=", "users.id")  column op column
//	Join("posts", "posts.user_id", "users.id")       column = column
//
// A second argument that is not a recognized operator is read as the right
// hand side of an equality.
func (db *DB) Join(table, on string, args ...string) *DB {
	return db.join("", table, on, args)
}

// InnerJoin appends an INNER JOIN. See Join for the argument forms.
func (db *DB) InnerJoin(table, on string, args ...string) *DB {
	return db.join("INNER ", table, on, args)
}

// LeftJoin appends a LEFT JOIN.
func (db *DB) LeftJoin(table, on string, args ...string) *DB {
	return db.join("LEFT ", table, on, args)
}

// RightJoin appends a RIGHT JOIN.
func (db *DB) RightJoin(table, on string, args ...string) *DB {
	return db.join("RIGHT ", table, on, args)
}

// FullOuterJoin appends a FULL OUTER JOIN.
func (db *DB) FullOuterJoin(table, on string, args ...string) *DB {
	return db.join("FULL OUTER ", table, on, args)
}

// LeftOuterJoin appends a LEFT OUTER JOIN.
func (db *DB) LeftOuterJoin(table, on string, args ...string) *DB {
	return db.join("LEFT OUTER ", table, on, args)
}

// RightOuterJoin appends a RIGHT OUTER JOIN.
func (db *DB) RightOuterJoin(table, on string, args ...string) *DB {
	return db.join("RIGHT OUTER ", table, on, args)
}

func (db *DB) join(kind, table, on string, args []string) *DB {
	if len(args) > 0 && args[0] != "" {
		switch {
		case IsOperator(args[0]):
			right := ""
			if len(args) > 1 {
				right = args[1]
			}
			on = on + " " + args[0] + " " + right
		case len(args) > 1 && args[1] != "":
			on = on + " = " + args[0] + " " + args[1]
		default:
			on = on + " = " + args[0]
		}
	}
	db.state.joins += " " + kind + "JOIN " + db.prefix + table + " ON " + on
	return db.touch()
}

// Where ANDs cond onto the WHERE clause.
func (db *DB) Where(cond Condition) *DB {
	return db.where(cond, "", "AND")
}

// OrWhere ORs cond onto the WHERE clause.
func (db *DB) OrWhere(cond Condition) *DB {
	return db.where(cond, "", "OR")
}

// NotWhere ANDs the negation of each predicate in cond.
func (db *DB) NotWhere(cond Condition) *DB {
	return db.where(cond, "NOT ", "AND")
}

// OrNotWhere ORs the negation of each predicate in cond.
func (db *DB) OrNotWhere(cond Condition) *DB {
	return db.where(cond, "NOT ", "OR")
}

func (db *DB) where(cond Condition, not, joiner string) *DB {
	if cond == nil {
		return db
	}
	fragment := cond.build(&condContext{
		escape:    db.Escape,
		not:       not,
		joiner:    " " + joiner + " ",
		defaultOp: "=",
	})
	if fragment == "" {
		return db
	}
	return db.appendWhere(fragment, joiner)
}

// appendWhere folds fragment onto the WHERE clause, opening a pending group.
func (db *DB) appendWhere(fragment, joiner string) *DB {
	if db.state.grouped {
		fragment = "(" + fragment
		db.state.grouped = false
	}
	if db.state.where == "" {
		db.state.where = fragment
	} else {
		db.state.where += " " + joiner + " " + fragment
	}
	return db.touch()
}

// WhereNull ANDs "column IS NULL", or "column IS NOT NULL" when not is true.
func (db *DB) WhereNull(column string, not ...bool) *DB {
	if len(not) > 0 && not[0] {
		return db.appendWhere(column+" IS NOT NULL", "AND")
	}
	return db.appendWhere(column+" IS NULL", "AND")
}

// WhereNotNull ANDs "column IS NOT NULL".
func (db *DB) WhereNotNull(column string) *DB {
	return db.WhereNull(column, true)
}

// Grouped wraps the predicates added by fn in parentheses. The group joins
// the existing WHERE clause with the joiner of its first predicate. When fn
// adds nothing, an empty "()" is still emitted.
func (db *DB) Grouped(fn func(*DB)) *DB {
	db.state.grouped = true
	fn(db)
	if db.state.grouped {
		db.state.grouped = false
		db.appendWhere("(", "AND")
	}
	db.state.where += ")"
	return db.touch()
}

// In ANDs "column IN (...)".
func (db *DB) In(column string, values ...any) *DB {
	return db.in(column, values, "", "AND")
}

// NotIn ANDs "column NOT IN (...)".
func (db *DB) NotIn(column string, values ...any) *DB {
	return db.in(column, values, "NOT ", "AND")
}

// OrIn ORs "column IN (...)".
func (db *DB) OrIn(column string, values ...any) *DB {
	return db.in(column, values, "", "OR")
}

// OrNotIn ORs "column NOT IN (...)".
func (db *DB) OrNotIn(column string, values ...any) *DB {
	return db.in(column, values, "NOT ", "OR")
}

func (db *DB) in(column string, values []any, not, joiner string) *DB {
	keys := make([]string, len(values))
	for i, v := range values {
		keys[i] = inValue(v, db.conn.Quote)
	}
	return db.appendWhere(column+" "+not+"IN ("+strings.Join(keys, ", ")+")", joiner)
}

// Like ANDs "column LIKE pattern".
func (db *DB) Like(column, pattern string) *DB {
	return db.like(column, pattern, "", "AND")
}

// OrLike ORs "column LIKE pattern".
func (db *DB) OrLike(column, pattern string) *DB {
	return db.like(column, pattern, "", "OR")
}

// NotLike ANDs "column NOT LIKE pattern".
func (db *DB) NotLike(column, pattern string) *DB {
	return db.like(column, pattern, "NOT ", "AND")
}

// OrNotLike ORs "column NOT LIKE pattern".
func (db *DB) OrNotLike(column, pattern string) *DB {
	return db.like(column, pattern, "NOT ", "OR")
}

func (db *DB) like(column, pattern, not, joiner string) *DB {
	return db.appendWhere(column+" "+not+"LIKE "+db.Escape(pattern), joiner)
}

// Limit sets LIMIT n, or LIMIT n, end when end is given.
func (db *DB) Limit(n int, end ...int) *DB {
	db.state.limit = strconv.Itoa(n)
	if len(end) > 0 {
		db.state.limit += ", " + strconv.Itoa(end[0])
	}
	return db.touch()
}

// Offset sets OFFSET n.
func (db *DB) Offset(n int) *DB {
	db.state.offset = strconv.Itoa(n)
	return db.touch()
}

// Pagination sets LIMIT and OFFSET for a 1-based page. Pages below 1 read
// as the first page.
func (db *DB) Pagination(perPage, page int) *DB {
	if page < 1 {
		page = 1
	}
	db.state.limit = strconv.Itoa(perPage)
	db.state.offset = strconv.Itoa((page - 1) * perPage)
	return db.touch()
}

// OrderBy sets the ORDER BY clause. Without a direction the column gets ASC,
// unless it already contains a space or is rand().
func (db *DB) OrderBy(column string, dir ...string) *DB {
	switch {
	case len(dir) > 0 && dir[0] != "":
		db.state.orderBy = column + " " + strings.ToUpper(dir[0])
	case strings.Contains(column, " ") || strings.EqualFold(column, "rand()"):
		db.state.orderBy = column
	default:
		db.state.orderBy = column + " ASC"
	}
	return db.touch()
}

// GroupBy sets the GROUP BY clause.
func (db *DB) GroupBy(columns ...string) *DB {
	db.state.groupBy = strings.Join(columns, ", ")
	return db.touch()
}

// Having sets the HAVING clause. A Col without an operator compares with >.
func (db *DB) Having(cond Condition) *DB {
	if cond == nil {
		return db
	}
	db.state.having = cond.build(&condContext{
		escape:    db.Escape,
		joiner:    " AND ",
		defaultOp: ">",
	})
	return db.touch()
}
