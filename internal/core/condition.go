package core

import (
	"sort"
	"strings"
)

// operators are the comparison tokens recognized in Col and Join arguments.
var operators = map[string]bool{
	"=": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true, "<>": true,
}

// IsOperator reports whether s is a recognized comparison token.
func IsOperator(s string) bool {
	return operators[s]
}

// Condition is one argument to Where, OrWhere, NotWhere, OrNotWhere or
// Having. It is implemented by Pair, Pairs, HashExp, Template and Comparison.
type Condition interface {
	build(c *condContext) string
}

// condContext carries what a Condition needs from the clause it lands in.
type condContext struct {
	escape    func(any) string
	not       string // "" or "NOT "
	joiner    string // " AND " or " OR "
	defaultOp string // "=" for WHERE, ">" for HAVING
}

// Pair is a single column = value predicate.
type Pair struct {
	Column string
	Value  any
}

// Pairs is an ordered list of column = value predicates.
type Pairs []Pair

// HashExp maps columns to values. Columns render in sorted order.
type HashExp map[string]any

func (p Pair) build(c *condContext) string {
	return c.not + p.Column + " = " + c.escape(p.Value)
}

func (p Pairs) build(c *condContext) string {
	parts := make([]string, 0, len(p))
	for _, pair := range p {
		parts = append(parts, pair.build(c))
	}
	return strings.Join(parts, c.joiner)
}

func (h HashExp) build(c *condContext) string {
	return h.pairs().build(c)
}

func (h HashExp) pairs() Pairs {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make(Pairs, len(keys))
	for i, k := range keys {
		pairs[i] = Pair{Column: k, Value: h[k]}
	}
	return pairs
}

// Template is a predicate with ? placeholders.
type Template struct {
	SQL  string
	Args []any
}

// Tpl builds a Template. Placeholders are replaced left to right with the
// escaped args; placeholders left without an argument are dropped.
//
//	db.Where(fluentdb.Tpl("age > ? AND status = ?", 18, "active"))
func Tpl(sql string, args ...any) Template {
	return Template{SQL: sql, Args: args}
}

func (t Template) build(c *condContext) string {
	return c.not + substitute(t.SQL, t.Args, c.escape)
}

// substitute replaces each ? in tpl with the escaped argument at the same
// position.
func substitute(tpl string, args []any, escape func(any) string) string {
	pieces := strings.Split(tpl, "?")
	var b strings.Builder
	b.Grow(len(tpl))
	for i, piece := range pieces {
		b.WriteString(piece)
		if i < len(pieces)-1 && i < len(args) {
			b.WriteString(escape(args[i]))
		}
	}
	return b.String()
}

// Comparison is a column compared to one value.
type Comparison struct {
	Column   string
	Operator string // empty means the clause default
	Value    any
}

// Col builds a Comparison from the loose argument forms:
//
//	Col("age", ">", 18)  -> age > 18
//	Col("name", "bob")   -> name = 'bob' (WHERE) or name > 'bob' (HAVING)
//	Col("deleted_at")    -> deleted_at = NULL
//
// A first argument that is not a recognized operator is taken as the value.
func Col(column string, args ...any) Comparison {
	c := Comparison{Column: column}
	if len(args) == 0 {
		return c
	}
	if op, ok := args[0].(string); ok && IsOperator(op) {
		c.Operator = op
		if len(args) > 1 {
			c.Value = args[1]
		}
		return c
	}
	c.Value = args[0]
	return c
}

func (cmp Comparison) build(c *condContext) string {
	op := cmp.Operator
	if op == "" {
		op = c.defaultOp
	}
	return c.not + cmp.Column + " " + op + " " + c.escape(cmp.Value)
}
