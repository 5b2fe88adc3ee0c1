package core

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"time"
)

// TimeFormat is how time.Time values are rendered inside quotes.
const TimeFormat = "2006-01-02 15:04:05"

// Escape turns v into a SQL literal. Numbers are emitted bare, nil as NULL,
// everything else is quoted by the connection's dialect. Booleans become
// '1' and '0'; false is never the empty string, so it still matches
// integer and boolean columns.
func (db *DB) Escape(v any) string {
	return escapeValue(v, db.conn.Quote)
}

func escapeValue(v any, quote func(string) string) string {
	if v == nil {
		return "NULL"
	}

	switch x := v.(type) {
	case string:
		return quote(x)
	case []byte:
		return quote(string(x))
	case bool:
		if x {
			return quote("1")
		}
		return quote("0")
	case time.Time:
		return quote(x.Format(TimeFormat))
	case driver.Valuer:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return "NULL"
		}
		val, err := x.Value()
		if err != nil {
			return quote(fmt.Sprint(v))
		}
		return escapeValue(val, quote)
	case fmt.Stringer:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return "NULL"
		}
		return quote(x.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "NULL"
		}
		return escapeValue(rv.Elem().Interface(), quote)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.String:
		return quote(rv.String())
	case reflect.Bool:
		return escapeValue(rv.Bool(), quote)
	}
	return quote(fmt.Sprint(v))
}

var numericString = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// inValue renders one member of an IN list: numbers and numeric strings
// bare, everything else escaped.
func inValue(v any, quote func(string) string) string {
	switch x := v.(type) {
	case string:
		if numericString.MatchString(x) {
			return x
		}
	case []byte:
		if numericString.Match(x) {
			return string(x)
		}
	}
	return escapeValue(v, quote)
}
