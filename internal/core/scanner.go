package core

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/coregx/fluentdb/internal/util"
)

// scanner hydrates rows into structs, caching field layouts per type.
type scanner struct {
	mu    sync.RWMutex
	cache map[reflect.Type]map[string][]int
}

var globalScanner = &scanner{cache: make(map[reflect.Type]map[string][]int)}

// fields returns lower-cased column name -> field index path for typ.
func (s *scanner) fields(typ reflect.Type) map[string][]int {
	s.mu.RLock()
	m, ok := s.cache[typ]
	s.mu.RUnlock()
	if ok {
		return m
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.cache[typ]; ok {
		return m
	}
	m = make(map[string][]int)
	collectFields(typ, nil, m)
	s.cache[typ] = m
	return m
}

func collectFields(typ reflect.Type, index []int, out map[string][]int) {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		path := append(append([]int{}, index...), i)

		// Embedded structs contribute their fields.
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if _, tagged := field.Tag.Lookup("db"); !tagged {
				collectFields(field.Type, path, out)
				continue
			}
		}

		column, _, ok := util.ColumnName(field)
		if !ok {
			continue
		}
		key := strings.ToLower(column)
		if _, dup := out[key]; !dup {
			out[key] = path
		}
	}
}

// scanInto hydrates dest from rows and returns the number of rows used.
// dest must point to a struct (one row) or a slice of structs or struct
// pointers (every row, or the first when all is false).
func (s *scanner) scanInto(rows Rows, dest any, all bool) (int, error) {
	defer rows.Close()

	ptr := reflect.ValueOf(dest)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return 0, fmt.Errorf("%w: need a non-nil pointer, got %T", ErrInvalidFetchTarget, dest)
	}
	target := ptr.Elem()

	cols, err := rows.Columns()
	if err != nil {
		return 0, WrapError(err, "reading columns")
	}

	switch target.Kind() {
	case reflect.Struct:
		if !rows.Next() {
			return 0, rows.Err()
		}
		if err := s.scanRow(rows, cols, target); err != nil {
			return 0, err
		}
		return 1, rows.Err()

	case reflect.Slice:
		elemType := target.Type().Elem()
		isPtr := elemType.Kind() == reflect.Ptr
		if isPtr {
			elemType = elemType.Elem()
		}
		if elemType.Kind() != reflect.Struct {
			return 0, fmt.Errorf("%w: slice element must be a struct, got %s", ErrInvalidFetchTarget, elemType.Kind())
		}

		n := 0
		for rows.Next() {
			elem := reflect.New(elemType).Elem()
			if err := s.scanRow(rows, cols, elem); err != nil {
				return n, err
			}
			if isPtr {
				target.Set(reflect.Append(target, elem.Addr()))
			} else {
				target.Set(reflect.Append(target, elem))
			}
			n++
			if !all {
				break
			}
		}
		return n, rows.Err()
	}

	return 0, fmt.Errorf("%w: need a struct or slice, got %s", ErrInvalidFetchTarget, target.Kind())
}

func (s *scanner) scanRow(rows Rows, cols []string, elem reflect.Value) error {
	fields := s.fields(elem.Type())

	dests := make([]any, len(cols))
	for i, col := range cols {
		path, ok := fields[strings.ToLower(col)]
		if !ok {
			var discard any
			dests[i] = &discard
			continue
		}
		dests[i] = elem.FieldByIndex(path).Addr().Interface()
	}

	if err := rows.Scan(dests...); err != nil {
		return fmt.Errorf("scanner: scan failed: %w", err)
	}
	return nil
}
