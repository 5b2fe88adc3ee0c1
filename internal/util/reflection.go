// Package util holds the struct reflection shared by model inserts and
// class-mode hydration.
package util

import (
	"errors"
	"reflect"
	"strings"
)

// ColumnName returns the column a struct field maps to and whether the field
// takes part in mapping at all.
//
// Supported tag formats:
//   - db:"column"     -> column
//   - db:"column,pk"  -> column, marked primary key
//   - db:"-"          -> skipped
//   - no tag          -> field name
func ColumnName(field reflect.StructField) (column string, isPK bool, ok bool) {
	if !field.IsExported() {
		return "", false, false
	}
	tag, hasTag := field.Tag.Lookup("db")
	if !hasTag {
		return field.Name, false, true
	}
	column, isPK = parseDBTag(tag)
	if column == "-" {
		return "", false, false
	}
	if column == "" {
		column = field.Name
	}
	return column, isPK, true
}

func parseDBTag(tag string) (column string, isPK bool) {
	parts := strings.Split(tag, ",")
	column = strings.TrimSpace(parts[0])
	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "pk" {
			isPK = true
		}
	}
	return column, isPK
}

func structValue(data any) (reflect.Value, error) {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, errors.New("util: nil pointer")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, errors.New("util: expected struct, got " + v.Kind().String())
	}
	return v, nil
}

// Columns lists mapped columns and their values in field declaration order.
// When skipZeroPK is set, a primary key still at its zero value is left out
// so the database can generate it.
func Columns(data any, skipZeroPK bool) (columns []string, values []any, err error) {
	v, err := structValue(data)
	if err != nil {
		return nil, nil, err
	}

	skip := -1
	if skipZeroPK {
		if field, pkv, err := FindPrimaryKeyField(v); err == nil && IsPrimaryKeyZero(pkv) {
			skip = field.Index[0]
		}
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		column, _, ok := ColumnName(t.Field(i))
		if !ok {
			continue
		}
		if i == skip {
			continue
		}
		columns = append(columns, column)
		values = append(values, v.Field(i).Interface())
	}
	if len(columns) == 0 {
		return nil, nil, errors.New("util: struct has no mapped columns")
	}
	return columns, values, nil
}

// FindPrimaryKeyField returns the first field tagged pk, falling back to a
// field named ID or Id.
func FindPrimaryKeyField(v reflect.Value) (reflect.StructField, reflect.Value, error) {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.StructField{}, reflect.Value{}, errors.New("util: nil pointer")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.StructField{}, reflect.Value{}, errors.New("util: not a struct")
	}

	t := v.Type()
	fallback := -1
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		_, isPK, ok := ColumnName(field)
		if !ok {
			continue
		}
		if isPK {
			return field, v.Field(i), nil
		}
		if fallback < 0 && (field.Name == "ID" || field.Name == "Id") {
			fallback = i
		}
	}
	if fallback >= 0 {
		return t.Field(fallback), v.Field(fallback), nil
	}
	return reflect.StructField{}, reflect.Value{}, errors.New("util: no primary key found")
}

// IsPrimaryKeyZero reports whether an integer key still needs a generated
// value. Non-integer keys are never considered zero.
func IsPrimaryKeyZero(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Ptr:
		return v.IsNil() || IsPrimaryKeyZero(v.Elem())
	default:
		return false
	}
}

// SetPrimaryKeyValue stores id into an integer field, allocating nil
// pointers and rejecting values that overflow the field.
func SetPrimaryKeyValue(field reflect.Value, id int64) error {
	if !field.IsValid() {
		return errors.New("util: invalid field")
	}
	if !field.CanSet() {
		return errors.New("util: field is not settable")
	}

	switch field.Kind() {
	case reflect.Ptr:
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return SetPrimaryKeyValue(field.Elem(), id)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.OverflowInt(id) {
			return errors.New("util: " + field.Kind().String() + " overflow")
		}
		field.SetInt(id)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if id < 0 || field.OverflowUint(uint64(id)) {
			return errors.New("util: " + field.Kind().String() + " overflow")
		}
		field.SetUint(uint64(id))
	default:
		return errors.New("util: unsupported primary key type " + field.Kind().String())
	}
	return nil
}
