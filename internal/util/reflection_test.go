package util

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testUser struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	Email     string `db:"email"`
	internal  string
	Ignored   int       `db:"-"`
	CreatedAt time.Time `db:"created_at"`
	Nickname  string
}

type taggedKey struct {
	Code  string `db:"code,pk"`
	Label string `db:"label"`
}

func TestColumnName(t *testing.T) {
	typ := reflect.TypeOf(testUser{})

	col, pk, ok := ColumnName(typ.Field(0))
	assert.Equal(t, "id", col)
	assert.False(t, pk)
	assert.True(t, ok)

	_, _, ok = ColumnName(typ.Field(3))
	assert.False(t, ok, "unexported")

	_, _, ok = ColumnName(typ.Field(4))
	assert.False(t, ok, "db:-")

	col, _, ok = ColumnName(typ.Field(6))
	assert.True(t, ok)
	assert.Equal(t, "Nickname", col)

	col, pk, ok = ColumnName(reflect.TypeOf(taggedKey{}).Field(0))
	assert.Equal(t, "code", col)
	assert.True(t, pk)
	assert.True(t, ok)
}

func TestColumns_DeclarationOrder(t *testing.T) {
	u := testUser{ID: 7, Name: "alice", Email: "a@example.com"}

	cols, vals, err := Columns(u, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "email", "created_at", "Nickname"}, cols)
	assert.Equal(t, int64(7), vals[0])
	assert.Equal(t, "alice", vals[1])
}

func TestColumns_SkipZeroPK(t *testing.T) {
	cols, _, err := Columns(&testUser{Name: "bob"}, true)
	require.NoError(t, err)
	assert.NotContains(t, cols, "id")

	cols, _, err = Columns(&testUser{ID: 3, Name: "bob"}, true)
	require.NoError(t, err)
	assert.Contains(t, cols, "id")

	cols, _, err = Columns(taggedKey{Label: "x"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "label"}, cols, "string keys are never generated")
}

func TestColumns_Errors(t *testing.T) {
	_, _, err := Columns((*testUser)(nil), false)
	assert.Error(t, err)

	_, _, err = Columns(42, false)
	assert.Error(t, err)

	_, _, err = Columns(struct{ x int }{}, false)
	assert.Error(t, err)
}

func TestFindPrimaryKeyField(t *testing.T) {
	u := testUser{ID: 123}
	field, val, err := FindPrimaryKeyField(reflect.ValueOf(&u))
	require.NoError(t, err)
	assert.Equal(t, "ID", field.Name)
	assert.Equal(t, int64(123), val.Int())

	field, _, err = FindPrimaryKeyField(reflect.ValueOf(taggedKey{}))
	require.NoError(t, err)
	assert.Equal(t, "Code", field.Name)

	_, _, err = FindPrimaryKeyField(reflect.ValueOf(struct{ Name string }{}))
	assert.Error(t, err)
}

func TestIsPrimaryKeyZero(t *testing.T) {
	var nilPtr *int64
	one := int64(1)

	assert.True(t, IsPrimaryKeyZero(reflect.ValueOf(int64(0))))
	assert.True(t, IsPrimaryKeyZero(reflect.ValueOf(uint8(0))))
	assert.True(t, IsPrimaryKeyZero(reflect.ValueOf(nilPtr)))
	assert.False(t, IsPrimaryKeyZero(reflect.ValueOf(&one)))
	assert.False(t, IsPrimaryKeyZero(reflect.ValueOf("")))
}

func TestSetPrimaryKeyValue(t *testing.T) {
	var id int64
	require.NoError(t, SetPrimaryKeyValue(reflect.ValueOf(&id).Elem(), 999))
	assert.Equal(t, int64(999), id)

	var small int8
	assert.Error(t, SetPrimaryKeyValue(reflect.ValueOf(&small).Elem(), 300))

	var u uint32
	assert.Error(t, SetPrimaryKeyValue(reflect.ValueOf(&u).Elem(), -1))

	var p *int
	require.NoError(t, SetPrimaryKeyValue(reflect.ValueOf(&p).Elem(), 5))
	require.NotNil(t, p)
	assert.Equal(t, 5, *p)

	var s string
	assert.Error(t, SetPrimaryKeyValue(reflect.ValueOf(&s).Elem(), 1))

	assert.Error(t, SetPrimaryKeyValue(reflect.ValueOf(id), 1), "not settable")
}
