package core

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryError(t *testing.T) {
	cause := errors.New("syntax error")
	err := &QueryError{Query: "SELEC 1", Message: cause.Error(), Err: cause}
	assert.Equal(t, "syntax error. (SELEC 1)", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ctx"))
	cause := errors.New("boom")
	err := WrapError(cause, "reading columns")
	assert.Equal(t, "reading columns: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestDebugSink(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		want   string
	}{
		{
			name:   "text",
			format: FormatText,
			want:   "Query: SELECT * FROM nope\nError: no such table\n",
		},
		{
			name:   "html",
			format: FormatHTML,
			want: `<h1>Database Error</h1><h4>Query: <em style="font-weight:normal">"SELECT * FROM nope"</em></h4>` +
				`<h4>Error: <em style="font-weight:normal">no such table</em></h4>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			code := -1
			sink := DebugSink{Out: &out, Format: tt.format, Exit: func(c int) { code = c }}

			db, conn := newTestDB(WithErrorSink(sink))
			conn.queryErr = errors.New("no such table")

			_, err := db.Query(context.Background(), "SELECT * FROM nope")
			require.Error(t, err)
			assert.Equal(t, 1, code)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestWithDebug_SelectsDebugSink(t *testing.T) {
	db, _ := newTestDB(WithDebug(true))
	assert.IsType(t, DebugSink{}, db.sink)

	db, _ = newTestDB()
	assert.IsType(t, ReturnSink{}, db.sink)

	db, _ = newTestDB(WithDebug(true), WithErrorSink(ReturnSink{}))
	assert.IsType(t, ReturnSink{}, db.sink)
}
