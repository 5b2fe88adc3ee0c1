package core

import (
	"context"
	"fmt"
	"reflect"

	"github.com/coregx/fluentdb/internal/util"
)

// InsertModel inserts the mapped fields of model, a struct or pointer to
// struct, into the selected table. A zero integer primary key is left to
// the database and, when model is a pointer, set from the generated id.
func (db *DB) InsertModel(ctx context.Context, model any) (int64, error) {
	cols, vals, err := util.Columns(model, true)
	if err != nil {
		db.reset()
		db.cache = nil
		return 0, fmt.Errorf("%w: %v", ErrNoData, err)
	}

	row := make(Pairs, len(cols))
	for i, c := range cols {
		row[i] = Pair{Column: c, Value: vals[i]}
	}

	id, err := db.Insert(ctx, row)
	if err != nil || id == 0 {
		return id, err
	}

	v := reflect.ValueOf(model)
	if v.Kind() != reflect.Ptr {
		return id, nil
	}
	if _, pk, perr := util.FindPrimaryKeyField(v); perr == nil && util.IsPrimaryKeyZero(pk) {
		if serr := util.SetPrimaryKeyValue(pk, id); serr != nil {
			return id, WrapError(serr, "setting primary key")
		}
	}
	return id, nil
}
