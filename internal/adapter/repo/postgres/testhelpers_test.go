package postgres_test

import (
	"context"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakePool is a hand-rolled PgxPool: canned row/tag plus captured arguments.
type fakePool struct {
	execSQL  string
	execArgs []any
	execTag  pgconn.CommandTag
	execErr  error

	rowSQL  string
	rowArgs []any
	row     pgx.Row

	queryErr error
}

func (f *fakePool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = sql
	f.execArgs = args
	return f.execTag, f.execErr
}

func (f *fakePool) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.rowSQL = sql
	f.rowArgs = args
	return f.row
}

func (f *fakePool) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, f.queryErr
}

// fakeRow scans canned values into the destinations, or fails with err.
type fakeRow struct {
	vals []any
	err  error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.vals) || r.vals[i] == nil {
			continue
		}
		dv := reflect.ValueOf(d).Elem()
		dv.Set(reflect.ValueOf(r.vals[i]).Convert(dv.Type()))
	}
	return nil
}
