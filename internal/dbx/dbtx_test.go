package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS items (id TEXT PRIMARY KEY, ord INTEGER NOT NULL);`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO items(id, ord) VALUES ('a', 0), ('b', 1), ('c', 2);`)
	require.NoError(t, err)
	return db
}

func orderOf(t *testing.T, db *sql.DB, id string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT ord FROM items WHERE id = ?`, id).Scan(&n))
	return n
}

func setOrder(ctx context.Context, tx DBTX, id string, ord int) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE items SET ord = ? WHERE id = ?`, ord, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := setupDB(t)

	var applied []bool
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		for _, it := range []struct {
			id  string
			ord int
		}{{"a", 2}, {"b", 0}, {"ghost", 9}} {
			ok, err := setOrder(ctx, tx, it.id, it.ord)
			if err != nil {
				return err
			}
			applied = append(applied, ok)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []bool{true, true, false}, applied)
	require.Equal(t, 2, orderOf(t, db, "a"))
	require.Equal(t, 0, orderOf(t, db, "b"))
	require.Equal(t, 2, orderOf(t, db, "c"), "rows not mentioned keep their order")
}

func TestWithTx_RollbackOnFnError(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := setOrder(ctx, tx, "a", 5)
		require.NoError(t, e)
		return errors.New("boom")
	})
	require.EqualError(t, err, "boom")

	require.Equal(t, 0, orderOf(t, db, "a"), "must roll back when fn returns an error")
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := setupDB(t)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.Equal(t, 1, orderOf(t, db, "b"), "must roll back on panic")
	}()

	_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := setOrder(ctx, tx, "b", 7)
		require.NoError(t, e)
		panic("kaput")
	})
}

func TestWithTx_BeginError(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	require.ErrorContains(t, err, "begin tx")
	require.False(t, called)
}

func TestWithTx_CancelledContext(t *testing.T) {
	db := setupDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
