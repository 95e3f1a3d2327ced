package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/polystore/dialect"
)

func TestOpenDB(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
	}{
		{"Postgres", dialect.Postgres},
		{"MySQL", dialect.MySQL},
		{"SQLite", dialect.SQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(tt.dialect, db)
			assert.NotNil(t, drv)
			assert.Equal(t, tt.dialect, drv.Dialect())
		})
	}
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("query_with_args", func(t *testing.T) {
		mock.ExpectQuery("SELECT name FROM users WHERE id = \\$1").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Alice"))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT name FROM users WHERE id = $1", []any{1}, rows)
		require.NoError(t, err)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query_error", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("database error"))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT", []any{}, rows)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_args", func(t *testing.T) {
		err := drv.Query(context.Background(), "SELECT 1", "nope", &Rows{})
		require.Error(t, err)
		err = drv.Query(context.Background(), "SELECT 1", []any{}, new(int))
		require.Error(t, err)
	})
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(1, 1))
	var res Result
	require.NoError(t, drv.Exec(context.Background(), "INSERT INTO orders (id) VALUES ($1)", []any{"o1"}, &res))
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.ExpectExec("DELETE").WillReturnError(errors.New("constraint violation"))
	require.Error(t, drv.Exec(context.Background(), "DELETE FROM orders", []any{}, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "INSERT INTO orders DEFAULT VALUES", []any{}, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.SQLite, db)

	mock.ExpectQuery("SELECT id, sku FROM line_items WHERE order_id = \\?").
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sku"}).
			AddRow("l1", []byte("pen")).
			AddRow("l2", nil))

	rows, err := QueryRows(context.Background(), drv, "SELECT id, sku FROM line_items WHERE order_id = ?", "o1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "l1", rows[0]["id"])
	assert.Equal(t, []byte("pen"), rows[0]["sku"])
	assert.Nil(t, rows[1]["sku"])
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	rows, err = QueryRows(context.Background(), drv, "SELECT id FROM orders")
	require.NoError(t, err)
	assert.Empty(t, rows)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("x").RowError(0, errors.New("broken")))
	_, err = QueryRows(context.Background(), drv, "SELECT id FROM orders")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dialect, in, want string
	}{
		{dialect.Postgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{dialect.Postgres, "SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
		{dialect.Postgres, "SELECT 1", "SELECT 1"},
		{dialect.MySQL, "SELECT * FROM t WHERE a = ?", "SELECT * FROM t WHERE a = ?"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Rebind(tt.dialect, tt.in))
	}
}

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db), WithSlowThreshold(-1), WithSlowQueryLog(logger))

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("DELETE").WillReturnError(errors.New("locked"))

	_, err = QueryRows(context.Background(), drv, "SELECT 1")
	require.NoError(t, err)
	require.Error(t, drv.Exec(context.Background(), "DELETE FROM t", []any{}, nil))

	s := drv.QueryStats().Snapshot()
	assert.Equal(t, int64(1), s.Queries)
	assert.Equal(t, int64(1), s.Execs)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, int64(2), s.Slow)
	assert.GreaterOrEqual(t, s.Avg(), time.Duration(0))
	assert.Contains(t, s.String(), "queries=1 execs=1")
	assert.Contains(t, buf.String(), "slow query detected")
	assert.Equal(t, dialect.SQLite, drv.Dialect())
}

func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv := NewDebugDriver(OpenDB(dialect.MySQL, db), logger)

	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, drv.Exec(context.Background(), "UPDATE t SET a = ?", []any{1}, nil))
	assert.Contains(t, buf.String(), "UPDATE t SET a = ?")
}

func TestValidIdentifier(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"orders", "public.orders", "_x1"} {
		assert.True(t, ValidIdentifier(s), s)
	}
	for _, s := range []string{"", "1abc", "a b", "a;drop", "a-b"} {
		assert.False(t, ValidIdentifier(s), s)
	}
}
