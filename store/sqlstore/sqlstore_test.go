package sqlstore_test

import (
	"context"
	stdsql "database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/dialect/sql"
	"github.com/syssam/polystore/internal/fixture"
	"github.com/syssam/polystore/search"
	"github.com/syssam/polystore/store"
	"github.com/syssam/polystore/store/sqlstore"
)

func mockClient(t *testing.T, name string, opts ...sqlstore.Option) (*sqlstore.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	c, err := fixture.Catalog("")
	require.NoError(t, err)
	return sqlstore.New(sql.OpenDB(name, db), c, opts...), mock
}

func TestFindMock(t *testing.T) {
	t.Parallel()

	t.Run("postgres", func(t *testing.T) {
		t.Parallel()
		client, mock := mockClient(t, dialect.Postgres)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE "id" = $1`)).
			WithArgs("o1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "total", "customer_id"}).AddRow("o1", 30.0, "c1"))

		e, err := client.Find(context.Background(), "Order", "o1")
		require.NoError(t, err)
		assert.Equal(t, store.Wrapped, e.Form())
		assert.Equal(t, "o1", e.ID())
		order := e.Object().(*fixture.Order)
		assert.Equal(t, 30.0, order.Total)
		fk, ok := e.RelationString("customer_id")
		assert.True(t, ok)
		assert.Equal(t, "c1", fk)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mysql_not_found", func(t *testing.T) {
		t.Parallel()
		client, mock := mockClient(t, dialect.MySQL)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `orders` WHERE `id` = ?")).
			WithArgs("o9").
			WillReturnRows(sqlmock.NewRows([]string{"id", "total", "customer_id"}))

		_, err := client.Find(context.Background(), "Order", "o9")
		assert.True(t, polystore.IsNotFound(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query_error", func(t *testing.T) {
		t.Parallel()
		client, mock := mockClient(t, dialect.SQLite)
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

		_, err := client.Find(context.Background(), "Order", "o1")
		require.ErrorContains(t, err, "connection reset")
		assert.False(t, polystore.IsNotFound(err))
	})

	t.Run("unknown_type", func(t *testing.T) {
		t.Parallel()
		client, _ := mockClient(t, dialect.SQLite)
		_, err := client.Find(context.Background(), "Invoice", "i1")
		assert.True(t, polystore.IsNotFound(err))
	})
}

func TestFindAllMock(t *testing.T) {
	t.Parallel()

	client, mock := mockClient(t, dialect.Postgres, sqlstore.WithBatchSize(2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "line_items" WHERE "id" IN ($1, $2)`)).
		WithArgs("l3", "l9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sku", "qty", "order_id"}).AddRow("l3", "pad", int64(5), "o2"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "line_items" WHERE "id" IN ($1)`)).
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sku", "qty", "order_id"}).AddRow("l1", "pen", int64(2), "o1"))

	got, err := client.FindAll(context.Background(), "LineItem", []string{"l3", "l9", "l1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "l3", got[0].ID())
	assert.Equal(t, "l1", got[1].ID())
	assert.Equal(t, 5, got[0].Object().(*fixture.LineItem).Qty)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByRelationMock(t *testing.T) {
	t.Parallel()

	client, mock := mockClient(t, dialect.SQLite)
	assert.True(t, store.SupportsSecondaryIndex(client))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "employees" WHERE "manager_id" = ? ORDER BY "id"`)).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "manager_id"}).
			AddRow("e2", "Dev", "e1").
			AddRow("e3", "Ops", "e1"))

	got, err := client.FindByRelation(context.Background(), "manager_id", "e1", "Employee")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e2", got[0].ID())
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = client.FindByRelation(context.Background(), "color", "red", "Employee")
	require.ErrorContains(t, err, `no column "color"`)
}

func TestJoinTableMock(t *testing.T) {
	t.Parallel()

	client, mock := mockClient(t, dialect.SQLite)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "product_id" FROM "product_categories" WHERE "category_id" = ?`)).
		WithArgs("C1").
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).AddRow("P1").AddRow("P2"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "category_id" FROM "product_categories" WHERE "product_id" = ?`)).
		WithArgs("P1").
		WillReturnRows(sqlmock.NewRows([]string{"category_id"}).AddRow("C1").AddRow("C2"))

	ctx := context.Background()
	owners, err := client.FindIDsByColumn(ctx, "product_categories", "product_id", "category_id", "C1", "Product")
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P2"}, owners)

	cats, err := client.ColumnsByID(ctx, "product_categories", "product_id", "category_id", "P1")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1", "C2"}, cats)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = client.ColumnsByID(ctx, "product_categories; DROP TABLE x", "product_id", "category_id", "P1")
	require.ErrorContains(t, err, "invalid identifier")
}

func TestPutMock(t *testing.T) {
	t.Parallel()

	ix := search.NewMemIndex()
	client, mock := mockClient(t, dialect.Postgres, sqlstore.WithIndex(ix))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "orders" ("id", "total", "customer_id") VALUES ($1, $2, $3)`)).
		WithArgs("o1", 30.0, "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := client.Put(context.Background(), "Order", "o1", &fixture.Order{ID: "o1", Total: 30}, map[string]any{"customer_id": "c1"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 1, ix.Len())
}

func openSQLite(t *testing.T) *sqlstore.Client {
	t.Helper()
	db, err := stdsql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	c, err := fixture.Catalog("")
	require.NoError(t, err)
	client := sqlstore.New(sql.OpenDB(dialect.SQLite, db), c)
	ctx := context.Background()
	require.NoError(t, client.Migrate(ctx))
	require.NoError(t, client.Migrate(ctx))
	require.NoError(t, fixture.Load(ctx, client, fixture.Data()))
	return client
}

func TestSQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := openSQLite(t)

	t.Run("find", func(t *testing.T) {
		e, err := client.Find(ctx, "LineItem", "l1")
		require.NoError(t, err)
		item := e.Object().(*fixture.LineItem)
		assert.Equal(t, "pen", item.SKU)
		assert.Equal(t, 2, item.Qty)
		fk, _ := e.RelationString("order_id")
		assert.Equal(t, "o1", fk)
	})

	t.Run("find_missing_fk", func(t *testing.T) {
		e, err := client.Find(ctx, "Customer", "c2")
		require.NoError(t, err)
		_, ok := e.Relation("profile_id")
		assert.False(t, ok)
	})

	t.Run("find_all", func(t *testing.T) {
		got, err := client.FindAll(ctx, "Order", []string{"o2", "o1"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "o2", got[0].ID())
		assert.Equal(t, 12.5, got[0].Object().(*fixture.Order).Total)
	})

	t.Run("find_by_relation", func(t *testing.T) {
		got, err := client.FindByRelation(ctx, "order_id", "o1", "LineItem")
		require.NoError(t, err)
		assert.Equal(t, []string{"l1", "l2"}, ids(got))
	})

	t.Run("join_table", func(t *testing.T) {
		got, err := client.FindIDsByColumn(ctx, "product_categories", "product_id", "category_id", "C1", "Product")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"P1", "P2"}, got)
	})

	t.Run("duplicate", func(t *testing.T) {
		err := client.Put(ctx, "Order", "o1", &fixture.Order{ID: "o1"}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, polystore.ErrDuplicate)

		err = client.Link(ctx, "product_categories", "product_id", "category_id", "P1", "C1")
		assert.ErrorIs(t, err, polystore.ErrDuplicate)
	})

	t.Run("index", func(t *testing.T) {
		hits, err := client.Index().FetchRelation(ctx, search.BuildQuery(search.EntityClassField, "category", search.EntityIDField, "C1", ""))
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})
}

func ids(es []store.Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID()
	}
	return out
}
