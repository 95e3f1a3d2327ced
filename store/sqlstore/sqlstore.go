// Package sqlstore provides a store client over a SQL database.
//
// Every entity type maps to one table holding its scalar columns and the
// foreign-key columns of its to-one relations. Join tables hold one row
// per linked pair. SQL databases answer relation lookups natively, so the
// client advertises secondary-index support.
//
//	drv, _ := sql.Open("postgres", dsn)
//	client := sqlstore.New(drv, catalog)
package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/dialect/sql"
	"github.com/syssam/polystore/dialect/sql/schema"
	"github.com/syssam/polystore/metadata"
	"github.com/syssam/polystore/schema/field"
	"github.com/syssam/polystore/search"
	"github.com/syssam/polystore/store"
	"github.com/syssam/polystore/store/batch"
)

// DefaultBatchSize bounds the number of ids bound in one IN clause.
const DefaultBatchSize = 500

// Client is a store.Client backed by a dialect.Driver.
type Client struct {
	drv       dialect.Driver
	catalog   metadata.Provider
	index     search.Index
	logger    *slog.Logger
	batchSize int
}

// Option configures a Client.
type Option func(*Client)

// WithIndex sets the search index returned by Index.
func WithIndex(ix search.Index) Option {
	return func(c *Client) { c.index = ix }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBatchSize sets the number of ids per bulk query.
func WithBatchSize(n int) Option {
	return func(c *Client) { c.batchSize = n }
}

// New returns a client for the entities of catalog stored behind drv.
func New(drv dialect.Driver, catalog metadata.Provider, opts ...Option) *Client {
	c := &Client{
		drv:       drv,
		catalog:   catalog,
		logger:    slog.Default(),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.index == nil {
		c.index = search.NewMemIndex()
	}
	return c
}

// SupportsSecondaryIndex implements store.IndexCapable.
func (c *Client) SupportsSecondaryIndex() bool { return true }

// Index implements store.Client.
func (c *Client) Index() search.Index { return c.index }

// Driver returns the underlying driver.
func (c *Client) Driver() dialect.Driver { return c.drv }

// Find implements store.Client.
func (c *Client) Find(ctx context.Context, typ, id string) (store.Entity, error) {
	e, err := c.entity(typ)
	if err != nil {
		return store.Entity{}, err
	}
	rows, err := c.query(ctx, fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", c.quote(e.Table), c.quote(e.IDColumn)), id)
	if err != nil {
		return store.Entity{}, fmt.Errorf("sqlstore: find %s %s: %w", typ, id, err)
	}
	if len(rows) == 0 {
		return store.Entity{}, polystore.NewNotFoundErrorWithID(typ, id)
	}
	return c.decode(e, rows[0])
}

// FindAll implements store.Client.
func (c *Client) FindAll(ctx context.Context, typ string, ids []string) ([]store.Entity, error) {
	e, err := c.entity(typ)
	if err != nil {
		return nil, err
	}
	var found []store.Entity
	for _, chunk := range batch.Chunk(ids, c.batchSize) {
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		q := fmt.Sprintf("SELECT * FROM %s WHERE %s IN (%s)",
			c.quote(e.Table), c.quote(e.IDColumn), strings.TrimSuffix(strings.Repeat("?, ", len(chunk)), ", "))
		rows, err := c.query(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: find all %s: %w", typ, err)
		}
		for _, r := range rows {
			ent, err := c.decode(e, r)
			if err != nil {
				return nil, err
			}
			found = append(found, ent)
		}
	}
	return batch.Present(ids, found, store.Entity.ID), nil
}

// FindByRelation implements store.Client.
func (c *Client) FindByRelation(ctx context.Context, relation, value, typ string) ([]store.Entity, error) {
	e, err := c.entity(typ)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(c.columns(e), relation) {
		return nil, fmt.Errorf("sqlstore: %s has no column %q", typ, relation)
	}
	q := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? ORDER BY %s",
		c.quote(e.Table), c.quote(relation), c.quote(e.IDColumn))
	rows, err := c.query(ctx, q, value)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: find %s by %s: %w", typ, relation, err)
	}
	out := make([]store.Entity, 0, len(rows))
	for _, r := range rows {
		ent, err := c.decode(e, r)
		if err != nil {
			return nil, err
		}
		out = append(out, ent)
	}
	return out, nil
}

// FindIDsByColumn implements store.Client.
func (c *Client) FindIDsByColumn(ctx context.Context, table, keyColumn, column, value, _ string) ([]string, error) {
	return c.pluck(ctx, table, keyColumn, column, value)
}

// ColumnsByID implements store.Client.
func (c *Client) ColumnsByID(ctx context.Context, table, ownColumn, otherColumn, id string) ([]string, error) {
	return c.pluck(ctx, table, otherColumn, ownColumn, id)
}

func (c *Client) pluck(ctx context.Context, table, selectColumn, whereColumn, value string) ([]string, error) {
	for _, ident := range []string{table, selectColumn, whereColumn} {
		if !sql.ValidIdentifier(ident) {
			return nil, fmt.Errorf("sqlstore: invalid identifier %q", ident)
		}
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", c.quote(selectColumn), c.quote(table), c.quote(whereColumn))
	rows, err := c.query(ctx, q, value)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: join table %s: %w", table, err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, field.String(r[selectColumn]))
	}
	return out, nil
}

// Put implements store.Writer.
func (c *Client) Put(ctx context.Context, typ, id string, obj any, relations map[string]any) error {
	e, err := c.entity(typ)
	if err != nil {
		return err
	}
	values, err := e.Values(obj)
	if err != nil {
		return err
	}
	values[e.IDColumn] = id
	for _, col := range c.foreignKeys(e) {
		if v, ok := relations[col]; ok && v != nil {
			values[col] = field.String(v)
		}
	}
	cols := c.columns(e)
	args := make([]any, len(cols))
	quoted := make([]string, len(cols))
	for i, col := range cols {
		args[i] = values[col]
		quoted[i] = c.quote(col)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", c.quote(e.Table),
		strings.Join(quoted, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	if err := c.drv.Exec(ctx, sql.Rebind(c.drv.Dialect(), q), args, nil); err != nil {
		if sql.IsUniqueConstraintError(err) {
			return fmt.Errorf("sqlstore: put %s %s: %w: %w", typ, id, polystore.ErrDuplicate, err)
		}
		return fmt.Errorf("sqlstore: put %s %s: %w", typ, id, err)
	}
	return c.indexDocs(ctx, store.Documents(c.catalog.Catalog(), typ, id, relations))
}

// Link implements store.Writer.
func (c *Client) Link(ctx context.Context, table, ownColumn, otherColumn, own, other string) error {
	for _, ident := range []string{table, ownColumn, otherColumn} {
		if !sql.ValidIdentifier(ident) {
			return fmt.Errorf("sqlstore: invalid identifier %q", ident)
		}
	}
	q := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", c.quote(table), c.quote(ownColumn), c.quote(otherColumn))
	if err := c.drv.Exec(ctx, sql.Rebind(c.drv.Dialect(), q), []any{own, other}, nil); err != nil {
		if sql.IsUniqueConstraintError(err) {
			return fmt.Errorf("sqlstore: link %s: %w: %w", table, polystore.ErrDuplicate, err)
		}
		return fmt.Errorf("sqlstore: link %s: %w", table, err)
	}
	return c.indexDocs(ctx, store.LinkDocuments(c.catalog.Catalog(), table, ownColumn, otherColumn, own, other))
}

// indexer is implemented by search indexes that accept documents.
type indexer interface {
	Add(ctx context.Context, docs ...search.Document) error
}

func (c *Client) indexDocs(ctx context.Context, docs []search.Document) error {
	ix, ok := c.index.(indexer)
	if !ok || len(docs) == 0 {
		return nil
	}
	return ix.Add(ctx, docs...)
}

// Migrate creates the tables of every entity in the catalog and of every
// join table, skipping those that exist.
func (c *Client) Migrate(ctx context.Context) error {
	cat := c.catalog.Catalog()
	fks := make(map[string][]string)
	for _, e := range cat.Entities() {
		fks[e.Name] = c.foreignKeys(e)
	}
	return schema.Create(ctx, c.drv, schema.Tables(cat, fks), c.logger)
}

func (c *Client) entity(typ string) (*metadata.Entity, error) {
	return c.catalog.Catalog().Entity(typ)
}

func (c *Client) query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	query = sql.Rebind(c.drv.Dialect(), query)
	c.logger.DebugContext(ctx, "sqlstore query", slog.String("query", query))
	return sql.QueryRows(ctx, c.drv, query, args...)
}

func (c *Client) quote(ident string) string {
	return dialect.Quote(c.drv.Dialect(), ident)
}

func (c *Client) decode(e *metadata.Entity, row map[string]any) (store.Entity, error) {
	obj, err := e.Decode(row)
	if err != nil {
		return store.Entity{}, fmt.Errorf("sqlstore: %w", err)
	}
	rel := make(map[string]any)
	for _, col := range c.foreignKeys(e) {
		if v := row[col]; v != nil {
			rel[col] = field.String(v)
		}
	}
	return store.WrapEntity(obj, field.String(row[e.IDColumn]), rel), nil
}

// columns returns the scalar columns of e followed by its foreign keys.
func (c *Client) columns(e *metadata.Entity) []string {
	return append(e.ColumnNames(), c.foreignKeys(e)...)
}

// foreignKeys returns the foreign-key columns stored on e's table: the
// keys of its own to-one relations and those of one-to-many relations
// targeting e, sorted.
func (c *Client) foreignKeys(e *metadata.Entity) []string {
	cat := c.catalog.Catalog()
	var keys []string
	add := func(k string) {
		if k != "" && !slices.Contains(keys, k) {
			if _, scalar := e.Column(k); !scalar {
				keys = append(keys, k)
			}
		}
	}
	for _, d := range e.Relations {
		if !d.Multiplicity.ToMany() && !d.ViaJoinTable() {
			add(d.MappedName())
		}
	}
	for _, other := range cat.Entities() {
		for _, d := range other.Relations {
			if d.Target == e.Name && d.Multiplicity.ToMany() && !d.ViaJoinTable() && cat.Inverse(d) == nil {
				add(d.MappedName())
			}
		}
	}
	sort.Strings(keys)
	return keys
}

var (
	_ store.Client       = (*Client)(nil)
	_ store.IndexCapable = (*Client)(nil)
	_ store.Writer       = (*Client)(nil)
)
