// Package kvstore provides a store client over a key-value bucket.
//
// Rows are stored as encoded records under "<table>/<id>". Join-table
// pairs are stored in both directions under "j/<table>/<column>/<value>",
// each entry listing the values of the opposite column. Key-value buckets
// have no secondary indexes: relation lookups go through the search index,
// which the client fills as rows and links are written.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/metadata"
	"github.com/syssam/polystore/schema/field"
	"github.com/syssam/polystore/search"
	"github.com/syssam/polystore/store"
)

// DefaultConcurrency bounds the parallel reads of FindAll.
const DefaultConcurrency = 8

// Client is a store.Client over a Bucket.
type Client struct {
	bucket      Bucket
	catalog     metadata.Provider
	codec       Codec
	index       *search.MemIndex
	logger      *slog.Logger
	concurrency int

	linkMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithCodec sets the record codec. The default is Msgpack.
func WithCodec(c Codec) Option {
	return func(cl *Client) { cl.codec = c }
}

// WithIndex sets the search index filled on writes.
func WithIndex(ix *search.MemIndex) Option {
	return func(c *Client) { c.index = ix }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithConcurrency bounds the parallel reads of FindAll.
func WithConcurrency(n int) Option {
	return func(c *Client) { c.concurrency = n }
}

// New returns a client storing the entities of catalog in bucket.
func New(bucket Bucket, catalog metadata.Provider, opts ...Option) *Client {
	c := &Client{
		bucket:      bucket,
		catalog:     catalog,
		codec:       Msgpack{},
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
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
func (c *Client) SupportsSecondaryIndex() bool { return false }

// Index implements store.Client.
func (c *Client) Index() search.Index { return c.index }

// SearchIndex returns the concrete search index.
func (c *Client) SearchIndex() *search.MemIndex { return c.index }

// Find implements store.Client.
func (c *Client) Find(ctx context.Context, typ, id string) (store.Entity, error) {
	e, err := c.catalog.Catalog().Entity(typ)
	if err != nil {
		return store.Entity{}, err
	}
	b, err := c.bucket.Get(ctx, rowKey(e.Table, id))
	if errors.Is(err, ErrKeyNotFound) {
		return store.Entity{}, polystore.NewNotFoundErrorWithID(typ, id)
	}
	if err != nil {
		return store.Entity{}, fmt.Errorf("kvstore: find %s %s: %w", typ, id, err)
	}
	rec, err := c.codec.Decode(b)
	if err != nil {
		return store.Entity{}, err
	}
	obj, err := e.Decode(rec.Fields)
	if err != nil {
		return store.Entity{}, fmt.Errorf("kvstore: %w", err)
	}
	rel := make(map[string]any, len(rec.Relations))
	for k, v := range rec.Relations {
		rel[k] = v
	}
	return store.WrapEntity(obj, rec.ID, rel), nil
}

// FindAll implements store.Client.
func (c *Client) FindAll(ctx context.Context, typ string, ids []string) ([]store.Entity, error) {
	found := make([]store.Entity, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			e, err := c.Find(ctx, typ, id)
			if polystore.IsNotFound(err) {
				return nil
			}
			found[i] = e
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.DeleteFunc(found, store.Entity.IsZero), nil
}

// FindByRelation implements store.Client. Buckets cannot be queried by
// value.
func (c *Client) FindByRelation(_ context.Context, relation, _, typ string) ([]store.Entity, error) {
	return nil, fmt.Errorf("kvstore: find %s by %s: %w", typ, relation, polystore.ErrUnsupported)
}

// FindIDsByColumn implements store.Client.
func (c *Client) FindIDsByColumn(ctx context.Context, table, _, column, value, _ string) ([]string, error) {
	return c.links(ctx, joinKey(table, column, value))
}

// ColumnsByID implements store.Client.
func (c *Client) ColumnsByID(ctx context.Context, table, ownColumn, _, id string) ([]string, error) {
	return c.links(ctx, joinKey(table, ownColumn, id))
}

func (c *Client) links(ctx context.Context, key string) ([]string, error) {
	b, err := c.bucket.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: %w", err)
	}
	rec, err := c.codec.Decode(b)
	if err != nil {
		return nil, err
	}
	return rec.Links, nil
}

// Put implements store.Writer.
func (c *Client) Put(ctx context.Context, typ, id string, obj any, relations map[string]any) error {
	cat := c.catalog.Catalog()
	e, err := cat.Entity(typ)
	if err != nil {
		return err
	}
	fields, err := e.Values(obj)
	if err != nil {
		return err
	}
	fields[e.IDColumn] = id
	rec := Record{ID: id, Fields: fields}
	for k, v := range relations {
		if s := field.String(v); s != "" {
			if rec.Relations == nil {
				rec.Relations = make(map[string]string)
			}
			rec.Relations[k] = s
		}
	}
	b, err := c.codec.Encode(rec)
	if err != nil {
		return fmt.Errorf("kvstore: encode %s %s: %w", typ, id, err)
	}
	if err := c.bucket.Put(ctx, rowKey(e.Table, id), b); err != nil {
		return fmt.Errorf("kvstore: put %s %s: %w", typ, id, err)
	}
	return c.index.Add(ctx, store.Documents(cat, typ, id, relations)...)
}

// Link implements store.Writer.
func (c *Client) Link(ctx context.Context, table, ownColumn, otherColumn, own, other string) error {
	c.linkMu.Lock()
	defer c.linkMu.Unlock()
	if err := c.appendLink(ctx, joinKey(table, ownColumn, own), other); err != nil {
		return err
	}
	if err := c.appendLink(ctx, joinKey(table, otherColumn, other), own); err != nil {
		return err
	}
	return c.index.Add(ctx, store.LinkDocuments(c.catalog.Catalog(), table, ownColumn, otherColumn, own, other)...)
}

func (c *Client) appendLink(ctx context.Context, key, value string) error {
	links, err := c.links(ctx, key)
	if err != nil {
		return err
	}
	if slices.Contains(links, value) {
		return nil
	}
	b, err := c.codec.Encode(Record{ID: key, Links: append(links, value)})
	if err != nil {
		return fmt.Errorf("kvstore: encode %s: %w", key, err)
	}
	if err := c.bucket.Put(ctx, key, b); err != nil {
		return fmt.Errorf("kvstore: link %s: %w", key, err)
	}
	c.logger.DebugContext(ctx, "kvstore link", slog.String("key", key), slog.String("value", value))
	return nil
}

func rowKey(table, id string) string { return table + "/" + id }

func joinKey(table, column, value string) string {
	return "j/" + table + "/" + column + "/" + value
}

var (
	_ store.Client       = (*Client)(nil)
	_ store.IndexCapable = (*Client)(nil)
	_ store.Writer       = (*Client)(nil)
)
