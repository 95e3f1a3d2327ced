package store

import (
	"context"

	"github.com/syssam/polystore/search"
)

// Client executes physical reads for one or more entity types. Type
// arguments are catalog type names.
//
// Find returns a NotFoundError (polystore.IsNotFound) when no row exists.
// FindAll skips missing ids and returns the found rows in the order of ids.
type Client interface {
	// Find fetches a single row by primary key.
	Find(ctx context.Context, typ, id string) (Entity, error)
	// FindAll fetches rows by primary key.
	FindAll(ctx context.Context, typ string, ids []string) ([]Entity, error)
	// FindByRelation returns rows of typ whose relation column equals value.
	// Backends without secondary indexes return polystore.ErrUnsupported.
	FindByRelation(ctx context.Context, relation, value, typ string) ([]Entity, error)
	// FindIDsByColumn returns the values of keyColumn from table for rows
	// whose column equals value.
	FindIDsByColumn(ctx context.Context, table, keyColumn, column, value, typ string) ([]string, error)
	// ColumnsByID returns the values of otherColumn from table for rows
	// whose ownColumn equals id, in storage order.
	ColumnsByID(ctx context.Context, table, ownColumn, otherColumn, id string) ([]string, error)
	// Index returns the search index serving this client.
	Index() search.Index
}

// IndexCapable is implemented by clients that may support native
// secondary-index lookups.
type IndexCapable interface {
	SupportsSecondaryIndex() bool
}

// SupportsSecondaryIndex reports whether c serves FindByRelation natively.
func SupportsSecondaryIndex(c Client) bool {
	ic, ok := c.(IndexCapable)
	return ok && ic.SupportsSecondaryIndex()
}

// Writer stores rows and join-table pairs. Store clients implement it to
// allow seeding and loading fixtures; the resolver never writes.
type Writer interface {
	// Put stores obj under id. relations maps relation keys (foreign-key
	// columns) to the related ids.
	Put(ctx context.Context, typ, id string, obj any, relations map[string]any) error
	// Link records one join-table row.
	Link(ctx context.Context, table, ownColumn, otherColumn, own, other string) error
}
