package persist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/metadata"
	"github.com/syssam/polystore/resolver"
	"github.com/syssam/polystore/store"
	"github.com/syssam/polystore/store/batch"
)

// DefaultConcurrency bounds the parallel traversals of FindMany.
const DefaultConcurrency = 4

// Manager reads entities from the store client of their persistence unit
// and resolves their object graphs. It implements resolver.Finder, so
// every related entity is fetched through the client owning its type.
type Manager struct {
	catalog  metadata.Provider
	clients  map[string]store.Client
	closers  []io.Closer
	resolver *resolver.Resolver
	logger   *slog.Logger
	limit    int
}

// New returns a manager over the clients registered with WithUnit. Every
// unit named by the catalog must have a client.
func New(catalog metadata.Provider, opts ...Option) (*Manager, error) {
	o := newOptions(opts)
	m := &Manager{
		catalog: catalog,
		clients: o.clients,
		closers: o.closers,
		logger:  o.logger,
		limit:   o.concurrency,
	}
	var missing []string
	for _, unit := range catalog.Catalog().Units() {
		if _, ok := m.clients[unit]; !ok {
			missing = append(missing, unit)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("persist: no store client for units %q", missing)
	}
	m.resolver = resolver.New(m, append([]resolver.Option{resolver.WithLogger(o.logger)}, o.resolverOpts...)...)
	return m, nil
}

// Metadata implements resolver.Finder.
func (m *Manager) Metadata(typ string) (*metadata.Entity, error) {
	return m.catalog.Catalog().Entity(typ)
}

// Client implements resolver.Finder. It returns the client of the unit
// holding typ.
func (m *Manager) Client(typ string) (store.Client, error) {
	e, err := m.Metadata(typ)
	if err != nil {
		return nil, err
	}
	c, ok := m.clients[e.Unit]
	if !ok {
		return nil, fmt.Errorf("persist: no store client for unit %q of %s", e.Unit, typ)
	}
	return c, nil
}

// FindEntity implements resolver.Finder.
func (m *Manager) FindEntity(ctx context.Context, tr *resolver.Traversal, typ, id string) (any, error) {
	if obj, ok := tr.Lookup(typ, id); ok {
		return obj, nil
	}
	ent, err := m.load(ctx, typ, id)
	if err != nil {
		return nil, err
	}
	return m.resolver.ResolveWithin(ctx, tr, typ, ent)
}

// Find reads the entity typ/id and resolves its object graph. A missing
// row is reported as a NotFoundError.
func (m *Manager) Find(ctx context.Context, typ, id string) (any, error) {
	ent, err := m.load(ctx, typ, id)
	if err != nil {
		return nil, err
	}
	return m.resolver.Resolve(ctx, typ, ent)
}

// Resolve resolves the object graph of obj, an entity of type typ held by
// the caller.
func (m *Manager) Resolve(ctx context.Context, typ string, obj any) (any, error) {
	if obj == nil {
		return nil, polystore.NewNotFoundError(typ)
	}
	return m.resolver.Resolve(ctx, typ, store.RawEntity(obj))
}

// FindMany resolves the entities of typ with the given ids, each in its
// own traversal. Missing ids are skipped. Results keep the order of ids;
// all failures are returned together.
func (m *Manager) FindMany(ctx context.Context, typ string, ids []string) ([]any, error) {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(m.limit)
	results := make([]any, len(ids))
	for i, id := range ids {
		g.Go(func() error {
			obj, err := m.Find(ctx, typ, id)
			switch {
			case polystore.IsAbsent(err):
				m.logger.DebugContext(ctx, "entity not found", slog.String("type", typ), slog.String("id", id))
			case err != nil:
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s %s: %w", typ, id, err))
				mu.Unlock()
			default:
				results[i] = obj
			}
			return nil
		})
	}
	_ = g.Wait()
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return slices.DeleteFunc(results, func(v any) bool { return v == nil }), nil
}

// FindByQuery runs query against the search index of typ's client and
// resolves every matched entity within a single traversal.
func (m *Manager) FindByQuery(ctx context.Context, typ, query string) ([]any, error) {
	client, err := m.Client(typ)
	if err != nil {
		return nil, err
	}
	hits, err := client.Index().Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("persist: search %s: %w", typ, err)
	}
	ents, err := client.FindAll(ctx, typ, batch.Values(hits))
	if err != nil {
		return nil, err
	}
	tr := resolver.NewTraversal()
	out := make([]any, 0, len(ents))
	for _, ent := range ents {
		obj, err := m.resolver.ResolveWithin(ctx, tr, typ, ent)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

// Close releases the resources opened for the manager's clients.
func (m *Manager) Close() error {
	var errs []error
	for _, c := range slices.Backward(m.closers) {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// load reads the root row of typ/id and makes sure it carries its id.
func (m *Manager) load(ctx context.Context, typ, id string) (store.Entity, error) {
	client, err := m.Client(typ)
	if err != nil {
		return store.Entity{}, err
	}
	ent, err := client.Find(ctx, typ, id)
	if err != nil {
		return store.Entity{}, err
	}
	if ent.IsZero() {
		return store.Entity{}, polystore.NewNotFoundErrorWithID(typ, id)
	}
	if ent.Form() == store.Raw {
		meta, err := m.Metadata(typ)
		if err != nil {
			return store.Entity{}, err
		}
		rid, err := meta.IDOf(ent.Object())
		if err != nil {
			return store.Entity{}, err
		}
		ent = store.WrapEntity(ent.Object(), rid, ent.Relations())
	}
	return ent, nil
}

var _ resolver.Finder = (*Manager)(nil)
