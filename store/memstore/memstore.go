// Package memstore provides an in-memory store client.
//
// The store keeps rows per entity type and join-table rows per table.
// Whether it serves relation lookups natively is configurable, so the same
// data can exercise both the secondary-index and the search-index paths:
//
//	s := memstore.New(catalog, memstore.WithSecondaryIndex(false))
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/metadata"
	"github.com/syssam/polystore/schema/field"
	"github.com/syssam/polystore/search"
	"github.com/syssam/polystore/store"
)

type row struct {
	obj       any
	relations map[string]any
}

// Stats counts the reads served by a Store.
type Stats struct {
	Finds           int64
	FindAlls        int64
	RelationQueries int64
	ColumnQueries   int64
}

// Store is an in-memory store.Client. It is safe for concurrent use.
// Reads return shallow copies, so every read yields a distinct instance,
// as a real backend would.
type Store struct {
	catalog   metadata.Provider
	secondary bool
	index     *search.MemIndex

	mu    sync.RWMutex
	rows  map[string]map[string]row
	order map[string][]string
	joins map[string][]map[string]string

	finds, findAlls, relQueries, colQueries atomic.Int64
}

// Option configures a Store.
type Option func(*Store)

// WithSecondaryIndex sets whether FindByRelation is served natively.
// It is enabled by default.
func WithSecondaryIndex(enabled bool) Option {
	return func(s *Store) { s.secondary = enabled }
}

// WithIndex sets the search index maintained by the store.
func WithIndex(ix *search.MemIndex) Option {
	return func(s *Store) { s.index = ix }
}

// New returns an empty store for the entities of catalog.
func New(catalog metadata.Provider, opts ...Option) *Store {
	s := &Store{
		catalog:   catalog,
		secondary: true,
		rows:      make(map[string]map[string]row),
		order:     make(map[string][]string),
		joins:     make(map[string][]map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.index == nil {
		s.index = search.NewMemIndex()
	}
	return s
}

// SupportsSecondaryIndex implements store.IndexCapable.
func (s *Store) SupportsSecondaryIndex() bool { return s.secondary }

// Index implements store.Client.
func (s *Store) Index() search.Index { return s.index }

// SearchIndex returns the concrete search index.
func (s *Store) SearchIndex() *search.MemIndex { return s.index }

// Stats returns the read counters.
func (s *Store) Stats() Stats {
	return Stats{
		Finds:           s.finds.Load(),
		FindAlls:        s.findAlls.Load(),
		RelationQueries: s.relQueries.Load(),
		ColumnQueries:   s.colQueries.Load(),
	}
}

// Put implements store.Writer.
func (s *Store) Put(ctx context.Context, typ, id string, obj any, relations map[string]any) error {
	if obj == nil {
		return fmt.Errorf("memstore: nil %s object", typ)
	}
	s.mu.Lock()
	if s.rows[typ] == nil {
		s.rows[typ] = make(map[string]row)
	}
	if _, exists := s.rows[typ][id]; !exists {
		s.order[typ] = append(s.order[typ], id)
	}
	rel := make(map[string]any, len(relations))
	for k, v := range relations {
		rel[k] = v
	}
	s.rows[typ][id] = row{obj: clone(obj), relations: rel}
	s.mu.Unlock()
	return s.index.Add(ctx, store.Documents(s.catalog.Catalog(), typ, id, relations)...)
}

// Link implements store.Writer.
func (s *Store) Link(ctx context.Context, table, ownColumn, otherColumn, own, other string) error {
	s.mu.Lock()
	s.joins[table] = append(s.joins[table], map[string]string{ownColumn: own, otherColumn: other})
	s.mu.Unlock()
	return s.index.Add(ctx, store.LinkDocuments(s.catalog.Catalog(), table, ownColumn, otherColumn, own, other)...)
}

// Find implements store.Client.
func (s *Store) Find(_ context.Context, typ, id string) (store.Entity, error) {
	s.finds.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[typ][id]
	if !ok {
		return store.Entity{}, polystore.NewNotFoundErrorWithID(typ, id)
	}
	return s.entity(r, id), nil
}

// FindAll implements store.Client.
func (s *Store) FindAll(_ context.Context, typ string, ids []string) ([]store.Entity, error) {
	s.findAlls.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Entity, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.rows[typ][id]; ok {
			out = append(out, s.entity(r, id))
		}
	}
	return out, nil
}

// FindByRelation implements store.Client.
func (s *Store) FindByRelation(_ context.Context, relation, value, typ string) ([]store.Entity, error) {
	if !s.secondary {
		return nil, fmt.Errorf("memstore: find %s by %s: %w", typ, relation, polystore.ErrUnsupported)
	}
	s.relQueries.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Entity
	for _, id := range s.order[typ] {
		r := s.rows[typ][id]
		if v, ok := r.relations[relation]; ok && field.String(v) == value {
			out = append(out, s.entity(r, id))
		}
	}
	return out, nil
}

// FindIDsByColumn implements store.Client.
func (s *Store) FindIDsByColumn(_ context.Context, table, keyColumn, column, value, _ string) ([]string, error) {
	s.colQueries.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, jr := range s.joins[table] {
		if jr[column] == value {
			out = append(out, jr[keyColumn])
		}
	}
	return out, nil
}

// ColumnsByID implements store.Client.
func (s *Store) ColumnsByID(_ context.Context, table, ownColumn, otherColumn, id string) ([]string, error) {
	s.colQueries.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, jr := range s.joins[table] {
		if jr[ownColumn] == id {
			out = append(out, jr[otherColumn])
		}
	}
	return out, nil
}

func (s *Store) entity(r row, id string) store.Entity {
	rel := make(map[string]any, len(r.relations))
	for k, v := range r.relations {
		rel[k] = v
	}
	return store.WrapEntity(clone(r.obj), id, rel)
}

// clone returns a shallow copy of a struct pointer; other values are
// returned as is.
func clone(obj any) any {
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return obj
	}
	cp := reflect.New(rv.Elem().Type())
	cp.Elem().Set(rv.Elem())
	return cp.Interface()
}

var (
	_ store.Client       = (*Store)(nil)
	_ store.IndexCapable = (*Store)(nil)
	_ store.Writer       = (*Store)(nil)
)
