package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/metadata"
	"github.com/syssam/polystore/schema/relation"
	"github.com/syssam/polystore/search"
	"github.com/syssam/polystore/store"
	"github.com/syssam/polystore/store/batch"
)

// Finder is the entity facade shared by all store clients. FindEntity
// returns the resolved object for (typ, id) within tr, reusing the
// instance tr already holds for it; a missing row is a NotFoundError.
type Finder interface {
	FindEntity(ctx context.Context, tr *Traversal, typ, id string) (any, error)
	Metadata(typ string) (*metadata.Entity, error)
	Client(typ string) (store.Client, error)
}

// Resolver populates the relationships of entity objects.
type Resolver struct {
	finder   Finder
	logger   *slog.Logger
	maxDepth int
	cycles   CyclePolicy
	metrics  *Metrics

	strategies map[relation.Multiplicity]strategy
}

// strategy resolves one relationship of the entity in s.
type strategy func(ctx context.Context, s *step, d *relation.Descriptor) error

// step is the resolution of one entity.
type step struct {
	tr     *Traversal
	meta   *metadata.Entity
	ent    store.Entity
	obj    any
	id     string
	client store.Client
}

// New returns a resolver fetching related entities through finder.
func New(finder Finder, opts ...Option) *Resolver {
	r := &Resolver{
		finder:   finder,
		logger:   slog.Default(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.strategies = map[relation.Multiplicity]strategy{
		relation.OneToOne:   r.toOne,
		relation.ManyToOne:  r.toOne,
		relation.OneToMany:  r.toMany,
		relation.ManyToMany: r.unmapped,
	}
	return r
}

// Resolve populates the relationships of ent, an entity of type typ, in a
// new traversal and returns the domain object.
func (r *Resolver) Resolve(ctx context.Context, typ string, ent store.Entity) (obj any, err error) {
	tr := NewTraversal()
	start := time.Now()
	r.logger.DebugContext(ctx, "traversal started",
		slog.String("traversal", tr.ID), slog.String("type", typ), slog.String("id", ent.ID()))
	defer func() {
		r.metrics.recordTraversal(start, err)
		r.logger.DebugContext(ctx, "traversal finished",
			slog.String("traversal", tr.ID),
			slog.Int("entities", tr.Len()),
			slog.Int("cache_hits", tr.Cache().Hits()),
			slog.Int("depth", tr.MaxDepth()),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err))
	}()
	return r.ResolveWithin(ctx, tr, typ, ent)
}

// ResolveWithin populates the relationships of ent within an existing
// traversal. If tr already holds an instance of the same entity, that
// instance is returned and ent is discarded.
func (r *Resolver) ResolveWithin(ctx context.Context, tr *Traversal, typ string, ent store.Entity) (any, error) {
	if ent.IsZero() {
		return nil, nil
	}
	meta, err := r.finder.Metadata(typ)
	if err != nil {
		return nil, lookupError(typ, "", err)
	}
	id := ent.ID()
	if ent.Form() == store.Raw || id == "" {
		if id, err = meta.IDOf(ent.Object()); err != nil {
			return nil, r.fieldError(ctx, tr, typ, "", meta.ID.Name(), err)
		}
	}
	if v := tr.visit(typ, id); v != nil {
		if v.resolving && r.cycles == FailOnCycle {
			return nil, polystore.NewResolutionError(polystore.KindCycle, typ, "",
				fmt.Errorf("%w: %s %s", polystore.ErrCycle, typ, id))
		}
		return v.obj, nil
	}
	if r.maxDepth > 0 && tr.depth >= r.maxDepth {
		return nil, polystore.NewResolutionError(polystore.KindDepth, typ, "",
			fmt.Errorf("%w: %d", polystore.ErrMaxDepth, r.maxDepth))
	}
	client, err := r.finder.Client(typ)
	if err != nil {
		return nil, lookupError(typ, "", err)
	}
	s := &step{tr: tr, meta: meta, ent: ent, obj: ent.Object(), id: id, client: client}
	v := tr.enter(typ, id, s.obj)
	defer tr.leave(v)

	for _, d := range meta.Relations {
		if ctx.Err() != nil {
			return nil, lookupError(typ, d.Name, ctx.Err())
		}
		if d.ViaJoinTable() {
			err = r.joinTable(ctx, s, d)
		} else {
			err = r.strategies[d.Multiplicity](ctx, s, d)
		}
		if err != nil {
			return nil, err
		}
	}
	return s.obj, nil
}

// toOne resolves one-to-one and many-to-one relationships from the
// foreign key stored on the owner row.
func (r *Resolver) toOne(ctx context.Context, s *step, d *relation.Descriptor) error {
	fk, ok := s.ent.RelationString(d.MappedName())
	if !ok {
		return nil
	}
	key := polystore.CacheKey{Value: fk, Type: d.Target}
	child, hit := s.tr.cache.Get(key)
	r.metrics.recordCache(hit)
	if !hit {
		var err error
		if child, err = r.fetchOne(ctx, s, d, fk); err != nil {
			return err
		}
		s.tr.cache.Put(key, child)
	}
	if child == nil {
		r.logger.DebugContext(ctx, "related entity not found",
			slog.String("traversal", s.tr.ID), slog.String("type", d.Target), slog.String("id", fk))
		return nil
	}
	if err := r.link(ctx, s, d, child); err != nil {
		return err
	}
	return r.assign(ctx, s, d, []any{child})
}

// fetchOne returns the target of a to-one relationship, or nil if the
// row does not exist. Targets of the owner's own type are read straight
// from the store and not resolved further.
func (r *Resolver) fetchOne(ctx context.Context, s *step, d *relation.Descriptor, id string) (any, error) {
	if d.Target != s.meta.Name {
		r.metrics.recordFetch(StrategyFinder)
		child, err := r.finder.FindEntity(ctx, s.tr, d.Target, id)
		if polystore.IsAbsent(err) {
			return nil, nil
		}
		if err != nil {
			return nil, lookupError(s.meta.Name, d.Name, err)
		}
		return child, nil
	}
	if obj, ok := s.tr.Lookup(d.Target, id); ok {
		return obj, nil
	}
	r.metrics.recordFetch(StrategyFind)
	ent, err := s.client.Find(ctx, d.Target, id)
	if polystore.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, lookupError(s.meta.Name, d.Name, err)
	}
	return ent.Object(), nil
}

// toMany resolves one-to-many relationships: the children are looked up
// by the owner's id and, unless they share the owner's type, resolved
// recursively.
func (r *Resolver) toMany(ctx context.Context, s *step, d *relation.Descriptor) error {
	key := polystore.CacheKey{Value: s.id, Type: d.Target, Scope: s.meta.Name + "." + d.Name}
	cached, hit := s.tr.cache.Get(key)
	r.metrics.recordCache(hit)
	children, _ := cached.([]any)
	if !hit {
		target, err := r.finder.Metadata(d.Target)
		if err != nil {
			return lookupError(s.meta.Name, d.Name, err)
		}
		if children, err = r.fetchMany(ctx, s, d, target); err != nil {
			return err
		}
		for _, child := range children {
			if err := r.link(ctx, s, d, child); err != nil {
				return err
			}
		}
		s.tr.cache.Put(key, children)
	}
	if len(children) == 0 {
		return nil
	}
	return r.assign(ctx, s, d, children)
}

func (r *Resolver) fetchMany(ctx context.Context, s *step, d *relation.Descriptor, target *metadata.Entity) ([]any, error) {
	client, err := r.finder.Client(d.Target)
	if err != nil {
		return nil, lookupError(s.meta.Name, d.Name, err)
	}
	var ents []store.Entity
	switch {
	case store.SupportsSecondaryIndex(client):
		r.metrics.recordFetch(StrategySecondaryIndex)
		ents, err = client.FindByRelation(ctx, r.lookupColumn(s, d, target), s.id, d.Target)
	case d.JoinedByPrimaryKey:
		r.metrics.recordFetch(StrategySharedKey)
		if d.Target != s.meta.Name {
			child, err := r.finder.FindEntity(ctx, s.tr, d.Target, s.id)
			if polystore.IsAbsent(err) {
				return nil, nil
			}
			if err != nil {
				return nil, lookupError(s.meta.Name, d.Name, err)
			}
			return []any{child}, nil
		}
		var ent store.Entity
		ent, err = client.Find(ctx, d.Target, s.id)
		if polystore.IsNotFound(err) {
			return nil, nil
		}
		ents = []store.Entity{ent}
	default:
		r.metrics.recordFetch(StrategySearchIndex)
		q := search.BuildQuery(search.ParentClassField, search.TypeName(s.meta.Name),
			search.ParentIDField, s.id, search.TypeName(d.Target))
		var hits map[string]string
		if hits, err = client.Index().Search(ctx, q); err == nil {
			ents, err = client.FindAll(ctx, d.Target, batch.Values(hits))
		}
	}
	if err != nil {
		return nil, lookupError(s.meta.Name, d.Name, err)
	}

	children := make([]any, 0, len(ents))
	for _, ent := range ents {
		if d.Target == s.meta.Name {
			obj, _ := s.tr.canonical(d.Target, ent.ID(), ent.Object())
			children = append(children, obj)
			continue
		}
		obj, err := r.ResolveWithin(ctx, s.tr, d.Target, ent)
		if err != nil {
			return nil, err
		}
		children = append(children, obj)
	}
	return children, nil
}

// lookupColumn returns the column holding the owner's id on the child
// rows: the inverse relation's foreign key when the child points back
// with a single reference, the owner's id column when it points back
// with a collection, and the relation's own mapped name otherwise.
func (r *Resolver) lookupColumn(s *step, d *relation.Descriptor, target *metadata.Entity) string {
	if inv := target.Relation(d.Inverse); d.Inverse != "" && inv != nil {
		if !inv.Multiplicity.ToMany() {
			return inv.MappedName()
		}
		return s.meta.IDColumn
	}
	return d.MappedName()
}

// unmapped handles many-to-many relationships declared without a join
// table, which have no physical representation to read.
func (r *Resolver) unmapped(ctx context.Context, s *step, d *relation.Descriptor) error {
	r.logger.DebugContext(ctx, "skipping many-to-many relationship without join table",
		slog.String("traversal", s.tr.ID), slog.String("type", s.meta.Name), slog.String("relation", d.Name))
	return nil
}

// assign writes values onto the owning field of d.
func (r *Resolver) assign(ctx context.Context, s *step, d *relation.Descriptor, values []any) error {
	if err := d.Field.Set(s.obj, values); err != nil {
		return r.fieldError(ctx, s.tr, s.meta.Name, d.Name, d.Field.Name(), err)
	}
	return nil
}

// fieldError logs a field-access failure and wraps it.
func (r *Resolver) fieldError(ctx context.Context, tr *Traversal, typ, rel, fieldName string, err error) error {
	r.logger.ErrorContext(ctx, "relationship field access failed",
		slog.String("traversal", tr.ID),
		slog.String("type", typ),
		slog.String("field", fieldName),
		slog.String("relation", rel),
		slog.Any("error", err))
	return polystore.NewResolutionError(polystore.KindFieldAccess, typ, rel, err)
}

// lookupError wraps a store or index failure, leaving resolution errors
// raised deeper in the traversal untouched.
func lookupError(typ, rel string, err error) error {
	if polystore.IsResolutionError(err) {
		return err
	}
	return polystore.NewResolutionError(polystore.KindLookup, typ, rel, err)
}
