package resolver

import (
	"context"
	"log/slog"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/metadata"
	"github.com/syssam/polystore/schema/relation"
	"github.com/syssam/polystore/search"
	"github.com/syssam/polystore/store"
	"github.com/syssam/polystore/store/batch"
)

// link writes the back-reference from child to the owner of s when the
// target of d declares an inverse field.
//
// A single-valued inverse simply points at the owner. A collection-valued
// inverse receives every parent of the child, not only the owner, so the
// parent set is looked up again: through the join table, the secondary
// index or the search index, depending on the owner store.
func (r *Resolver) link(ctx context.Context, s *step, d *relation.Descriptor, child any) error {
	if d.Inverse == "" || child == nil {
		return nil
	}
	target, err := r.finder.Metadata(d.Target)
	if err != nil {
		return lookupError(s.meta.Name, d.Name, err)
	}
	inv := target.Relation(d.Inverse)
	if inv == nil {
		return nil
	}
	// A self-referential relation that is its own inverse was already
	// populated when the child was resolved through the finder.
	if d.Target == s.meta.Name && inv.Name == d.Name {
		return nil
	}
	r.metrics.recordLink(inv.Multiplicity.String())

	if !inv.Multiplicity.ToMany() {
		if err := inv.Field.Set(child, []any{s.obj}); err != nil {
			return r.fieldError(ctx, s.tr, d.Target, inv.Name, inv.Field.Name(), err)
		}
		return nil
	}

	childID, err := target.IDOf(child)
	if err != nil {
		return r.fieldError(ctx, s.tr, d.Target, inv.Name, target.ID.Name(), err)
	}
	parents, err := r.parents(ctx, s, d, inv, target, childID)
	if err != nil {
		return err
	}
	hasOwner := false
	for _, p := range parents {
		if p.obj == s.obj {
			hasOwner = true
		}
		// Parents already reached by the traversal own their field; only
		// detached copies get the child attached.
		if p.known || inv.Multiplicity == relation.ManyToMany {
			continue
		}
		if err := d.Field.Append(p.obj, child); err != nil {
			return r.fieldError(ctx, s.tr, s.meta.Name, d.Name, d.Field.Name(), err)
		}
	}
	values := make([]any, 0, len(parents)+1)
	for _, p := range parents {
		values = append(values, p.obj)
	}
	if !hasOwner {
		values = append(values, s.obj)
	}
	if err := inv.Field.Set(child, values); err != nil {
		return r.fieldError(ctx, s.tr, d.Target, inv.Name, inv.Field.Name(), err)
	}
	return nil
}

// parent is an owner-side object found by the linker. known marks
// instances taken from the traversal's identity map.
type parent struct {
	obj   any
	known bool
}

// parents returns every entity of the owner's type related to the child
// childID through d.
func (r *Resolver) parents(ctx context.Context, s *step, d, inv *relation.Descriptor, target *metadata.Entity, childID string) ([]parent, error) {
	client := s.client
	if store.SupportsSecondaryIndex(client) {
		if d.ViaJoinTable() {
			return r.joinTableParents(ctx, s, d, childID)
		}
		r.metrics.recordFetch(StrategySecondaryIndex)
		ents, err := client.FindByRelation(ctx, d.MappedName(), childID, s.meta.Name)
		if err != nil {
			return nil, lookupError(s.meta.Name, d.Name, err)
		}
		return r.known(s, ents), nil
	}

	r.metrics.recordFetch(StrategySearchIndex)
	var (
		hits map[string]string
		err  error
	)
	if inv.Multiplicity == relation.OneToMany {
		q := search.BuildQuery(search.ParentClassField, search.TypeName(target.Name),
			search.ParentIDField, childID, search.TypeName(s.meta.Name))
		hits, err = client.Index().Search(ctx, q)
	} else {
		q := search.BuildQuery(search.ParentClassField, search.TypeName(s.meta.Name),
			search.EntityIDField, childID, search.TypeName(target.Name))
		hits, err = client.Index().FetchRelation(ctx, q)
	}
	if err != nil {
		return nil, lookupError(s.meta.Name, d.Name, err)
	}
	var out []parent
	for _, id := range batch.Values(hits) {
		if obj, ok := s.tr.canonical(s.meta.Name, id, nil); ok {
			out = append(out, parent{obj: obj, known: true})
			continue
		}
		ent, err := client.Find(ctx, s.meta.Name, id)
		if polystore.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, lookupError(s.meta.Name, d.Name, err)
		}
		out = append(out, parent{obj: ent.Object()})
	}
	return out, nil
}

// joinTableParents enumerates the owners linked to childID in the join
// table of d. Owners not yet reached by the traversal get d populated
// with their own children from the same table.
func (r *Resolver) joinTableParents(ctx context.Context, s *step, d *relation.Descriptor, childID string) ([]parent, error) {
	r.metrics.recordFetch(StrategyJoinTable)
	jt := d.JoinTable
	client := s.client
	keys, err := client.FindIDsByColumn(ctx, jt.Name, jt.JoinColumn, jt.InverseJoinColumn, childID, s.meta.Name)
	if err != nil {
		return nil, lookupError(s.meta.Name, d.Name, err)
	}
	targetClient, err := r.finder.Client(d.Target)
	if err != nil {
		return nil, lookupError(s.meta.Name, d.Name, err)
	}
	var out []parent
	for _, key := range keys {
		if obj, ok := s.tr.canonical(s.meta.Name, key, nil); ok {
			out = append(out, parent{obj: obj, known: true})
			continue
		}
		ent, err := client.Find(ctx, s.meta.Name, key)
		if polystore.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, lookupError(s.meta.Name, d.Name, err)
		}
		siblingIDs, err := client.ColumnsByID(ctx, jt.Name, jt.JoinColumn, jt.InverseJoinColumn, key)
		if err != nil {
			return nil, lookupError(s.meta.Name, d.Name, err)
		}
		siblings, err := targetClient.FindAll(ctx, d.Target, siblingIDs)
		if err != nil {
			return nil, lookupError(s.meta.Name, d.Name, err)
		}
		if len(siblings) == 0 {
			continue
		}
		values := make([]any, len(siblings))
		for i, sib := range siblings {
			values[i], _ = s.tr.canonical(d.Target, sib.ID(), sib.Object())
		}
		obj := ent.Object()
		if err := d.Field.Set(obj, values); err != nil {
			return nil, r.fieldError(ctx, s.tr, s.meta.Name, d.Name, d.Field.Name(), err)
		}
		r.logger.DebugContext(ctx, "linked join-table owner",
			slog.String("traversal", s.tr.ID), slog.String("type", s.meta.Name), slog.String("id", key))
		out = append(out, parent{obj: obj})
	}
	return out, nil
}

func (r *Resolver) known(s *step, ents []store.Entity) []parent {
	out := make([]parent, 0, len(ents))
	for _, ent := range ents {
		obj, ok := s.tr.canonical(s.meta.Name, ent.ID(), ent.Object())
		out = append(out, parent{obj: obj, known: ok})
	}
	return out
}
