package resolver

import (
	"context"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/schema/relation"
)

// joinTable resolves a relationship whose keys live in an association
// table: the target ids are read from the table by the owner's id, then
// each target is resolved through the finder.
func (r *Resolver) joinTable(ctx context.Context, s *step, d *relation.Descriptor) error {
	jt := d.JoinTable
	r.metrics.recordFetch(StrategyJoinTable)
	keys, err := s.client.ColumnsByID(ctx, jt.Name, jt.JoinColumn, jt.InverseJoinColumn, s.id)
	if err != nil {
		return lookupError(s.meta.Name, d.Name, err)
	}
	children := make([]any, 0, len(keys))
	for _, fk := range keys {
		key := polystore.CacheKey{Value: fk, Type: d.Target}
		child, hit := s.tr.cache.Get(key)
		r.metrics.recordCache(hit)
		if !hit {
			child, err = r.finder.FindEntity(ctx, s.tr, d.Target, fk)
			if err != nil && !polystore.IsAbsent(err) {
				return lookupError(s.meta.Name, d.Name, err)
			}
			s.tr.cache.Put(key, child)
		}
		if child == nil {
			continue
		}
		if err := r.link(ctx, s, d, child); err != nil {
			return err
		}
		children = append(children, child)
	}
	if len(children) == 0 {
		return nil
	}
	return r.assign(ctx, s, d, children)
}
