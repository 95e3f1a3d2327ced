// Package resolver populates the relationships of entity objects read from
// heterogeneous stores.
//
// A Resolver walks the relations declared in the catalog, starting at a
// root entity, and attaches the related objects it finds:
//
//   - one-to-one and many-to-one relations read the foreign key stored with
//     the owner row and fetch the target through the Finder;
//   - one-to-many relations query the child rows by the owner's id, either
//     through the store's secondary index or through its search index;
//   - relations routed through a join table read the association rows
//     first and fetch each referenced entity.
//
// After each child is attached, the inverse field on the child is written
// so the graph is navigable in both directions.
//
// Every call to Resolve starts a Traversal. The traversal owns the
// per-call dedup cache and an identity map, so each (type, id) pair is
// fetched at most once and appears in the result as a single instance.
//
//	r := resolver.New(manager, resolver.WithMaxDepth(16))
//	order, err := r.Resolve(ctx, "Order", ent)
package resolver
