// Package polystore resolves object graphs stored across heterogeneous
// backends (key-value, SQL/column-family and document stores backed by a
// search index).
//
// Given a root entity fetched by primary key, the resolver in package
// resolver walks every relationship declared in the metadata catalog,
// selects a fetch strategy per relationship and backend capability, and
// stitches inverse references on the related objects.
//
// # Packages
//
//   - schema/relation: relationship descriptors and builders
//   - schema/field: typed field accessors resolved at catalog load time
//   - metadata: the entity catalog (Go registration or YAML)
//   - store: store client contract and the wrapped/raw entity union
//   - store/memstore, store/sqlstore, store/kvstore: client implementations
//   - search: query builder and an in-memory inverted index
//   - resolver: the graph traversal
//   - persist: the manager facade used by applications
//
// # Errors
//
// Every traversal failure is returned as a *ResolutionError:
//
//	obj, err := mgr.Find(ctx, "Order", "42")
//	if errors.Is(err, polystore.ErrResolution) {
//	    log.Printf("kind=%s", polystore.ResolutionKind(err))
//	}
//
// A missing foreign-key value is not an error; the relationship field is
// left at its zero value.
package polystore
