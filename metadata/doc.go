// Package metadata describes entity types and their relationships.
//
// A Catalog is built once from Schema declarations, either in Go or from a
// YAML file, and is read-only afterwards. Building binds every relationship
// to a field accessor, fills default table, column and join-table names
// (snake_case, pluralized tables) and infers inverse relations.
//
//	catalog, err := metadata.New([]metadata.Schema{
//	    {Proto: &Customer{}, Relations: []*relation.Builder{
//	        relation.To("Orders", "Order").Ref("Customer"),
//	    }},
//	    {Proto: &Order{}, Relations: []*relation.Builder{
//	        relation.From("Customer", "Customer").Ref("Orders").Column("customer_id"),
//	    }},
//	})
//
// Watch keeps a catalog file loaded and swaps in a rebuilt catalog when
// the file changes.
package metadata
