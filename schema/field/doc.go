// Package field provides typed accessors for entity struct fields.
//
// Accessors are resolved once, when an entity type is registered in the
// metadata catalog, and reused by every traversal:
//
//	orders, _ := field.Of(&Customer{}, "Orders")  // []*Order  -> List
//	tags, _ := field.Of(&Post{}, "Tags")          // map[*Tag]struct{} -> Set
//	owner, _ := field.Of(&Order{}, "Customer")    // *Customer -> Single
//
//	_ = orders.Set(c, []any{o1, o2})
//	_ = owner.Append(o1, c) // Single: same as Set
//
// Entity types that keep relationships behind methods can supply closures
// with Func instead.
//
// Scalar accessors cover plain column fields and convert driver values
// (int64, []byte, float64, RFC 3339 strings) to the declared Go type.
package field
