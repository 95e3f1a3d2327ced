// Package batch provides key ordering and chunking helpers for bulk
// lookups.
//
// Backends answer bulk reads in whatever order their storage yields rows.
// Callers expect results in the order of the requested keys:
//
//	rows, _ := db.QueryRows(ctx, query, ids...)
//	ordered := batch.Present(ids, rows, func(r Row) string { return r.ID })
//
// Missing keys are dropped by Present and reported by OrderByKeys.
package batch

import (
	"cmp"
	"slices"

	"github.com/syssam/polystore"
)

// KeyFunc extracts a key from a value.
type KeyFunc[K comparable, V any] func(V) K

// OrderByKeys reorders values to match the order of keys. Missing values
// are zero with a corresponding NotFoundError.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}

	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = polystore.NewNotFoundErrorWithID("", key)
		}
	}
	return result, errs
}

// Present reorders values to match the order of keys and drops keys with
// no value.
func Present[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) []V {
	result, errs := OrderByKeys(keys, values, keyFn)
	out := result[:0]
	for i, v := range result {
		if errs[i] == nil {
			out = append(out, v)
		}
	}
	return out
}

// Unique returns the sorted distinct keys. The input is not modified.
func Unique[K cmp.Ordered](keys []K) []K {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

// Values returns the sorted distinct values of m.
func Values[K comparable, V cmp.Ordered](m map[K]V) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return Unique(out)
}

// Chunk splits keys into consecutive slices of at most size elements.
// A non-positive size yields a single chunk.
func Chunk[K any](keys []K, size int) [][]K {
	if len(keys) == 0 {
		return nil
	}
	if size <= 0 || size >= len(keys) {
		return [][]K{keys}
	}
	out := make([][]K, 0, (len(keys)+size-1)/size)
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		out = append(out, keys[start:end])
	}
	return out
}
