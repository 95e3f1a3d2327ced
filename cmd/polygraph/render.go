package main

import (
	"cmp"
	"slices"

	"github.com/syssam/polystore/metadata"
	"github.com/syssam/polystore/schema/field"
)

// renderer turns a resolved object graph into a JSON-encodable tree. An
// entity reached a second time is written as {"$ref": "Type/id"}.
type renderer struct {
	catalog *metadata.Catalog
	seen    map[string]bool
}

func newRenderer(c *metadata.Catalog) *renderer {
	return &renderer{catalog: c, seen: make(map[string]bool)}
}

func (r *renderer) render(obj any) (any, error) {
	e, err := r.catalog.EntityOf(obj)
	if err != nil {
		return nil, err
	}
	id, err := e.IDOf(obj)
	if err != nil {
		return nil, err
	}
	ref := e.Name + "/" + id
	if r.seen[ref] {
		return map[string]any{"$ref": ref}, nil
	}
	r.seen[ref] = true

	out, err := e.Values(obj)
	if err != nil {
		return nil, err
	}
	out["$type"] = e.Name
	for _, d := range e.Relations {
		values, err := d.Field.Get(obj)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			continue
		}
		if d.Field.Kind() == field.Set {
			r.sortByID(values)
		}
		items := make([]any, 0, len(values))
		for _, v := range values {
			item, err := r.render(v)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		if d.Field.Kind() == field.Single {
			out[d.Name] = items[0]
		} else {
			out[d.Name] = items
		}
	}
	return out, nil
}

// sortByID orders set members, which have no order of their own.
func (r *renderer) sortByID(values []any) {
	id := func(v any) string {
		e, err := r.catalog.EntityOf(v)
		if err != nil {
			return ""
		}
		s, _ := e.IDOf(v)
		return s
	}
	slices.SortFunc(values, func(a, b any) int { return cmp.Compare(id(a), id(b)) })
}
