package store

import (
	"github.com/syssam/polystore/metadata"
	"github.com/syssam/polystore/schema/field"
	"github.com/syssam/polystore/search"
)

// Documents returns the search documents describing a stored row: one per
// to-one relation whose foreign key is present on the row.
func Documents(c *metadata.Catalog, typ, id string, relations map[string]any) []search.Document {
	e, err := c.Entity(typ)
	if err != nil {
		return nil
	}
	var docs []search.Document
	for _, d := range e.Relations {
		if d.Multiplicity.ToMany() || d.ViaJoinTable() {
			continue
		}
		v, ok := relations[d.MappedName()]
		if !ok || v == nil {
			continue
		}
		if parent := field.String(v); parent != "" {
			docs = append(docs, search.NewDocument(typ, id, d.Target, parent))
		}
	}
	return docs
}

// LinkDocuments returns the search documents describing one join-table
// row, for every relation mediated by table.
func LinkDocuments(c *metadata.Catalog, table, ownColumn, otherColumn, own, other string) []search.Document {
	var docs []search.Document
	for _, e := range c.Entities() {
		for _, d := range e.Relations {
			jt := d.JoinTable
			if jt == nil || jt.Name != table {
				continue
			}
			switch {
			case jt.JoinColumn == ownColumn && jt.InverseJoinColumn == otherColumn:
				docs = append(docs, search.NewDocument(d.Target, other, e.Name, own))
			case jt.JoinColumn == otherColumn && jt.InverseJoinColumn == ownColumn:
				docs = append(docs, search.NewDocument(d.Target, own, e.Name, other))
			}
		}
	}
	return docs
}
