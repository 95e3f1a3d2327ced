package metadata

import (
	"fmt"
	"reflect"

	"github.com/syssam/polystore/schema/field"
	"github.com/syssam/polystore/schema/relation"
)

// Column maps a stored column to a scalar struct field.
type Column struct {
	Name  string
	Field *field.Scalar
}

// Entity describes one registered entity type. Entities are immutable
// once their catalog is built.
type Entity struct {
	// Name is the catalog type name.
	Name string
	// Unit names the persistence unit (store client) holding the type.
	Unit string
	// Table is the physical table, bucket prefix or collection.
	Table string
	// IDColumn is the primary-key column.
	IDColumn string
	// ID reads and writes the primary key.
	ID *field.Scalar
	// Columns lists the stored scalar columns, primary key first.
	Columns []Column
	// Relations lists the relationship descriptors in declaration order.
	Relations []*relation.Descriptor

	typ       reflect.Type
	relations map[string]*relation.Descriptor
}

// Type returns the struct type of the entity.
func (e *Entity) Type() reflect.Type { return e.typ }

// New returns a pointer to a new zero value of the entity struct.
func (e *Entity) New() any { return reflect.New(e.typ).Interface() }

// Owns reports whether obj is a pointer to the entity struct.
func (e *Entity) Owns(obj any) bool {
	t := reflect.TypeOf(obj)
	return t != nil && t.Kind() == reflect.Pointer && t.Elem() == e.typ
}

// Relation returns the named relationship, or nil.
func (e *Entity) Relation(name string) *relation.Descriptor {
	return e.relations[name]
}

// IDOf returns the primary key of obj formatted as a string.
func (e *Entity) IDOf(obj any) (string, error) {
	v, err := e.ID.Get(obj)
	if err != nil {
		return "", fmt.Errorf("reading %s id: %w", e.Name, err)
	}
	return field.String(v), nil
}

// SetID assigns the primary key of obj, converting from its string form.
func (e *Entity) SetID(obj any, id string) error {
	if err := e.ID.Set(obj, id); err != nil {
		return fmt.Errorf("writing %s id: %w", e.Name, err)
	}
	return nil
}

// Column returns the named column.
func (e *Entity) Column(name string) (Column, bool) {
	for _, c := range e.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the stored column names, primary key first.
func (e *Entity) ColumnNames() []string {
	names := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		names[i] = c.Name
	}
	return names
}

// Values reads every stored column of obj.
func (e *Entity) Values(obj any) (map[string]any, error) {
	out := make(map[string]any, len(e.Columns))
	for _, c := range e.Columns {
		v, err := c.Field.Get(obj)
		if err != nil {
			return nil, err
		}
		out[c.Name] = v
	}
	return out, nil
}

// Decode returns a new entity object populated from column values.
// Unknown columns are ignored.
func (e *Entity) Decode(values map[string]any) (any, error) {
	obj := e.New()
	for _, c := range e.Columns {
		v, ok := values[c.Name]
		if !ok {
			continue
		}
		if err := c.Field.Set(obj, v); err != nil {
			return nil, fmt.Errorf("decoding %s.%s: %w", e.Name, c.Name, err)
		}
	}
	return obj, nil
}

// String returns the type name.
func (e *Entity) String() string { return e.Name }
