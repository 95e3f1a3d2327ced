package store

import (
	"maps"

	"github.com/syssam/polystore/schema/field"
)

// Form tells how a store client returned an entity.
type Form uint8

const (
	// Raw is a bare domain object. Its relations are either already
	// materialized on the object or not stored inline.
	Raw Form = iota
	// Wrapped is a domain object read off a physical row together with the
	// row's inline foreign-key values.
	Wrapped
)

// String returns the form name.
func (f Form) String() string {
	if f == Wrapped {
		return "wrapped"
	}
	return "raw"
}

// Entity is the result of a store read: either a raw domain object or a
// wrapped one carrying its primary key and inline relation values.
// The zero Entity holds nothing.
type Entity struct {
	form      Form
	obj       any
	id        string
	relations map[string]any
}

// RawEntity returns a raw entity for obj.
func RawEntity(obj any) Entity {
	return Entity{form: Raw, obj: obj}
}

// WrapEntity returns a wrapped entity. relations maps a relation's mapped
// name to the raw foreign-key value(s) stored on the row.
func WrapEntity(obj any, id string, relations map[string]any) Entity {
	return Entity{form: Wrapped, obj: obj, id: id, relations: relations}
}

// Form returns the representation form.
func (e Entity) Form() Form { return e.form }

// Object returns the domain object, unwrapping if needed.
func (e Entity) Object() any { return e.obj }

// IsZero reports whether e holds no object.
func (e Entity) IsZero() bool { return e.obj == nil }

// ID returns the primary key of a wrapped entity, or "" for raw entities.
func (e Entity) ID() string { return e.id }

// Relation returns the inline foreign-key value stored under name.
// Absent and nil values both report ok == false.
func (e Entity) Relation(name string) (any, bool) {
	v, ok := e.relations[name]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return nil, false
	}
	return v, true
}

// RelationString returns the inline foreign-key value formatted as a key.
func (e Entity) RelationString(name string) (string, bool) {
	v, ok := e.Relation(name)
	if !ok {
		return "", false
	}
	return field.String(v), true
}

// Relations returns a copy of the inline relation values.
func (e Entity) Relations() map[string]any {
	return maps.Clone(e.relations)
}
