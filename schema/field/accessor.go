package field

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors for field access.
var (
	// ErrTypeMismatch is returned when a value cannot be assigned to a field.
	ErrTypeMismatch = errors.New("field: type mismatch")

	// ErrNotStructPointer is returned when the target object is not a
	// non-nil pointer to the struct the accessor was built for.
	ErrNotStructPointer = errors.New("field: target is not a pointer to the owning struct")

	// ErrUnknownField is returned when a struct has no field with the given name.
	ErrUnknownField = errors.New("field: unknown field")
)

// AccessError describes a failed read or assignment.
type AccessError struct {
	Field string // Go field name
	Op    string // "get", "set" or "append"
	Err   error
}

// Error returns the error string.
func (e *AccessError) Error() string {
	return fmt.Sprintf("field: %s %s: %v", e.Op, e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *AccessError) Unwrap() error { return e.Err }

// Kind is the container shape of a relationship field.
type Kind uint8

const (
	// Single holds at most one related object.
	Single Kind = iota
	// List holds an ordered slice of related objects.
	List
	// Set holds related objects without duplicates (map[T]struct{}).
	Set
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Single:
		return "single"
	case List:
		return "list"
	case Set:
		return "set"
	default:
		return "unknown"
	}
}

// IsCollection reports whether k holds more than one value.
func (k Kind) IsCollection() bool { return k == List || k == Set }

// Accessor reads and writes one relationship field on an entity object.
// Accessors are resolved once, when the catalog is built, and shared by
// every traversal.
type Accessor interface {
	// Name returns the Go field name.
	Name() string
	// Kind returns the container shape of the field.
	Kind() Kind
	// Get returns the current elements. A Single field yields zero or one.
	Get(obj any) ([]any, error)
	// Set replaces the field content. A Single field takes the first
	// value; an empty slice resets it to the zero value.
	Set(obj any, values []any) error
	// Append adds v unless it is already present. On a Single field it
	// behaves like Set.
	Append(obj any, v any) error
}

// structAccessor is the reflect-backed Accessor.
type structAccessor struct {
	name  string
	owner reflect.Type // struct type
	index []int
	typ   reflect.Type // field type
	elem  reflect.Type // element type (field type for Single)
	kind  Kind
}

// Of returns an Accessor for the named field of proto, which must be a
// struct or a pointer to a struct.
func Of(proto any, name string) (Accessor, error) {
	return ForType(reflect.TypeOf(proto), name)
}

// ForType returns an Accessor for the named field of struct type t
// (or pointer to it).
func ForType(t reflect.Type, name string) (Accessor, error) {
	owner, sf, err := lookup(t, name)
	if err != nil {
		return nil, err
	}
	a := &structAccessor{
		name:  name,
		owner: owner,
		index: sf.Index,
		typ:   sf.Type,
		elem:  sf.Type,
		kind:  Single,
	}
	switch {
	case sf.Type.Kind() == reflect.Slice && sf.Type.Elem().Kind() != reflect.Uint8:
		a.kind, a.elem = List, sf.Type.Elem()
	case sf.Type.Kind() == reflect.Map && sf.Type.Elem() == emptyStruct:
		a.kind, a.elem = Set, sf.Type.Key()
	}
	return a, nil
}

var emptyStruct = reflect.TypeOf(struct{}{})

func lookup(t reflect.Type, name string) (reflect.Type, reflect.StructField, error) {
	if t == nil {
		return nil, reflect.StructField{}, ErrNotStructPointer
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, reflect.StructField{}, fmt.Errorf("%w: %s is not a struct", ErrNotStructPointer, t)
	}
	sf, ok := t.FieldByName(name)
	if !ok || !sf.IsExported() {
		return nil, reflect.StructField{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, t.Name(), name)
	}
	return t, sf, nil
}

func (a *structAccessor) Name() string { return a.name }
func (a *structAccessor) Kind() Kind   { return a.kind }

func (a *structAccessor) field(obj any, op string) (reflect.Value, error) {
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Type() != a.owner {
		return reflect.Value{}, &AccessError{Field: a.name, Op: op, Err: fmt.Errorf("%w: got %T", ErrNotStructPointer, obj)}
	}
	return rv.Elem().FieldByIndex(a.index), nil
}

func (a *structAccessor) Get(obj any) ([]any, error) {
	fv, err := a.field(obj, "get")
	if err != nil {
		return nil, err
	}
	switch a.kind {
	case List:
		out := make([]any, 0, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			out = append(out, fv.Index(i).Interface())
		}
		return out, nil
	case Set:
		out := make([]any, 0, fv.Len())
		iter := fv.MapRange()
		for iter.Next() {
			out = append(out, iter.Key().Interface())
		}
		return out, nil
	default:
		if fv.IsZero() {
			return nil, nil
		}
		return []any{fv.Interface()}, nil
	}
}

func (a *structAccessor) Set(obj any, values []any) error {
	fv, err := a.field(obj, "set")
	if err != nil {
		return err
	}
	switch a.kind {
	case List:
		out := reflect.MakeSlice(a.typ, 0, len(values))
		for _, v := range values {
			ev, err := a.element(v, "set")
			if err != nil {
				return err
			}
			if ev.IsValid() {
				out = reflect.Append(out, ev)
			}
		}
		fv.Set(out)
	case Set:
		out := reflect.MakeMapWithSize(a.typ, len(values))
		for _, v := range values {
			ev, err := a.element(v, "set")
			if err != nil {
				return err
			}
			if ev.IsValid() {
				out.SetMapIndex(ev, reflect.Zero(emptyStruct))
			}
		}
		fv.Set(out)
	default:
		if len(values) == 0 || values[0] == nil {
			fv.Set(reflect.Zero(a.typ))
			return nil
		}
		ev, err := a.element(values[0], "set")
		if err != nil {
			return err
		}
		fv.Set(ev)
	}
	return nil
}

func (a *structAccessor) Append(obj any, v any) error {
	if a.kind == Single {
		return a.Set(obj, []any{v})
	}
	fv, err := a.field(obj, "append")
	if err != nil {
		return err
	}
	ev, err := a.element(v, "append")
	if err != nil || !ev.IsValid() {
		return err
	}
	if a.kind == Set {
		if fv.IsNil() {
			fv.Set(reflect.MakeMap(a.typ))
		}
		fv.SetMapIndex(ev, reflect.Zero(emptyStruct))
		return nil
	}
	if a.elem.Comparable() {
		for i := 0; i < fv.Len(); i++ {
			if fv.Index(i).Interface() == ev.Interface() {
				return nil
			}
		}
	}
	fv.Set(reflect.Append(fv, ev))
	return nil
}

// element converts v to the element type. A nil v yields an invalid Value.
func (a *structAccessor) element(v any, op string) (reflect.Value, error) {
	if v == nil {
		return reflect.Value{}, nil
	}
	ev := reflect.ValueOf(v)
	if !ev.Type().AssignableTo(a.elem) {
		return reflect.Value{}, &AccessError{
			Field: a.name,
			Op:    op,
			Err:   fmt.Errorf("%w: cannot assign %s to %s", ErrTypeMismatch, ev.Type(), a.elem),
		}
	}
	return ev, nil
}

// Funcs is an Accessor built from closures, for entity types that expose
// typed getters and setters instead of exported fields.
type Funcs struct {
	FieldName string
	FieldKind Kind
	GetFn     func(obj any) ([]any, error)
	SetFn     func(obj any, values []any) error
}

// Func returns an Accessor backed by the given closures.
func Func(name string, kind Kind, get func(any) ([]any, error), set func(any, []any) error) Accessor {
	return &Funcs{FieldName: name, FieldKind: kind, GetFn: get, SetFn: set}
}

func (f *Funcs) Name() string { return f.FieldName }
func (f *Funcs) Kind() Kind   { return f.FieldKind }

func (f *Funcs) Get(obj any) ([]any, error) {
	if f.GetFn == nil {
		return nil, &AccessError{Field: f.FieldName, Op: "get", Err: errors.New("no getter")}
	}
	return f.GetFn(obj)
}

func (f *Funcs) Set(obj any, values []any) error {
	if f.SetFn == nil {
		return &AccessError{Field: f.FieldName, Op: "set", Err: errors.New("no setter")}
	}
	return f.SetFn(obj, values)
}

func (f *Funcs) Append(obj any, v any) error {
	if !f.FieldKind.IsCollection() {
		return f.Set(obj, []any{v})
	}
	cur, err := f.Get(obj)
	if err != nil {
		return err
	}
	for _, c := range cur {
		if c != nil && v != nil && reflect.TypeOf(c).Comparable() && reflect.TypeOf(v).Comparable() && c == v {
			return nil
		}
	}
	return f.Set(obj, append(cur, v))
}

var (
	_ Accessor = (*structAccessor)(nil)
	_ Accessor = (*Funcs)(nil)
)
