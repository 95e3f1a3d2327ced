package metadata

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sort"
	"time"

	"github.com/go-openapi/inflect"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/schema/field"
	"github.com/syssam/polystore/schema/relation"
)

// DefaultUnit is the persistence unit of entities that do not name one.
const DefaultUnit = "default"

// Schema declares one entity type.
//
//	metadata.Schema{
//	    Proto: &Customer{},
//	    Unit:  "sql",
//	    Relations: []*relation.Builder{
//	        relation.To("Orders", "Order"),
//	    },
//	}
type Schema struct {
	// Proto is a value or pointer of the entity struct type.
	Proto any
	// Name overrides the type name (defaults to the struct name).
	Name string
	// Unit names the persistence unit holding the type.
	Unit string
	// Table overrides the table name (defaults to the pluralized snake name).
	Table string
	// IDField is the Go field holding the primary key (defaults to "ID").
	IDField string
	// Relations declares the relationships owned by the type.
	Relations []*relation.Builder
}

// Provider supplies the current catalog.
type Provider interface {
	Catalog() *Catalog
}

// Catalog is an immutable set of entity descriptors with resolved
// relationships. It is safe for concurrent use.
type Catalog struct {
	entities map[string]*Entity
	byType   map[reflect.Type]*Entity
	names    []string
}

// Option configures catalog construction.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	defaultUnit string
}

// WithLogger sets the logger used while building the catalog.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDefaultUnit sets the unit of entities that do not declare one.
func WithDefaultUnit(unit string) Option {
	return func(o *options) { o.defaultUnit = unit }
}

// New builds a catalog from schemas. Relationship targets must be part of
// the same catalog. Inverse fields not named explicitly are inferred:
// the first relation on the target type that points back at the owner
// type becomes the inverse. Self-referential relations are never inferred.
func New(schemas []Schema, opts ...Option) (*Catalog, error) {
	o := &options{logger: slog.Default(), defaultUnit: DefaultUnit}
	for _, opt := range opts {
		opt(o)
	}
	c := &Catalog{
		entities: make(map[string]*Entity, len(schemas)),
		byType:   make(map[reflect.Type]*Entity, len(schemas)),
	}
	builders := make(map[string][]*relation.Builder, len(schemas))
	for _, s := range schemas {
		e, err := newEntity(s, o.defaultUnit)
		if err != nil {
			return nil, err
		}
		if _, dup := c.entities[e.Name]; dup {
			return nil, catalogError(e.Name, "", "duplicate entity type", nil)
		}
		c.entities[e.Name] = e
		c.byType[e.typ] = e
		c.names = append(c.names, e.Name)
		builders[e.Name] = s.Relations
	}
	sort.Strings(c.names)
	for _, name := range c.names {
		if err := c.bindRelations(c.entities[name], builders[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range c.names {
		if err := c.resolveInverses(c.entities[name], o.logger); err != nil {
			return nil, err
		}
	}
	for _, name := range c.names {
		c.entities[name].Columns = scalarColumns(c.entities[name])
	}
	return c, nil
}

// Catalog returns c, so that a static catalog is a Provider.
func (c *Catalog) Catalog() *Catalog { return c }

// Entity returns the named entity or a NotFoundError.
func (c *Catalog) Entity(name string) (*Entity, error) {
	if e, ok := c.entities[name]; ok {
		return e, nil
	}
	return nil, polystore.NewNotFoundErrorWithID("entity type", name)
}

// EntityOf returns the entity describing obj's dynamic type.
func (c *Catalog) EntityOf(obj any) (*Entity, error) {
	t := reflect.TypeOf(obj)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if e, ok := c.byType[t]; ok {
		return e, nil
	}
	return nil, polystore.NewNotFoundErrorWithID("entity type", fmt.Sprintf("%T", obj))
}

// Entities returns all entities sorted by name.
func (c *Catalog) Entities() []*Entity {
	out := make([]*Entity, len(c.names))
	for i, n := range c.names {
		out[i] = c.entities[n]
	}
	return out
}

// Units returns the distinct persistence units, sorted.
func (c *Catalog) Units() []string {
	var units []string
	for _, e := range c.entities {
		if !slices.Contains(units, e.Unit) {
			units = append(units, e.Unit)
		}
	}
	sort.Strings(units)
	return units
}

// Inverse returns the relation on d's target type that points back at the
// owner, or nil when d is unidirectional.
func (c *Catalog) Inverse(d *relation.Descriptor) *relation.Descriptor {
	if d.Inverse == "" {
		return nil
	}
	if t, ok := c.entities[d.Target]; ok {
		return t.Relation(d.Inverse)
	}
	return nil
}

func newEntity(s Schema, defaultUnit string) (*Entity, error) {
	t := reflect.TypeOf(s.Proto)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, catalogError(s.Name, "", fmt.Sprintf("proto %T is not a struct", s.Proto), nil)
	}
	e := &Entity{
		Name:      s.Name,
		Unit:      s.Unit,
		Table:     s.Table,
		typ:       t,
		relations: make(map[string]*relation.Descriptor, len(s.Relations)),
	}
	if e.Name == "" {
		e.Name = t.Name()
	}
	if e.Unit == "" {
		e.Unit = defaultUnit
	}
	if e.Table == "" {
		e.Table = inflect.Pluralize(inflect.Underscore(e.Name))
	}
	idField := s.IDField
	if idField == "" {
		idField = "ID"
	}
	id, err := field.ScalarForType(t, idField)
	if err != nil {
		return nil, catalogError(e.Name, "", "primary key", err)
	}
	e.ID = id
	sf, _ := t.FieldByName(idField)
	e.IDColumn = columnName(sf)
	return e, nil
}

func (c *Catalog) bindRelations(e *Entity, builders []*relation.Builder) error {
	for _, b := range builders {
		d := b.Descriptor()
		if _, dup := e.relations[d.Name]; dup {
			return catalogError(e.Name, d.Name, "duplicate relation", nil)
		}
		if _, ok := c.entities[d.Target]; !ok {
			return catalogError(e.Name, d.Name, fmt.Sprintf("unknown target type %q", d.Target), nil)
		}
		if d.Field == nil {
			acc, err := field.ForType(e.typ, d.Name)
			if err != nil {
				return catalogError(e.Name, d.Name, "binding field", err)
			}
			d.Field = acc
		}
		c.defaultColumns(e, d)
		e.relations[d.Name] = d
		e.Relations = append(e.Relations, d)
	}
	return nil
}

// defaultColumns fills undeclared foreign-key and join-table names.
func (c *Catalog) defaultColumns(e *Entity, d *relation.Descriptor) {
	if jt := d.JoinTable; jt != nil {
		if jt.Name == "" {
			jt.Name = inflect.Underscore(e.Name) + "_" + inflect.Underscore(d.Name)
		}
		if jt.JoinColumn == "" {
			jt.JoinColumn = inflect.Underscore(e.Name) + "_id"
		}
		if jt.InverseJoinColumn == "" {
			jt.InverseJoinColumn = inflect.Underscore(d.Target) + "_id"
			if d.Target == e.Name {
				jt.InverseJoinColumn = inflect.Underscore(inflect.Singularize(d.Name)) + "_id"
			}
		}
		return
	}
	if d.JoinColumn != "" {
		return
	}
	switch d.Multiplicity {
	case relation.OneToOne, relation.ManyToOne:
		d.JoinColumn = inflect.Underscore(d.Name)
	case relation.OneToMany:
		d.JoinColumn = inflect.Underscore(e.Name)
	}
}

func (c *Catalog) resolveInverses(e *Entity, logger *slog.Logger) error {
	for _, d := range e.Relations {
		target := c.entities[d.Target]
		if d.Inverse != "" {
			if target.Relation(d.Inverse) == nil {
				return catalogError(e.Name, d.Name, fmt.Sprintf("inverse %s.%s is not a relation", target.Name, d.Inverse), nil)
			}
			continue
		}
		if target == e {
			continue
		}
		for _, td := range target.Relations {
			if td.Target == e.Name {
				d.Inverse = td.Name
				logger.Debug("inferred inverse relation",
					slog.String("type", e.Name),
					slog.String("relation", d.Name),
					slog.String("inverse", target.Name+"."+td.Name))
				break
			}
		}
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

// scalarColumns lists the stored columns of e: every exported field that
// is not a relation, not tagged `db:"-"` and holds a scalar value.
func scalarColumns(e *Entity) []Column {
	cols := []Column{{Name: e.IDColumn, Field: e.ID}}
	for i := 0; i < e.typ.NumField(); i++ {
		sf := e.typ.Field(i)
		if !sf.IsExported() || sf.Anonymous || sf.Name == e.ID.Name() || e.relations[sf.Name] != nil {
			continue
		}
		if sf.Tag.Get("db") == "-" || !isScalar(sf.Type) {
			continue
		}
		s, err := field.ScalarForType(e.typ, sf.Name)
		if err != nil {
			continue
		}
		cols = append(cols, Column{Name: columnName(sf), Field: s})
	}
	return cols
}

func isScalar(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	case reflect.Struct:
		return t == timeType
	}
	return false
}

func columnName(sf reflect.StructField) string {
	if tag := sf.Tag.Get("db"); tag != "" && tag != "-" {
		return tag
	}
	return inflect.Underscore(sf.Name)
}

// IsInvalidCatalog reports whether err is a catalog definition error.
func IsInvalidCatalog(err error) bool {
	return errors.Is(err, ErrInvalidCatalog)
}
