package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/polystore/schema/relation"
)

// File is the YAML catalog document.
//
//	entities:
//	  - name: Customer
//	    unit: sql
//	    relations:
//	      - name: Orders
//	        multiplicity: one_to_many
//	        target: Order
//	        inverse: Customer
//	  - name: Order
//	    relations:
//	      - name: Customer
//	        multiplicity: many_to_one
//	        target: Customer
//	        column: customer_id
type File struct {
	Entities []EntityDef `yaml:"entities"`
}

// EntityDef declares one entity in a catalog file.
type EntityDef struct {
	Name      string        `yaml:"name"`
	Unit      string        `yaml:"unit,omitempty"`
	Table     string        `yaml:"table,omitempty"`
	IDField   string        `yaml:"id,omitempty"`
	Relations []RelationDef `yaml:"relations,omitempty"`
}

// RelationDef declares one relationship in a catalog file.
type RelationDef struct {
	Name             string              `yaml:"name"`
	Multiplicity     string              `yaml:"multiplicity"`
	Target           string              `yaml:"target"`
	Inverse          string              `yaml:"inverse,omitempty"`
	Column           string              `yaml:"column,omitempty"`
	JoinTable        *relation.JoinTable `yaml:"join_table,omitempty"`
	SharedPrimaryKey bool                `yaml:"shared_primary_key,omitempty"`
}

// Builder returns the relation builder for the definition.
func (r RelationDef) Builder() (*relation.Builder, error) {
	m, err := relation.ParseMultiplicity(r.Multiplicity)
	if err != nil {
		return nil, err
	}
	b := relation.To(r.Name, r.Target).Multiplicity(m)
	if r.Inverse != "" {
		b.Ref(r.Inverse)
	}
	if r.Column != "" {
		b.Column(r.Column)
	}
	if jt := r.JoinTable; jt != nil {
		b.Through(jt.Name, jt.JoinColumn, jt.InverseJoinColumn)
	}
	if r.SharedPrimaryKey {
		b.SharedPrimaryKey()
	}
	return b, nil
}

// Schemas converts the file into schemas. types maps every entity name
// to a prototype value of its Go struct.
func (f *File) Schemas(types map[string]any) ([]Schema, error) {
	schemas := make([]Schema, 0, len(f.Entities))
	for _, def := range f.Entities {
		proto, ok := types[def.Name]
		if !ok {
			return nil, catalogError(def.Name, "", "no Go type registered", nil)
		}
		s := Schema{
			Proto:   proto,
			Name:    def.Name,
			Unit:    def.Unit,
			Table:   def.Table,
			IDField: def.IDField,
		}
		for _, rd := range def.Relations {
			b, err := rd.Builder()
			if err != nil {
				return nil, catalogError(def.Name, rd.Name, "", err)
			}
			s.Relations = append(s.Relations, b)
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// LoadYAML reads a catalog file from r and builds the catalog.
func LoadYAML(r io.Reader, types map[string]any, opts ...Option) (*Catalog, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, catalogError("", "", "empty catalog", nil)
		}
		return nil, catalogError("", "", "decoding yaml", err)
	}
	if len(f.Entities) == 0 {
		return nil, catalogError("", "", "no entities declared", nil)
	}
	schemas, err := f.Schemas(types)
	if err != nil {
		return nil, err
	}
	return New(schemas, opts...)
}

// LoadFile reads and builds the catalog stored at path.
func LoadFile(path string, types map[string]any, opts ...Option) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("polystore: reading catalog: %w", err)
	}
	return LoadYAML(bytes.NewReader(data), types, opts...)
}
