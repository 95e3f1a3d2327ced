package relation

import (
	"fmt"

	"github.com/syssam/polystore/schema/field"
)

// Multiplicity is the cardinality shape of a relationship.
type Multiplicity uint8

// Relationship multiplicities.
const (
	OneToOne Multiplicity = iota + 1
	ManyToOne
	OneToMany
	ManyToMany
)

// String returns the multiplicity name as used in catalog files.
func (m Multiplicity) String() string {
	switch m {
	case OneToOne:
		return "one_to_one"
	case ManyToOne:
		return "many_to_one"
	case OneToMany:
		return "one_to_many"
	case ManyToMany:
		return "many_to_many"
	default:
		return fmt.Sprintf("multiplicity(%d)", m)
	}
}

// ToMany reports whether the owning side holds many related objects.
func (m Multiplicity) ToMany() bool { return m == OneToMany || m == ManyToMany }

// ParseMultiplicity parses a catalog multiplicity name.
func ParseMultiplicity(s string) (Multiplicity, error) {
	switch s {
	case "one_to_one", "o2o":
		return OneToOne, nil
	case "many_to_one", "m2o":
		return ManyToOne, nil
	case "one_to_many", "o2m":
		return OneToMany, nil
	case "many_to_many", "m2m":
		return ManyToMany, nil
	}
	return 0, fmt.Errorf("relation: unknown multiplicity %q", s)
}

// JoinTable describes an association table holding the foreign-key pairs
// of a relationship. JoinColumn references the owning entity and
// InverseJoinColumn the target entity.
type JoinTable struct {
	Name              string `yaml:"name"`
	JoinColumn        string `yaml:"join_column"`
	InverseJoinColumn string `yaml:"inverse_column"`
}

// Descriptor describes one relationship of an owner type. Descriptors are
// immutable once the catalog is built.
type Descriptor struct {
	// Name is the owning Go field name.
	Name string
	// Multiplicity of the relationship, seen from the owner.
	Multiplicity Multiplicity
	// Target is the related entity type name.
	Target string
	// Field reads and writes the owning field.
	Field field.Accessor
	// JoinTable is set for relationships mediated by an association table.
	JoinTable *JoinTable
	// JoinedByPrimaryKey marks relationships where the child's primary key
	// equals the parent's.
	JoinedByPrimaryKey bool
	// JoinColumn is the foreign-key column (or relation key) under which
	// the physical row stores the related id.
	JoinColumn string
	// Inverse is the field name on Target that points back to the owner,
	// or "" when the relationship is unidirectional.
	Inverse string
}

// ViaJoinTable reports whether the relationship is mediated by an
// association table.
func (d *Descriptor) ViaJoinTable() bool { return d.JoinTable != nil }

// Bidirectional reports whether the target declares an inverse field.
func (d *Descriptor) Bidirectional() bool { return d.Inverse != "" }

// MappedName returns the key under which a wrapped row stores this
// relationship's foreign-key value.
func (d *Descriptor) MappedName() string {
	if d.JoinColumn != "" {
		return d.JoinColumn
	}
	return d.Name
}

// String returns a short description, e.g. "Orders(one_to_many Order)".
func (d *Descriptor) String() string {
	return fmt.Sprintf("%s(%s %s)", d.Name, d.Multiplicity, d.Target)
}
