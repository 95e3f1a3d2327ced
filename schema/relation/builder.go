package relation

// Builder is a fluent builder for relationship descriptors. The field
// accessor is bound later, when the owner type is registered in the
// catalog.
type Builder struct {
	desc *Descriptor
}

// To starts a forward relationship. It defaults to one-to-many:
//
//	relation.To("Orders", "Order").Ref("Customer")
func To(name, target string) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Target: target, Multiplicity: OneToMany}}
}

// From starts a back-reference. It defaults to many-to-one:
//
//	relation.From("Customer", "Customer").Ref("Orders").Column("customer_id")
func From(name, target string) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Target: target, Multiplicity: ManyToOne}}
}

// Unique turns a one-to-many into a one-to-one relationship. Unique on a
// back-reference keeps it many-to-one.
func (b *Builder) Unique() *Builder {
	if b.desc.Multiplicity == OneToMany {
		b.desc.Multiplicity = OneToOne
	}
	return b
}

// ManyToMany marks the relationship as many-to-many.
func (b *Builder) ManyToMany() *Builder {
	b.desc.Multiplicity = ManyToMany
	return b
}

// Multiplicity sets the multiplicity explicitly.
func (b *Builder) Multiplicity(m Multiplicity) *Builder {
	b.desc.Multiplicity = m
	return b
}

// Ref names the inverse field on the target type.
func (b *Builder) Ref(inverse string) *Builder {
	b.desc.Inverse = inverse
	return b
}

// Column sets the foreign-key column name.
func (b *Builder) Column(name string) *Builder {
	b.desc.JoinColumn = name
	return b
}

// Through routes the relationship through an association table. Empty
// column names are defaulted by the catalog.
func (b *Builder) Through(table, joinColumn, inverseColumn string) *Builder {
	b.desc.JoinTable = &JoinTable{Name: table, JoinColumn: joinColumn, InverseJoinColumn: inverseColumn}
	return b
}

// SharedPrimaryKey marks the child's primary key as equal to the parent's.
func (b *Builder) SharedPrimaryKey() *Builder {
	b.desc.JoinedByPrimaryKey = true
	return b
}

// Descriptor returns a copy of the built descriptor.
func (b *Builder) Descriptor() *Descriptor {
	d := *b.desc
	if d.JoinTable != nil {
		jt := *d.JoinTable
		d.JoinTable = &jt
	}
	return &d
}
