// Package relation defines relationship descriptors and fluent builders.
//
// # Multiplicity
//
//   - OneToOne: Customer has one Profile
//   - ManyToOne: Order belongs to Customer
//   - OneToMany: Customer has many Orders
//   - ManyToMany: Product has many Categories, Category has many Products
//
// # Bidirectional Relationships
//
// A relationship is bidirectional when the target type declares a field
// pointing back to the owner. Name it with Ref:
//
//	// Customer
//	relation.To("Orders", "Order").Ref("Customer")
//
//	// Order
//	relation.From("Customer", "Customer").Ref("Orders").Column("customer_id")
//
// # Join Tables
//
// Relationships whose foreign keys live in an association table:
//
//	relation.To("Categories", "Category").
//	    ManyToMany().
//	    Through("product_categories", "product_id", "category_id").
//	    Ref("Products")
//
// A join table has exactly one owning column and one inverse column.
//
// # Shared Primary Keys
//
// One-to-many children that reuse the parent's primary key:
//
//	relation.To("Settings", "AccountSettings").SharedPrimaryKey()
package relation
