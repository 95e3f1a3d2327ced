// Package fixture provides a small commerce domain used by tests across
// the module.
package fixture

import (
	"context"

	"github.com/syssam/polystore/metadata"
	"github.com/syssam/polystore/schema/relation"
	"github.com/syssam/polystore/store"
)

// Customer has many orders and one profile.
type Customer struct {
	ID      string `db:"id"`
	Name    string `db:"name"`
	Orders  []*Order
	Profile *Profile
}

// Profile belongs to exactly one customer.
type Profile struct {
	ID       string `db:"id"`
	Bio      string `db:"bio"`
	Customer *Customer
}

// Order belongs to a customer and has many line items.
type Order struct {
	ID       string  `db:"id"`
	Total    float64 `db:"total"`
	Customer *Customer
	Items    []*LineItem
}

// LineItem belongs to an order.
type LineItem struct {
	ID    string `db:"id"`
	SKU   string `db:"sku"`
	Qty   int    `db:"qty"`
	Order *Order
}

// Product is linked to categories through a join table.
type Product struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	Categories []*Category
}

// Category holds its products as a set.
type Category struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Products map[*Product]struct{}
}

// Employee reports to another employee.
type Employee struct {
	ID      string `db:"id"`
	Name    string `db:"name"`
	Manager *Employee
	Reports []*Employee
}

// Types maps entity names to prototypes, for catalog files.
var Types = map[string]any{
	"Customer": &Customer{},
	"Profile":  &Profile{},
	"Order":    &Order{},
	"LineItem": &LineItem{},
	"Product":  &Product{},
	"Category": &Category{},
	"Employee": &Employee{},
}

// Schemas returns the domain schemas, all in the given unit.
func Schemas(unit string) []metadata.Schema {
	return []metadata.Schema{
		{
			Proto: &Customer{},
			Unit:  unit,
			Relations: []*relation.Builder{
				relation.To("Orders", "Order").Ref("Customer"),
				relation.To("Profile", "Profile").Unique().Ref("Customer").Column("profile_id"),
			},
		},
		{
			Proto: &Profile{},
			Unit:  unit,
			Relations: []*relation.Builder{
				relation.From("Customer", "Customer").Multiplicity(relation.OneToOne).Ref("Profile").Column("customer_id"),
			},
		},
		{
			Proto: &Order{},
			Unit:  unit,
			Relations: []*relation.Builder{
				relation.From("Customer", "Customer").Ref("Orders").Column("customer_id"),
				relation.To("Items", "LineItem").Ref("Order"),
			},
		},
		{
			Proto: &LineItem{},
			Unit:  unit,
			Relations: []*relation.Builder{
				relation.From("Order", "Order").Ref("Items").Column("order_id"),
			},
		},
		{
			Proto: &Product{},
			Unit:  unit,
			Relations: []*relation.Builder{
				relation.To("Categories", "Category").
					ManyToMany().
					Through("product_categories", "product_id", "category_id").
					Ref("Products"),
			},
		},
		{
			Proto: &Category{},
			Unit:  unit,
			Relations: []*relation.Builder{
				relation.To("Products", "Product").
					ManyToMany().
					Through("product_categories", "category_id", "product_id").
					Ref("Categories"),
			},
		},
		{
			Proto: &Employee{},
			Unit:  unit,
			Relations: []*relation.Builder{
				relation.From("Manager", "Employee").Column("manager_id"),
				relation.To("Reports", "Employee").Column("manager_id"),
			},
		},
	}
}

// Catalog builds the domain catalog with every type in unit.
func Catalog(unit string) (*metadata.Catalog, error) {
	return metadata.New(Schemas(unit))
}

// Seed is the fixture data set. Rows are keyed by type; relations hold the
// inline foreign keys each backend stores with the row.
type Seed struct {
	Rows  []Row
	Links []Link
}

// Row is one stored entity.
type Row struct {
	Type      string
	ID        string
	Object    any
	Relations map[string]any
}

// Link is one join-table row.
type Link struct {
	Table, OwnColumn, OtherColumn, Own, Other string
}

// Data returns the standard data set:
//
//	Customer c1 (profile p1) with orders o1 (items l1, l2) and o2 (item l3)
//	Customer c2 without orders
//	Products P1 in C1, C2; P2 in C1
//	Employees e1 <- e2, e1 <- e3
func Data() Seed {
	return Seed{
		Rows: []Row{
			{"Customer", "c1", &Customer{ID: "c1", Name: "Ada"}, map[string]any{"profile_id": "p1"}},
			{"Customer", "c2", &Customer{ID: "c2", Name: "Grace"}, nil},
			{"Profile", "p1", &Profile{ID: "p1", Bio: "mathematician"}, map[string]any{"customer_id": "c1"}},
			{"Order", "o1", &Order{ID: "o1", Total: 30}, map[string]any{"customer_id": "c1"}},
			{"Order", "o2", &Order{ID: "o2", Total: 12.5}, map[string]any{"customer_id": "c1"}},
			{"LineItem", "l1", &LineItem{ID: "l1", SKU: "pen", Qty: 2}, map[string]any{"order_id": "o1"}},
			{"LineItem", "l2", &LineItem{ID: "l2", SKU: "ink", Qty: 1}, map[string]any{"order_id": "o1"}},
			{"LineItem", "l3", &LineItem{ID: "l3", SKU: "pad", Qty: 5}, map[string]any{"order_id": "o2"}},
			{"Product", "P1", &Product{ID: "P1", Name: "Lamp"}, nil},
			{"Product", "P2", &Product{ID: "P2", Name: "Desk"}, nil},
			{"Category", "C1", &Category{ID: "C1", Name: "Office"}, nil},
			{"Category", "C2", &Category{ID: "C2", Name: "Lighting"}, nil},
			{"Employee", "e1", &Employee{ID: "e1", Name: "Boss"}, nil},
			{"Employee", "e2", &Employee{ID: "e2", Name: "Dev"}, map[string]any{"manager_id": "e1"}},
			{"Employee", "e3", &Employee{ID: "e3", Name: "Ops"}, map[string]any{"manager_id": "e1"}},
		},
		Links: []Link{
			{"product_categories", "product_id", "category_id", "P1", "C1"},
			{"product_categories", "product_id", "category_id", "P1", "C2"},
			{"product_categories", "product_id", "category_id", "P2", "C1"},
		},
	}
}

// Load writes the seed into w.
func Load(ctx context.Context, w store.Writer, seed Seed) error {
	for _, r := range seed.Rows {
		if err := w.Put(ctx, r.Type, r.ID, r.Object, r.Relations); err != nil {
			return err
		}
	}
	for _, l := range seed.Links {
		if err := w.Link(ctx, l.Table, l.OwnColumn, l.OtherColumn, l.Own, l.Other); err != nil {
			return err
		}
	}
	return nil
}
