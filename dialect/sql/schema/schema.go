// Package schema derives SQL table definitions from an entity catalog and
// creates them.
package schema

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/metadata"
)

// ColumnType is the storage class of a column.
type ColumnType uint8

// Column types.
const (
	TypeString ColumnType = iota + 1
	TypeInt
	TypeFloat
	TypeBool
	TypeTime
)

// Column describes one table column.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// Index describes a secondary index.
type Index struct {
	Name    string
	Columns []*Column
}

// Table describes one table.
type Table struct {
	Name       string
	Columns    []*Column
	PrimaryKey []*Column
	Indexes    []*Index
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Tables returns the tables holding the entities of c: one per entity and
// one per join table. fks lists the foreign-key columns stored on each
// entity table, keyed by entity name. Every foreign-key column is indexed,
// and so is the second primary-key column of a join table.
func Tables(c *metadata.Catalog, fks map[string][]string) []*Table {
	var tables []*Table
	joins := make(map[string]bool)
	for _, e := range c.Entities() {
		t := &Table{Name: e.Table}
		for i, col := range e.Columns {
			sc := &Column{Name: col.Name, Type: typeOf(col.Field.Type()), Nullable: i > 0}
			t.Columns = append(t.Columns, sc)
			if col.Name == e.IDColumn {
				t.PrimaryKey = []*Column{sc}
			}
		}
		for _, fk := range fks[e.Name] {
			col := &Column{Name: fk, Type: TypeString, Nullable: true}
			t.Columns = append(t.Columns, col)
			t.Indexes = append(t.Indexes, indexOn(t.Name, col))
		}
		tables = append(tables, t)
		for _, d := range e.Relations {
			jt := d.JoinTable
			if jt == nil || joins[jt.Name] {
				continue
			}
			joins[jt.Name] = true
			cols := []string{jt.JoinColumn, jt.InverseJoinColumn}
			slices.Sort(cols)
			t := &Table{Name: jt.Name}
			for _, name := range cols {
				t.Columns = append(t.Columns, &Column{Name: name, Type: TypeString})
			}
			t.PrimaryKey = t.Columns
			t.Indexes = []*Index{indexOn(t.Name, t.Columns[1])}
			tables = append(tables, t)
		}
	}
	return tables
}

func indexOn(table string, col *Column) *Index {
	return &Index{Name: "idx_" + table + "_" + col.Name, Columns: []*Column{col}}
}

var timeType = reflect.TypeOf(time.Time{})

func typeOf(t reflect.Type) ColumnType {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return TypeTime
	}
	switch t.Kind() {
	case reflect.Bool:
		return TypeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInt
	case reflect.Float32, reflect.Float64:
		return TypeFloat
	default:
		return TypeString
	}
}

// SQLType returns the column type in the given dialect.
func (c *Column) SQLType(name string) string {
	switch c.Type {
	case TypeInt:
		return "BIGINT"
	case TypeFloat:
		switch name {
		case dialect.Postgres:
			return "DOUBLE PRECISION"
		case dialect.MySQL:
			return "DOUBLE"
		}
		return "REAL"
	case TypeBool:
		return "BOOLEAN"
	case TypeTime:
		if name == dialect.MySQL {
			return "DATETIME(6)"
		}
		return "TIMESTAMP"
	}
	if name == dialect.MySQL {
		return "VARCHAR(255)"
	}
	return "TEXT"
}

// CreateStatement returns the CREATE TABLE IF NOT EXISTS statement of t.
// MySQL has no CREATE INDEX IF NOT EXISTS, so its indexes are declared
// inline.
func (t *Table) CreateStatement(name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (", dialect.Quote(name, t.Name))
	for i, c := range t.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %s", dialect.Quote(name, c.Name), c.SQLType(name))
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
	}
	if len(t.PrimaryKey) > 0 {
		fmt.Fprintf(&sb, ", PRIMARY KEY (%s)", quoteColumns(name, t.PrimaryKey))
	}
	if name == dialect.MySQL {
		for _, idx := range t.Indexes {
			fmt.Fprintf(&sb, ", INDEX %s (%s)", dialect.Quote(name, idx.Name), quoteColumns(name, idx.Columns))
		}
	}
	sb.WriteString(")")
	return sb.String()
}

// IndexStatements returns the CREATE INDEX statements of t. It is empty
// for MySQL.
func (t *Table) IndexStatements(name string) []string {
	if name == dialect.MySQL {
		return nil
	}
	stmts := make([]string, 0, len(t.Indexes))
	for _, idx := range t.Indexes {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			dialect.Quote(name, idx.Name), dialect.Quote(name, t.Name), quoteColumns(name, idx.Columns)))
	}
	return stmts
}

func quoteColumns(name string, cols []*Column) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = dialect.Quote(name, c.Name)
	}
	return strings.Join(out, ", ")
}
