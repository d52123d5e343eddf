package schema

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/aster-analytics/olistload/pkg/olist"
)

// Column is a destination column and its SQL type.
type Column struct {
	Name string
	Type string
}

// ForeignKey references a parent table's key column in the same namespace.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// LoadMode selects how a table's source file reaches the table.
type LoadMode int

const (
	// LoadDirect streams the file straight into the table.
	LoadDirect LoadMode = iota

	// LoadStaged streams into a staging table and reconciles one row per key.
	LoadStaged
)

func (m LoadMode) String() string {
	if m == LoadStaged {
		return "staged"
	}
	return "direct"
}

// Table describes one entity table.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string

	// ForeignKeys become constraints on the table.
	ForeignKeys []ForeignKey

	// RequireParents lists references a staged row must satisfy to be kept.
	// Rows failing them are dropped during reconciliation, not rejected.
	RequireParents []ForeignKey

	// After names tables that must be loaded first without a constraint.
	After []string

	// Source is the CSV file name inside the data directory.
	Source string

	Mode LoadMode
}

// ColumnNames returns the column names in source file order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// HasKey reports whether the table declares a primary key.
func (t Table) HasKey() bool {
	return len(t.PrimaryKey) > 0
}

// Dependencies returns every table that must exist and be loaded before t.
func (t Table) Dependencies() []string {
	seen := make(map[string]bool)
	var deps []string
	add := func(name string) {
		if name != t.Name && !seen[name] {
			seen[name] = true
			deps = append(deps, name)
		}
	}
	for _, fk := range t.ForeignKeys {
		add(fk.RefTable)
	}
	for _, fk := range t.RequireParents {
		add(fk.RefTable)
	}
	for _, name := range t.After {
		add(name)
	}
	return deps
}

// Destination returns the bulk-load target for the final table.
func (t Table) Destination(namespace string) olist.Destination {
	return olist.Destination{Schema: namespace, Table: t.Name, Columns: t.ColumnNames()}
}

// Qualified returns the quoted namespace.table name.
func (t Table) Qualified(namespace string) string {
	return pgx.Identifier{namespace, t.Name}.Sanitize()
}

// ColumnDefs renders `"name" TYPE` for every column.
func (t Table) ColumnDefs() []string {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = fmt.Sprintf("%s %s", quote(c.Name), c.Type)
	}
	return defs
}

// CreateSQL returns the idempotent CREATE TABLE statement.
func (t Table) CreateSQL(namespace string) string {
	parts := t.ColumnDefs()
	if t.HasKey() {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", QuoteList(t.PrimaryKey)))
	}
	for _, fk := range t.ForeignKeys {
		parts = append(parts, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			quote(fk.Column), pgx.Identifier{namespace, fk.RefTable}.Sanitize(), quote(fk.RefColumn)))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)",
		t.Qualified(namespace), strings.Join(parts, ",\n    "))
}

// Index is a secondary index on one table.
type Index struct {
	Name    string
	Table   string
	Columns []string
}

// CreateSQL returns the idempotent CREATE INDEX statement.
func (i Index) CreateSQL(namespace string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		quote(i.Name), pgx.Identifier{namespace, i.Table}.Sanitize(), QuoteList(i.Columns))
}

// Catalog is an ordered set of tables plus their secondary indexes.
type Catalog struct {
	tables  []Table
	indexes []Index
}

// NewCatalog builds a catalog from tables in declaration order.
func NewCatalog(tables []Table, indexes []Index) *Catalog {
	return &Catalog{tables: tables, indexes: indexes}
}

// Tables returns the tables in declaration order.
func (c *Catalog) Tables() []Table {
	return append([]Table(nil), c.tables...)
}

// Indexes returns the secondary indexes.
func (c *Catalog) Indexes() []Index {
	return append([]Index(nil), c.indexes...)
}

// Table looks a table up by name.
func (c *Catalog) Table(name string) (Table, bool) {
	for _, t := range c.tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// TableNames returns every table name in declaration order.
func (c *Catalog) TableNames() []string {
	names := make([]string, len(c.tables))
	for i, t := range c.tables {
		names[i] = t.Name
	}
	return names
}

// QuoteList quotes and comma-joins identifiers.
func QuoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quote(n)
	}
	return strings.Join(quoted, ", ")
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
