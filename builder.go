package vecingest

import (
	"context"
	"fmt"
	"slices"

	"github.com/hupe1980/vecingest/schema"
)

// TableBuilder is an immutable fluent builder for table definitions.
// Each method returns a new builder with the column appended, so a partially
// built definition can be shared and extended safely.
//
// Example:
//
//	tbl, err := vecingest.NewTable("docs").
//	    Column("id", "bigint", schema.ConstraintPrimaryKey).
//	    Column("title", "varchar", schema.ConstraintNull).
//	    Vector("emb", 128, "float").
//	    Create(ctx, db, vecingest.ConflictError)
type TableBuilder struct {
	name string
	defs []schema.ColumnDef
}

// NewTable starts a table definition.
func NewTable(name string) TableBuilder {
	return TableBuilder{name: name}
}

func (b TableBuilder) with(d schema.ColumnDef) TableBuilder {
	b.defs = append(slices.Clip(b.defs), d)
	return b
}

// Column appends a column with a type string such as "int", "varchar" or
// "tensor,4,float16" and optional constraints.
func (b TableBuilder) Column(name, typ string, constraints ...string) TableBuilder {
	return b.with(schema.ColumnDef{Name: name, Type: typ, Constraints: constraints})
}

// Default appends a column with a default value used when a row omits it.
func (b TableBuilder) Default(name, typ string, def any, constraints ...string) TableBuilder {
	return b.with(schema.ColumnDef{Name: name, Type: typ, Constraints: constraints, Default: def})
}

// Vector appends a fixed-dimension vector column.
func (b TableBuilder) Vector(name string, dim int, elem string, constraints ...string) TableBuilder {
	return b.Column(name, fmt.Sprintf("vector,%d,%s", dim, elem), constraints...)
}

// Tensor appends a tensor column whose values are multiples of dim.
func (b TableBuilder) Tensor(name string, dim int, elem string, constraints ...string) TableBuilder {
	return b.Column(name, fmt.Sprintf("tensor,%d,%s", dim, elem), constraints...)
}

// Sparse appends a sparse vector column.
func (b TableBuilder) Sparse(name string, dim int, valueType, indexType string, constraints ...string) TableBuilder {
	return b.Column(name, fmt.Sprintf("sparse,%d,%s,%s", dim, valueType, indexType), constraints...)
}

// Name returns the table name.
func (b TableBuilder) Name() string { return b.name }

// Defs returns a copy of the column definitions.
func (b TableBuilder) Defs() []schema.ColumnDef { return slices.Clone(b.defs) }

// Create creates the table in db.
func (b TableBuilder) Create(ctx context.Context, db *Database, conflict ConflictType) (*Table, error) {
	return db.CreateTable(ctx, b.name, b.Defs(), conflict)
}
