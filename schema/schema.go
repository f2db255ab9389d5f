// Package schema implements the column type system and table schemas.
//
// A TableSchema is immutable after construction and shared by reference with
// every insert against its table.
package schema

import (
	"bytes"
	"fmt"
	"strings"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/vecingest/status"
	"github.com/hupe1980/vecingest/value"
)

// Constraint names accepted in column definitions.
const (
	ConstraintPrimaryKey = "primary key"
	ConstraintNotNull    = "not null"
	ConstraintNull       = "null"
	ConstraintUnique     = "unique"
)

// ColumnDef is the creation-time description of a column.
type ColumnDef struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	Constraints []string `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
}

// Definition is a table definition as read from a YAML or JSON file.
type Definition struct {
	Name    string      `json:"name" yaml:"name"`
	Columns []ColumnDef `json:"columns" yaml:"columns"`
}

// ColumnSchema is a resolved column.
type ColumnSchema struct {
	Name       string
	Type       ColumnType
	Nullable   bool
	Default    *value.Value
	PrimaryKey bool
	Unique     bool
}

// HasDefault reports whether the column declares a default value.
func (c *ColumnSchema) HasDefault() bool { return c.Default != nil }

// TableSchema is an ordered list of columns with a name index.
type TableSchema struct {
	columns []ColumnSchema
	index   map[string]int
}

// New builds a TableSchema from resolved columns.
func New(cols ...ColumnSchema) (*TableSchema, error) {
	if len(cols) == 0 {
		return nil, status.New(status.InvalidColumnDefinition, "table needs at least one column")
	}
	s := &TableSchema{
		columns: make([]ColumnSchema, len(cols)),
		index:   make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if c.Name == "" {
			return nil, status.Errorf(status.InvalidColumnDefinition, "column %d has no name", i)
		}
		if _, dup := s.index[c.Name]; dup {
			return nil, status.New(status.InvalidColumnDefinition, "duplicate column").InColumn(c.Name)
		}
		if err := c.Type.Validate(); err != nil {
			return nil, status.Wrap(status.InvalidColumnDefinition, err, "bad type").InColumn(c.Name)
		}
		if c.PrimaryKey {
			c.Nullable = false
		}
		s.columns[i] = c
		s.index[c.Name] = i
	}
	return s, nil
}

// FromDefs resolves creation-time column definitions.
func FromDefs(defs []ColumnDef) (*TableSchema, error) {
	cols := make([]ColumnSchema, len(defs))
	for i, d := range defs {
		c, err := d.Resolve()
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return New(cols...)
}

// Resolve parses the type string, constraints and default of d.
func (d ColumnDef) Resolve() (ColumnSchema, error) {
	t, err := ParseType(d.Type)
	if err != nil {
		return ColumnSchema{}, status.Wrap(status.InvalidColumnDefinition, err, "bad type").InColumn(d.Name)
	}
	c := ColumnSchema{Name: d.Name, Type: t}
	for _, raw := range d.Constraints {
		switch strings.ToLower(strings.Join(strings.Fields(raw), " ")) {
		case ConstraintPrimaryKey:
			c.PrimaryKey = true
			c.Nullable = false
		case ConstraintNotNull:
			c.Nullable = false
		case ConstraintNull:
			if c.PrimaryKey {
				return ColumnSchema{}, status.New(status.InvalidColumnDefinition, "primary key cannot be null").InColumn(d.Name)
			}
			c.Nullable = true
		case ConstraintUnique:
			c.Unique = true
		default:
			return ColumnSchema{}, status.Errorf(status.InvalidColumnDefinition, "unknown constraint %q", raw).InColumn(d.Name)
		}
	}
	if d.Default != nil {
		v, err := value.FromAny(d.Default)
		if err != nil {
			return ColumnSchema{}, status.Wrap(status.InvalidColumnDefinition, err, "bad default").InColumn(d.Name)
		}
		c.Default = &v
	}
	return c, nil
}

// NumColumns returns the number of columns.
func (s *TableSchema) NumColumns() int { return len(s.columns) }

// Column returns the i-th column in declaration order.
func (s *TableSchema) Column(i int) *ColumnSchema { return &s.columns[i] }

// Columns returns a copy of the columns in declaration order.
func (s *TableSchema) Columns() []ColumnSchema {
	out := make([]ColumnSchema, len(s.columns))
	copy(out, s.columns)
	return out
}

// Lookup returns the position of the named column.
func (s *TableSchema) Lookup(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// ColumnByName returns the named column or nil.
func (s *TableSchema) ColumnByName(name string) *ColumnSchema {
	i, ok := s.index[name]
	if !ok {
		return nil
	}
	return &s.columns[i]
}

// Names returns the column names in declaration order.
func (s *TableSchema) Names() []string {
	out := make([]string, len(s.columns))
	for i := range s.columns {
		out[i] = s.columns[i].Name
	}
	return out
}

// Defs renders s back into column definitions.
func (s *TableSchema) Defs() []ColumnDef {
	defs := make([]ColumnDef, len(s.columns))
	for i, c := range s.columns {
		d := ColumnDef{Name: c.Name, Type: c.Type.String()}
		switch {
		case c.PrimaryKey:
			d.Constraints = append(d.Constraints, ConstraintPrimaryKey)
		case c.Nullable:
			d.Constraints = append(d.Constraints, ConstraintNull)
		}
		if c.Unique {
			d.Constraints = append(d.Constraints, ConstraintUnique)
		}
		if c.Default != nil {
			d.Default = c.Default.Interface()
		}
		defs[i] = d
	}
	return defs
}

func (s *TableSchema) String() string {
	parts := make([]string, len(s.columns))
	for i, c := range s.columns {
		parts[i] = fmt.Sprintf("%s %s", c.Name, c.Type)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ParseDefinitionJSON reads a table definition from JSON.
func ParseDefinitionJSON(data []byte) (*Definition, error) {
	var def Definition
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&def); err != nil {
		return nil, status.Wrap(status.InvalidColumnDefinition, err, "parse definition")
	}
	for i := range def.Columns {
		def.Columns[i].Default = value.NormalizeJSON(def.Columns[i].Default)
	}
	return &def, nil
}

// ParseDefinitionYAML reads a table definition from YAML.
func ParseDefinitionYAML(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, status.Wrap(status.InvalidColumnDefinition, err, "parse definition")
	}
	return &def, nil
}
