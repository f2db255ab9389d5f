// Package coerce converts one client value into the exact binary payload of
// a column type, or classifies why it cannot.
//
// Payloads are little-endian and use the canonical widths of the schema
// package. The coercer is stateless apart from its overflow policy and is
// safe for concurrent use.
package coerce

import (
	"fmt"
	"strings"

	"github.com/hupe1980/vecingest/schema"
	"github.com/hupe1980/vecingest/status"
	"github.com/hupe1980/vecingest/value"
)

// OverflowPolicy decides what happens when a numeric value does not fit the
// target width.
type OverflowPolicy uint8

const (
	// OverflowWrap keeps the low-order bits of integers (two's complement) and
	// lets floats overflow to ±Inf.
	OverflowWrap OverflowPolicy = iota
	// OverflowSaturate clamps to the representable range.
	OverflowSaturate
	// OverflowReject fails with status.ValueOutOfRange.
	OverflowReject
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowWrap:
		return "wrap"
	case OverflowSaturate:
		return "saturate"
	case OverflowReject:
		return "reject"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", p)
	}
}

// ParseOverflowPolicy parses "wrap", "saturate" or "reject".
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wrap":
		return OverflowWrap, nil
	case "saturate":
		return OverflowSaturate, nil
	case "reject":
		return OverflowReject, nil
	default:
		return 0, fmt.Errorf("unknown overflow policy %q", s)
	}
}

// Cell is one coerced value.
//
// Data holds the element payload (for sparse columns: the values). Index holds
// the sparse indices. TensorLens holds, for tensor arrays, the number of
// dim-sized embeddings in each tensor.
type Cell struct {
	Null       bool
	IsDefault  bool
	Data       []byte
	Index      []byte
	TensorLens []uint32
}

// Size returns the number of payload bytes held by c.
func (c *Cell) Size() int {
	return len(c.Data) + len(c.Index) + 4*len(c.TensorLens)
}

// Coercer converts values into cells.
type Coercer struct {
	policy OverflowPolicy
}

// New returns a Coercer using the given overflow policy.
func New(policy OverflowPolicy) *Coercer {
	return &Coercer{policy: policy}
}

// Policy returns the overflow policy.
func (c *Coercer) Policy() OverflowPolicy { return c.policy }

// Coerce converts v for the column col.
//
// A null value is treated as an absent column: the column default is used
// when declared, a nullable column yields a null cell, anything else fails
// with MissingValue.
func (c *Coercer) Coerce(v value.Value, col *schema.ColumnSchema) (Cell, error) {
	if v.IsNull() {
		return c.Absent(col)
	}
	return c.coerce(v, col.Type)
}

// Absent returns the cell stored when col is not supplied.
func (c *Coercer) Absent(col *schema.ColumnSchema) (Cell, error) {
	switch {
	case col.Default != nil:
		cell, err := c.coerce(*col.Default, col.Type)
		if err != nil {
			return Cell{}, err
		}
		cell.IsDefault = true
		return cell, nil
	case col.Nullable:
		return Cell{Null: true}, nil
	default:
		return Cell{}, status.New(status.MissingValue, "value required and column has no default")
	}
}

// CheckDefault verifies that the declared default of col, if any, coerces.
func (c *Coercer) CheckDefault(col *schema.ColumnSchema) error {
	if col.Default == nil {
		return nil
	}
	if col.Default.IsNull() {
		if !col.Nullable {
			return status.New(status.InvalidColumnDefinition, "null default on non-nullable column").InColumn(col.Name)
		}
		return nil
	}
	if _, err := c.coerce(*col.Default, col.Type); err != nil {
		return status.Wrap(status.InvalidColumnDefinition, err, "default does not fit column type").InColumn(col.Name)
	}
	return nil
}

func (c *Coercer) coerce(v value.Value, t schema.ColumnType) (Cell, error) {
	if v.IsNull() {
		return Cell{Null: true}, nil
	}
	switch t.Family {
	case schema.FamilyVector:
		return c.vector(v, t)
	case schema.FamilyTensor:
		return c.tensor(v, t)
	case schema.FamilyTensorArray:
		return c.tensorArray(v, t)
	case schema.FamilySparse:
		return c.sparse(v, t)
	}

	if t.Family == schema.FamilyVarchar && v.Shape() == value.ShapeFlat {
		if text, ok := flatText(v); ok {
			return Cell{Data: []byte(text)}, nil
		}
	}
	if v.Shape() != value.ShapeScalar {
		return Cell{}, status.Errorf(status.NotSupported, "cannot store %s in %s column", v.Shape(), t)
	}
	data, err := c.appendScalar(nil, v, t.Family)
	if err != nil {
		return Cell{}, err
	}
	return Cell{Data: data}, nil
}

// flatText renders a list of scalars as "[e1, e2, ...]" with strings left
// unquoted. It fails when any element is not a scalar.
func flatText(v value.Value) (string, bool) {
	parts := make([]string, len(v.A))
	for i, e := range v.A {
		switch e.Kind {
		case value.KindString:
			parts[i] = e.S
		case value.KindBool, value.KindInt, value.KindFloat:
			parts[i] = e.String()
		default:
			return "", false
		}
	}
	return "[" + strings.Join(parts, ", ") + "]", true
}
