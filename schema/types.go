package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Family identifies a column type family.
type Family uint8

const (
	FamilyInvalid Family = iota
	FamilyBool
	FamilyInt8
	FamilyInt16
	FamilyInt32
	FamilyInt64
	FamilyFloat16
	FamilyBFloat16
	FamilyFloat32
	FamilyFloat64
	FamilyVarchar
	FamilyVector
	FamilyTensor
	FamilyTensorArray
	FamilySparse
)

// String returns the canonical type-string spelling of the family.
func (f Family) String() string {
	switch f {
	case FamilyBool:
		return "bool"
	case FamilyInt8:
		return "int8"
	case FamilyInt16:
		return "int16"
	case FamilyInt32:
		return "int32"
	case FamilyInt64:
		return "int64"
	case FamilyFloat16:
		return "float16"
	case FamilyBFloat16:
		return "bfloat16"
	case FamilyFloat32:
		return "float32"
	case FamilyFloat64:
		return "float64"
	case FamilyVarchar:
		return "varchar"
	case FamilyVector:
		return "vector"
	case FamilyTensor:
		return "tensor"
	case FamilyTensorArray:
		return "tensorarray"
	case FamilySparse:
		return "sparse"
	default:
		return "invalid"
	}
}

// IsInteger reports whether f is a signed integer family.
func (f Family) IsInteger() bool {
	return f >= FamilyInt8 && f <= FamilyInt64
}

// IsFloat reports whether f is a floating point family (including 16-bit formats).
func (f Family) IsFloat() bool {
	return f >= FamilyFloat16 && f <= FamilyFloat64
}

// IsNumeric reports whether f is an integer or float family.
func (f Family) IsNumeric() bool {
	return f.IsInteger() || f.IsFloat()
}

// IsStructured reports whether values of f are sequences or indexed pairs.
func (f Family) IsStructured() bool {
	return f >= FamilyVector && f <= FamilySparse
}

// Width returns the canonical storage width in bytes of one scalar of f,
// or 0 for variable-length and structured families.
func (f Family) Width() int {
	switch f {
	case FamilyBool, FamilyInt8:
		return 1
	case FamilyInt16, FamilyFloat16, FamilyBFloat16:
		return 2
	case FamilyInt32, FamilyFloat32:
		return 4
	case FamilyInt64, FamilyFloat64:
		return 8
	default:
		return 0
	}
}

// IntRange returns the inclusive value range of an integer family.
func (f Family) IntRange() (lo, hi int64) {
	switch f {
	case FamilyInt8:
		return math.MinInt8, math.MaxInt8
	case FamilyInt16:
		return math.MinInt16, math.MaxInt16
	case FamilyInt32:
		return math.MinInt32, math.MaxInt32
	default:
		return math.MinInt64, math.MaxInt64
	}
}

// ColumnType is a fully parameterised column type.
//
// Dim, Elem and IndexElem are only meaningful for structured families:
// Elem is the scalar element (or sparse value) family, IndexElem the sparse
// index family.
type ColumnType struct {
	Family    Family
	Dim       int
	Elem      Family
	IndexElem Family
}

// Scalar returns the ColumnType of a non-structured family.
func Scalar(f Family) ColumnType { return ColumnType{Family: f} }

// Vector returns Vector<dim, elem>.
func Vector(dim int, elem Family) ColumnType {
	return ColumnType{Family: FamilyVector, Dim: dim, Elem: elem}
}

// Tensor returns Tensor<dim, elem>.
func Tensor(dim int, elem Family) ColumnType {
	return ColumnType{Family: FamilyTensor, Dim: dim, Elem: elem}
}

// TensorArray returns TensorArray<dim, elem>.
func TensorArray(dim int, elem Family) ColumnType {
	return ColumnType{Family: FamilyTensorArray, Dim: dim, Elem: elem}
}

// Sparse returns Sparse<dim, value, index>.
func Sparse(dim int, value, index Family) ColumnType {
	return ColumnType{Family: FamilySparse, Dim: dim, Elem: value, IndexElem: index}
}

// ElemWidth returns the width of one stored element: the family width for
// scalars, the element width for structured types.
func (t ColumnType) ElemWidth() int {
	if t.Family.IsStructured() {
		return t.Elem.Width()
	}
	return t.Family.Width()
}

// FixedWidth returns the per-row byte width of fixed-size types, 0 otherwise.
func (t ColumnType) FixedWidth() int {
	switch {
	case t.Family == FamilyVector:
		return t.Dim * t.Elem.Width()
	case t.Family.IsStructured(), t.Family == FamilyVarchar:
		return 0
	default:
		return t.Family.Width()
	}
}

// String renders the type in the same syntax ParseType accepts.
func (t ColumnType) String() string {
	switch t.Family {
	case FamilyVector, FamilyTensor, FamilyTensorArray:
		return fmt.Sprintf("%s,%d,%s", t.Family, t.Dim, elemName(t.Elem))
	case FamilySparse:
		return fmt.Sprintf("sparse,%d,%s,%s", t.Dim, elemName(t.Elem), elemName(t.IndexElem))
	default:
		return t.Family.String()
	}
}

func elemName(f Family) string {
	switch f {
	case FamilyInt32:
		return "int"
	case FamilyFloat32:
		return "float"
	case FamilyFloat64:
		return "double"
	default:
		return f.String()
	}
}

// Validate checks the structural parameters of t.
func (t ColumnType) Validate() error {
	switch {
	case t.Family == FamilyInvalid || t.Family > FamilySparse:
		return fmt.Errorf("invalid type family %d", t.Family)
	case !t.Family.IsStructured():
		return nil
	case t.Dim <= 0:
		return fmt.Errorf("%s dimension must be positive, got %d", t.Family, t.Dim)
	case !t.Elem.IsNumeric():
		return fmt.Errorf("%s element type must be numeric, got %s", t.Family, t.Elem)
	}
	if t.Family == FamilySparse {
		if !t.IndexElem.IsInteger() {
			return fmt.Errorf("sparse index type must be an integer, got %s", t.IndexElem)
		}
		if _, hi := t.IndexElem.IntRange(); int64(t.Dim)-1 > hi {
			return fmt.Errorf("sparse dimension %d does not fit index type %s", t.Dim, t.IndexElem)
		}
	}
	return nil
}

var scalarAliases = map[string]Family{
	"bool":     FamilyBool,
	"boolean":  FamilyBool,
	"int8":     FamilyInt8,
	"tinyint":  FamilyInt8,
	"int16":    FamilyInt16,
	"smallint": FamilyInt16,
	"int":      FamilyInt32,
	"int32":    FamilyInt32,
	"integer":  FamilyInt32,
	"int64":    FamilyInt64,
	"bigint":   FamilyInt64,
	"float16":  FamilyFloat16,
	"bfloat16": FamilyBFloat16,
	"float":    FamilyFloat32,
	"float32":  FamilyFloat32,
	"real":     FamilyFloat32,
	"double":   FamilyFloat64,
	"float64":  FamilyFloat64,
	"varchar":  FamilyVarchar,
	"string":   FamilyVarchar,
}

// ParseType parses a type string such as "int", "vector,3,float" or
// "sparse,100,float,int". Matching is case-insensitive and ignores blanks
// around the comma separated parts.
func ParseType(s string) (ColumnType, error) {
	parts := strings.Split(strings.ToLower(s), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) == 1 {
		f, ok := scalarAliases[parts[0]]
		if !ok {
			return ColumnType{}, fmt.Errorf("unknown column type %q", s)
		}
		return Scalar(f), nil
	}

	var t ColumnType
	switch parts[0] {
	case "vector", "embedding":
		t.Family = FamilyVector
	case "tensor", "multivector":
		t.Family = FamilyTensor
	case "tensorarray":
		t.Family = FamilyTensorArray
	case "sparse":
		t.Family = FamilySparse
	default:
		return ColumnType{}, fmt.Errorf("unknown column type %q", s)
	}

	want := 3
	if t.Family == FamilySparse {
		want = 4
	}
	if len(parts) != want {
		return ColumnType{}, fmt.Errorf("type %q: expected %d comma separated parts, got %d", s, want, len(parts))
	}

	dim, err := strconv.Atoi(parts[1])
	if err != nil {
		return ColumnType{}, fmt.Errorf("type %q: invalid dimension: %w", s, err)
	}
	t.Dim = dim

	elem, ok := scalarAliases[parts[2]]
	if !ok {
		return ColumnType{}, fmt.Errorf("type %q: unknown element type %q", s, parts[2])
	}
	t.Elem = elem

	if t.Family == FamilySparse {
		idx, ok := scalarAliases[parts[3]]
		if !ok {
			return ColumnType{}, fmt.Errorf("type %q: unknown index type %q", s, parts[3])
		}
		t.IndexElem = idx
	}

	if err := t.Validate(); err != nil {
		return ColumnType{}, fmt.Errorf("type %q: %w", s, err)
	}
	return t, nil
}

// MustParseType is like ParseType but panics on error. Intended for tests and
// package-level declarations.
func MustParseType(s string) ColumnType {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

// TypeStrings lists the accepted scalar spellings and structured templates.
func TypeStrings() []string {
	return []string{
		"bool", "int8 | tinyint", "int16 | smallint", "int | int32 | integer", "int64 | bigint",
		"float16", "bfloat16", "float | float32 | real", "double | float64", "varchar",
		"vector,<dim>,<elem>", "tensor,<dim>,<elem>", "tensorarray,<dim>,<elem>",
		"sparse,<dim>,<value elem>,<index elem>",
	}
}
