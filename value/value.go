// Package value defines the tagged variant that carries client-supplied cells
// into the ingestion core.
//
// Conversion from untyped Go values (or decoded JSON / MessagePack payloads)
// happens once at the boundary; everything downstream switches on Kind and
// Shape and never uses reflection.
package value

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an unset Value.
	KindInvalid Kind = iota
	// KindNull represents an explicit null.
	KindNull
	// KindBool represents a boolean literal.
	KindBool
	// KindInt represents a signed integer.
	KindInt
	// KindFloat represents a floating point number.
	KindFloat
	// KindString represents a string or byte payload.
	KindString
	// KindList represents a (possibly nested) sequence.
	KindList
	// KindSparse represents an indices/values pair.
	KindSparse
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSparse:
		return "sparse"
	default:
		return "invalid"
	}
}

// Shape classifies a Value structurally, independent of its element kinds.
type Shape uint8

const (
	ShapeNull Shape = iota
	ShapeScalar
	ShapeFlat
	ShapeNested
	ShapeIndexedPair
)

func (s Shape) String() string {
	switch s {
	case ShapeNull:
		return "null"
	case ShapeScalar:
		return "scalar"
	case ShapeFlat:
		return "flat sequence"
	case ShapeNested:
		return "nested sequence"
	case ShapeIndexedPair:
		return "indexed pair"
	default:
		return "unknown"
	}
}

// SparsePair is the {indices, values} form of a sparse vector.
type SparsePair struct {
	Indices []Value
	Values  []Value
}

// Value is a small tagged union. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind
	I64  int64
	F64  float64
	S    string
	B    bool
	A    []Value
	Sp   *SparsePair
}

// Row is one logical client row: column name to value. Column order carries
// no meaning.
type Row map[string]Value

// Null returns an explicit null.
func Null() Value { return Value{Kind: KindNull} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{Kind: KindInt, I64: i} }

// Float returns a float Value.
func Float(f float64) Value { return Value{Kind: KindFloat, F64: f} }

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, S: s} }

// List returns a sequence Value.
func List(vs ...Value) Value { return Value{Kind: KindList, A: vs} }

// Sparse returns an indexed pair Value.
func Sparse(indices, values []Value) Value {
	return Value{Kind: KindSparse, Sp: &SparsePair{Indices: indices, Values: values}}
}

// Ints returns a flat sequence of integers.
func Ints(xs ...int64) Value {
	out := make([]Value, len(xs))
	for i, x := range xs {
		out[i] = Int(x)
	}
	return List(out...)
}

// Floats returns a flat sequence of floats.
func Floats(xs ...float64) Value {
	out := make([]Value, len(xs))
	for i, x := range xs {
		out[i] = Float(x)
	}
	return List(out...)
}

// IsNull reports whether v is an explicit null or unset.
func (v Value) IsNull() bool { return v.Kind == KindNull || v.Kind == KindInvalid }

// IsNumeric reports whether v is an integer or float.
func (v Value) IsNumeric() bool { return v.Kind == KindInt || v.Kind == KindFloat }

// Shape reports the structural shape of v.
//
// A list is nested when its first element is itself a list; mixed lists are
// reported by their first element and rejected later by the coercer.
func (v Value) Shape() Shape {
	switch v.Kind {
	case KindNull, KindInvalid:
		return ShapeNull
	case KindList:
		if len(v.A) > 0 && v.A[0].Kind == KindList {
			return ShapeNested
		}
		return ShapeFlat
	case KindSparse:
		return ShapeIndexedPair
	default:
		return ShapeScalar
	}
}

// Equal reports deep equality. Ints and floats never compare equal to each other.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return v.IsNull() && o.IsNull()
	}
	switch v.Kind {
	case KindBool:
		return v.B == o.B
	case KindInt:
		return v.I64 == o.I64
	case KindFloat:
		return v.F64 == o.F64 || (math.IsNaN(v.F64) && math.IsNaN(o.F64))
	case KindString:
		return v.S == o.S
	case KindList:
		return equalSlices(v.A, o.A)
	case KindSparse:
		if v.Sp == nil || o.Sp == nil {
			return v.Sp == o.Sp
		}
		return equalSlices(v.Sp.Indices, o.Sp.Indices) && equalSlices(v.Sp.Values, o.Sp.Values)
	default:
		return true
	}
}

func equalSlices(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Interface converts v back to plain Go values (nil, bool, int64, float64,
// string, []any, map[string]any).
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.B
	case KindInt:
		return v.I64
	case KindFloat:
		return v.F64
	case KindString:
		return v.S
	case KindList:
		out := make([]any, len(v.A))
		for i, e := range v.A {
			out[i] = e.Interface()
		}
		return out
	case KindSparse:
		return map[string]any{
			"indices": List(v.Sp.Indices...).Interface(),
			"values":  List(v.Sp.Values...).Interface(),
		}
	default:
		return nil
	}
}

// String renders v for logs and CLI output.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindInt:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.S)
	case KindList:
		parts := make([]string, len(v.A))
		for i, e := range v.A {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindSparse:
		return fmt.Sprintf("{indices: %s, values: %s}", List(v.Sp.Indices...), List(v.Sp.Values...))
	default:
		return "null"
	}
}

// FromAny converts an untyped client value.
//
// Supported inputs: nil, bool, all Go integer and float types, string,
// []byte, Value, slices/arrays of any supported type, and maps with exactly
// the keys "indices" and "values" (sparse). A uint64 above MaxInt64 keeps
// its bit pattern. Any other map is rejected.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Int(int64(t)), nil //nolint:gosec // wraparound is the documented behaviour
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Int(int64(t)), nil //nolint:gosec // wraparound is the documented behaviour
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case []byte:
		return String(string(t)), nil
	case []any:
		return fromSlice(len(t), func(i int) any { return t[i] })
	case []int64:
		return Ints(t...), nil
	case []float64:
		return Floats(t...), nil
	case map[string]any:
		return fromMap(t)
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return fromSlice(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return fromMap(m)
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), nil
		}
		return FromAny(rv.Elem().Interface())
	}
	return Value{}, fmt.Errorf("unsupported value type %T", x)
}

func fromSlice(n int, at func(int) any) (Value, error) {
	out := make([]Value, n)
	for i := range n {
		v, err := FromAny(at(i))
		if err != nil {
			return Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return List(out...), nil
}

func fromMap(m map[string]any) (Value, error) {
	idx, okI := m["indices"]
	vals, okV := m["values"]
	if !okI || !okV || len(m) != 2 {
		return Value{}, fmt.Errorf("unsupported object value: expected keys \"indices\" and \"values\"")
	}
	iv, err := FromAny(idx)
	if err != nil {
		return Value{}, fmt.Errorf("indices: %w", err)
	}
	vv, err := FromAny(vals)
	if err != nil {
		return Value{}, fmt.Errorf("values: %w", err)
	}
	if iv.Kind != KindList || vv.Kind != KindList {
		return Value{}, fmt.Errorf("sparse indices and values must be sequences")
	}
	return Sparse(iv.A, vv.A), nil
}

// FromMap converts one untyped client row.
func FromMap(m map[string]any) (Row, error) {
	row := make(Row, len(m))
	for k, x := range m {
		v, err := FromAny(x)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", k, err)
		}
		row[k] = v
	}
	return row, nil
}

// FromMaps converts a list of untyped client rows.
func FromMaps(ms ...map[string]any) ([]Row, error) {
	rows := make([]Row, len(ms))
	for i, m := range ms {
		r, err := FromMap(m)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = r
	}
	return rows, nil
}
