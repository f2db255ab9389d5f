package coerce

import (
	"github.com/hupe1980/vecingest/schema"
	"github.com/hupe1980/vecingest/status"
	"github.com/hupe1980/vecingest/value"
)

func notSupported(v value.Value, t schema.ColumnType) error {
	return status.Errorf(status.NotSupported, "cannot store %s in %s column", v.Shape(), t)
}

// elements appends every element of a flat sequence as t.Elem.
func (c *Coercer) elements(dst []byte, elems []value.Value, t schema.ColumnType) ([]byte, error) {
	var err error
	for _, e := range elems {
		if e.Kind == value.KindList || e.Kind == value.KindSparse {
			return nil, status.Errorf(status.TypeMismatch, "%s element expected, got %s", t.Elem, e.Shape())
		}
		if dst, err = c.appendScalar(dst, e, t.Elem); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func (c *Coercer) vector(v value.Value, t schema.ColumnType) (Cell, error) {
	switch v.Shape() {
	case value.ShapeScalar, value.ShapeIndexedPair:
		return Cell{}, notSupported(v, t)
	case value.ShapeNested:
		return Cell{}, status.Errorf(status.TypeMismatch, "%s column expects a flat sequence", t)
	}
	if len(v.A) != t.Dim {
		return Cell{}, status.Errorf(status.DimensionMismatch, "expected %d elements, got %d", t.Dim, len(v.A))
	}
	data, err := c.elements(make([]byte, 0, t.Dim*t.Elem.Width()), v.A, t)
	if err != nil {
		return Cell{}, err
	}
	return Cell{Data: data}, nil
}

func (c *Coercer) tensor(v value.Value, t schema.ColumnType) (Cell, error) {
	switch v.Shape() {
	case value.ShapeScalar, value.ShapeIndexedPair:
		return Cell{}, notSupported(v, t)
	}
	data, _, err := c.appendTensor(nil, v, t)
	if err != nil {
		return Cell{}, err
	}
	return Cell{Data: data}, nil
}

// appendTensor encodes one tensor, given either as a flat sequence of k*dim
// elements or as k sub-sequences of dim elements, and returns k.
func (c *Coercer) appendTensor(dst []byte, v value.Value, t schema.ColumnType) ([]byte, int, error) {
	if v.Kind != value.KindList {
		return nil, 0, status.Errorf(status.TypeMismatch, "tensor expected, got %s", v.Shape())
	}
	if len(v.A) == 0 {
		return nil, 0, status.Errorf(status.DimensionMismatch, "empty tensor, expected a multiple of %d elements", t.Dim)
	}

	if v.Shape() == value.ShapeFlat {
		if len(v.A)%t.Dim != 0 {
			return nil, 0, status.Errorf(status.DimensionMismatch, "expected a multiple of %d elements, got %d", t.Dim, len(v.A))
		}
		out, err := c.elements(dst, v.A, t)
		if err != nil {
			return nil, 0, err
		}
		return out, len(v.A) / t.Dim, nil
	}

	for i, sub := range v.A {
		if sub.Kind != value.KindList {
			return nil, 0, status.Errorf(status.TypeMismatch, "tensor row %d: sequence expected, got %s", i, sub.Kind)
		}
		if len(sub.A) != t.Dim {
			return nil, 0, status.Errorf(status.DimensionMismatch, "tensor row %d: expected %d elements, got %d", i, t.Dim, len(sub.A))
		}
		var err error
		if dst, err = c.elements(dst, sub.A, t); err != nil {
			return nil, 0, err
		}
	}
	return dst, len(v.A), nil
}

func (c *Coercer) tensorArray(v value.Value, t schema.ColumnType) (Cell, error) {
	switch v.Shape() {
	case value.ShapeScalar, value.ShapeIndexedPair:
		return Cell{}, notSupported(v, t)
	}
	if len(v.A) == 0 {
		return Cell{}, status.New(status.DimensionMismatch, "tensor array needs at least one tensor")
	}

	var (
		data []byte
		lens = make([]uint32, 0, len(v.A))
	)
	for i, tensor := range v.A {
		if tensor.Kind != value.KindList {
			return Cell{}, status.Errorf(status.TypeMismatch, "tensor array element %d: tensor expected, got %s", i, tensor.Shape())
		}
		var (
			k   int
			err error
		)
		if data, k, err = c.appendTensor(data, tensor, t); err != nil {
			return Cell{}, err
		}
		lens = append(lens, uint32(k)) //nolint:gosec // bounded by the payload length
	}
	return Cell{Data: data, TensorLens: lens}, nil
}

func (c *Coercer) sparse(v value.Value, t schema.ColumnType) (Cell, error) {
	if v.Kind != value.KindSparse || v.Sp == nil {
		return Cell{}, notSupported(v, t)
	}
	idx, vals := v.Sp.Indices, v.Sp.Values
	if len(idx) != len(vals) {
		return Cell{}, status.Errorf(status.DimensionMismatch, "sparse indices (%d) and values (%d) differ in length", len(idx), len(vals))
	}

	index := make([]byte, 0, len(idx)*t.IndexElem.Width())
	for i, x := range idx {
		if x.Kind != value.KindInt {
			return Cell{}, status.Errorf(status.TypeMismatch, "sparse index %d: integer expected, got %s", i, x.Kind)
		}
		if x.I64 < 0 || x.I64 >= int64(t.Dim) {
			return Cell{}, status.Errorf(status.DimensionMismatch, "sparse index %d out of range [0, %d)", x.I64, t.Dim)
		}
		index = appendInt(index, x.I64, t.IndexElem)
	}

	data, err := c.elements(make([]byte, 0, len(vals)*t.Elem.Width()), vals, t)
	if err != nil {
		return Cell{}, err
	}
	return Cell{Data: data, Index: index}, nil
}
