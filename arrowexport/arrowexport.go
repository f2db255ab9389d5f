// Package arrowexport converts sealed column batches into Apache Arrow
// records for zero-friction hand-off to Arrow-based consumers.
//
// Type mapping:
//
//	bool                 -> boolean
//	int8..int64          -> int8..int64
//	float16              -> float16
//	bfloat16, float      -> float32
//	double               -> float64
//	varchar              -> utf8
//	vector<dim, e>       -> fixed_size_list<dim, e>
//	tensor<dim, e>       -> list<fixed_size_list<dim, e>>
//	tensorarray<dim, e>  -> list<list<fixed_size_list<dim, e>>>
//	sparse<dim, v, i>    -> struct<indices: list<i>, values: list<v>>
//
// Every field carries the original type string under the "vecingest.type"
// metadata key.
package arrowexport

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hupe1980/vecingest/batch"
	"github.com/hupe1980/vecingest/schema"
	"github.com/hupe1980/vecingest/value"
)

// TypeMetadataKey is the field metadata key holding the column type string.
const TypeMetadataKey = "vecingest.type"

// DataType returns the Arrow type for t.
func DataType(t schema.ColumnType) (arrow.DataType, error) {
	switch t.Family {
	case schema.FamilyVector:
		elem, err := scalarType(t.Elem)
		if err != nil {
			return nil, err
		}
		return arrow.FixedSizeListOf(int32(t.Dim), elem), nil //nolint:gosec // dim is validated at table creation
	case schema.FamilyTensor:
		elem, err := scalarType(t.Elem)
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(arrow.FixedSizeListOf(int32(t.Dim), elem)), nil //nolint:gosec // dim is validated at table creation
	case schema.FamilyTensorArray:
		elem, err := scalarType(t.Elem)
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(arrow.ListOf(arrow.FixedSizeListOf(int32(t.Dim), elem))), nil //nolint:gosec // dim is validated at table creation
	case schema.FamilySparse:
		idx, err := scalarType(t.IndexElem)
		if err != nil {
			return nil, err
		}
		val, err := scalarType(t.Elem)
		if err != nil {
			return nil, err
		}
		return arrow.StructOf(
			arrow.Field{Name: "indices", Type: arrow.ListOf(idx)},
			arrow.Field{Name: "values", Type: arrow.ListOf(val)},
		), nil
	default:
		return scalarType(t.Family)
	}
}

func scalarType(f schema.Family) (arrow.DataType, error) {
	switch f {
	case schema.FamilyBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case schema.FamilyInt8:
		return arrow.PrimitiveTypes.Int8, nil
	case schema.FamilyInt16:
		return arrow.PrimitiveTypes.Int16, nil
	case schema.FamilyInt32:
		return arrow.PrimitiveTypes.Int32, nil
	case schema.FamilyInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case schema.FamilyFloat16:
		return arrow.FixedWidthTypes.Float16, nil
	case schema.FamilyBFloat16, schema.FamilyFloat32:
		return arrow.PrimitiveTypes.Float32, nil
	case schema.FamilyFloat64:
		return arrow.PrimitiveTypes.Float64, nil
	case schema.FamilyVarchar:
		return arrow.BinaryTypes.String, nil
	default:
		return nil, fmt.Errorf("arrowexport: no arrow type for %s", f)
	}
}

// Schema returns the Arrow schema for s.
func Schema(s *schema.TableSchema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, s.NumColumns())
	for i := range s.NumColumns() {
		col := s.Column(i)
		dt, err := DataType(col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		fields[i] = arrow.Field{
			Name:     col.Name,
			Type:     dt,
			Nullable: col.Nullable,
			Metadata: arrow.NewMetadata([]string{TypeMetadataKey}, []string{col.Type.String()}),
		}
	}
	return arrow.NewSchema(fields, nil), nil
}

// Record converts b. The caller must Release the returned record.
// A nil allocator means memory.DefaultAllocator.
func Record(b *batch.ColumnBatch, mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	sc, err := Schema(b.Schema())
	if err != nil {
		return nil, err
	}

	rb := array.NewRecordBuilder(mem, sc)
	defer rb.Release()

	for i, col := range b.Columns() {
		fb := rb.Field(i)
		for r := range b.NumRows() {
			if col.IsNull(r) {
				fb.AppendNull()
				continue
			}
			if err := appendValue(fb, col.Value(r)); err != nil {
				return nil, fmt.Errorf("arrowexport: column %q row %d: %w", col.Name, r, err)
			}
		}
	}
	return rb.NewRecord(), nil
}

func appendValue(b array.Builder, v value.Value) error {
	switch b := b.(type) {
	case *array.BooleanBuilder:
		b.Append(v.B)
	case *array.Int8Builder:
		b.Append(int8(v.I64)) //nolint:gosec // value was coerced to the column width
	case *array.Int16Builder:
		b.Append(int16(v.I64)) //nolint:gosec // value was coerced to the column width
	case *array.Int32Builder:
		b.Append(int32(v.I64)) //nolint:gosec // value was coerced to the column width
	case *array.Int64Builder:
		b.Append(v.I64)
	case *array.Float16Builder:
		b.Append(float16.New(float32(v.F64)))
	case *array.Float32Builder:
		b.Append(float32(v.F64))
	case *array.Float64Builder:
		b.Append(v.F64)
	case *array.StringBuilder:
		b.Append(v.S)
	case *array.FixedSizeListBuilder:
		b.Append(true)
		return appendAll(b.ValueBuilder(), v.A)
	case *array.ListBuilder:
		b.Append(true)
		return appendAll(b.ValueBuilder(), v.A)
	case *array.StructBuilder:
		if v.Sp == nil {
			return fmt.Errorf("expected sparse pair, got %s", v.Kind)
		}
		b.Append(true)
		if err := appendValue(b.FieldBuilder(0), value.List(v.Sp.Indices...)); err != nil {
			return err
		}
		return appendValue(b.FieldBuilder(1), value.List(v.Sp.Values...))
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

func appendAll(b array.Builder, vs []value.Value) error {
	for _, e := range vs {
		if err := appendValue(b, e); err != nil {
			return err
		}
	}
	return nil
}
