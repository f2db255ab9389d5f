package arrowexport

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecingest/batch"
	"github.com/hupe1980/vecingest/coerce"
	"github.com/hupe1980/vecingest/schema"
	"github.com/hupe1980/vecingest/value"
)

func TestRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	s, err := schema.FromDefs([]schema.ColumnDef{
		{Name: "id", Type: "int64"},
		{Name: "ok", Type: "bool"},
		{Name: "h", Type: "float16"},
		{Name: "name", Type: "varchar", Constraints: []string{"null"}},
		{Name: "vec", Type: "vector,3,float"},
		{Name: "ten", Type: "tensor,2,int"},
		{Name: "ta", Type: "tensorarray,2,int8"},
		{Name: "sp", Type: "sparse,100,double,int16"},
	})
	require.NoError(t, err)

	rows := []value.Row{
		{
			"id": value.Int(1), "ok": value.Bool(true), "h": value.Float(0.5),
			"name": value.String("a"), "vec": value.Floats(1, 2, 3),
			"ten": value.Ints(1, 2, 3, 4),
			"ta":  value.List(value.Ints(1, 2), value.Ints(3, 4, 5, 6)),
			"sp":  value.Sparse(value.Ints(10, 20).A, value.Floats(1.5, 2.5).A),
		},
		{
			"id": value.Int(2), "ok": value.Bool(false), "h": value.Float(-2),
			"vec": value.Floats(4, 5, 6), "ten": value.Ints(7, 8),
			"ta": value.List(value.Ints(9, 9)),
			"sp": value.Sparse(nil, nil),
		},
	}
	a, err := batch.NewAssembler(s, coerce.New(coerce.OverflowWrap), batch.Options{})
	require.NoError(t, err)
	b, err := a.Assemble(context.Background(), rows)
	require.NoError(t, err)

	rec, err := Record(b, mem)
	require.NoError(t, err)
	defer rec.Release()

	require.Equal(t, int64(2), rec.NumRows())
	require.Equal(t, int64(8), rec.NumCols())

	sc := rec.Schema()
	assert.True(t, sc.Field(3).Nullable)
	assert.False(t, sc.Field(0).Nullable)
	typ, ok := sc.Field(4).Metadata.GetValue(TypeMetadataKey)
	require.True(t, ok)
	assert.Equal(t, "vector,3,float", typ)

	ids := rec.Column(0).(*array.Int64)
	assert.Equal(t, []int64{1, 2}, ids.Int64Values())

	assert.True(t, rec.Column(1).(*array.Boolean).Value(0))
	assert.InDelta(t, -2.0, rec.Column(2).(*array.Float16).Value(1).Float32(), 0)

	names := rec.Column(3).(*array.String)
	assert.Equal(t, "a", names.Value(0))
	assert.True(t, names.IsNull(1))

	vec := rec.Column(4).(*array.FixedSizeList)
	vals := vec.ListValues().(*array.Float32)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, vals.Float32Values())

	ten := rec.Column(5).(*array.List)
	start, end := ten.ValueOffsets(0)
	assert.Equal(t, int64(2), end-start, "two sub-vectors in row 0")
	start, end = ten.ValueOffsets(1)
	assert.Equal(t, int64(1), end-start)

	ta := rec.Column(6).(*array.List)
	start, end = ta.ValueOffsets(0)
	assert.Equal(t, int64(2), end-start, "two tensors in row 0")

	sp := rec.Column(7).(*array.Struct)
	idx := sp.Field(0).(*array.List)
	assert.Equal(t, []int16{10, 20}, idx.ListValues().(*array.Int16).Int16Values())
	start, end = idx.ValueOffsets(1)
	assert.Equal(t, start, end, "empty sparse row")
}

func TestDataType(t *testing.T) {
	tests := []struct {
		typ  string
		want arrow.DataType
	}{
		{"bool", arrow.FixedWidthTypes.Boolean},
		{"bfloat16", arrow.PrimitiveTypes.Float32},
		{"double", arrow.PrimitiveTypes.Float64},
		{"varchar", arrow.BinaryTypes.String},
		{"vector,4,int8", arrow.FixedSizeListOf(4, arrow.PrimitiveTypes.Int8)},
		{"tensor,2,float", arrow.ListOf(arrow.FixedSizeListOf(2, arrow.PrimitiveTypes.Float32))},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			dt, err := DataType(schema.MustParseType(tt.typ))
			require.NoError(t, err)
			assert.True(t, arrow.TypeEqual(tt.want, dt), "got %s", dt)
		})
	}
}
