package coerce

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecingest/internal/half"
	"github.com/hupe1980/vecingest/schema"
	"github.com/hupe1980/vecingest/status"
	"github.com/hupe1980/vecingest/value"
)

func col(typ string) *schema.ColumnSchema {
	return &schema.ColumnSchema{Name: "c", Type: schema.MustParseType(typ)}
}

func TestCoerce_ScalarRoundTrip(t *testing.T) {
	c := New(OverflowWrap)
	tests := []struct {
		typ  string
		in   value.Value
		want value.Value
	}{
		{"bool", value.Bool(true), value.Bool(true)},
		{"int8", value.Int(-128), value.Int(-128)},
		{"int16", value.Int(32767), value.Int(32767)},
		{"int", value.Int(-7), value.Int(-7)},
		{"int64", value.Int(math.MinInt64), value.Int(math.MinInt64)},
		{"float", value.Float(0.5), value.Float(0.5)},
		{"float", value.Int(3), value.Float(3)},
		{"double", value.Float(1.1), value.Float(1.1)},
		{"double", value.Int(-9), value.Float(-9)},
		{"int", value.Float(2.9), value.Int(2)},
		{"int", value.Float(-2.9), value.Int(-2)},
		{"varchar", value.String("hello"), value.String("hello")},
		{"varchar", value.String(""), value.String("")},
		{"float16", value.Float(1.1), value.Float(float64(half.RoundFloat16(1.1)))},
		{"bfloat16", value.Float(-9.9), value.Float(float64(half.RoundBFloat16(-9.9)))},
	}
	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.in.String(), func(t *testing.T) {
			cl := col(tt.typ)
			cell, err := c.Coerce(tt.in, cl)
			require.NoError(t, err)
			if cl.Type.Family != schema.FamilyVarchar {
				assert.Len(t, cell.Data, cl.Type.FixedWidth())
			}
			assert.Equal(t, tt.want, Decode(cell.Data, cl.Type.Family))
		})
	}
}

func TestCoerce_LargeVarchar(t *testing.T) {
	s := strings.Repeat("a", 64*1024)
	cell, err := New(OverflowWrap).Coerce(value.String(s), col("varchar"))
	require.NoError(t, err)
	assert.Equal(t, s, string(cell.Data))
}

func TestCoerce_FloatBitsAreExact(t *testing.T) {
	cell, err := New(OverflowWrap).Coerce(value.Float(1.1), col("float"))
	require.NoError(t, err)
	assert.Equal(t, math.Float32bits(1.1), binary.LittleEndian.Uint32(cell.Data))
}

func TestCoerce_Overflow(t *testing.T) {
	tests := []struct {
		name   string
		typ    string
		in     value.Value
		policy OverflowPolicy
		want   value.Value
		code   status.Code
	}{
		{"wrap int32", "int", value.Int(math.MaxInt64), OverflowWrap, value.Int(-1), status.OK},
		{"wrap int8", "int8", value.Int(200), OverflowWrap, value.Int(-56), status.OK},
		{"wrap int16", "int16", value.Int(-32769), OverflowWrap, value.Int(32767), status.OK},
		{"saturate int8", "int8", value.Int(200), OverflowSaturate, value.Int(127), status.OK},
		{"saturate int32 low", "int", value.Int(math.MinInt64), OverflowSaturate, value.Int(math.MinInt32), status.OK},
		{"saturate float to int64", "int64", value.Float(1e30), OverflowSaturate, value.Int(math.MaxInt64), status.OK},
		{"reject int8", "int8", value.Int(128), OverflowReject, value.Value{}, status.ValueOutOfRange},
		{"reject NaN to int", "int", value.Float(math.NaN()), OverflowReject, value.Value{}, status.ValueOutOfRange},
		{"wrap NaN to int", "int", value.Float(math.NaN()), OverflowWrap, value.Value{}, status.TypeMismatch},
		{"saturate NaN to int8", "int8", value.Float(math.NaN()), OverflowSaturate, value.Value{}, status.TypeMismatch},
		{"reject keeps in range", "int8", value.Int(-128), OverflowReject, value.Int(-128), status.OK},
		{"wrap float32", "float", value.Float(1e300), OverflowWrap, value.Float(math.Inf(1)), status.OK},
		{"saturate float32", "float", value.Float(-1e300), OverflowSaturate, value.Float(-math.MaxFloat32), status.OK},
		{"reject float32", "float", value.Float(1e300), OverflowReject, value.Value{}, status.ValueOutOfRange},
		{"wrap float16", "float16", value.Int(70000), OverflowWrap, value.Float(math.Inf(1)), status.OK},
		{"saturate float16", "float16", value.Int(70000), OverflowSaturate, value.Float(half.MaxFloat16), status.OK},
		{"reject float16", "float16", value.Float(-1e6), OverflowReject, value.Value{}, status.ValueOutOfRange},
		{"inf passes through", "float", value.Float(math.Inf(-1)), OverflowReject, value.Float(math.Inf(-1)), status.OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := col(tt.typ)
			cell, err := New(tt.policy).Coerce(tt.in, cl)
			if tt.code != status.OK {
				require.Error(t, err)
				assert.Equal(t, tt.code, status.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, Decode(cell.Data, cl.Type.Family))
		})
	}
}

func TestCoerce_ScalarErrors(t *testing.T) {
	c := New(OverflowWrap)
	tests := []struct {
		name string
		typ  string
		in   value.Value
		code status.Code
	}{
		{"int into bool", "bool", value.Int(1), status.TypeMismatch},
		{"string into bool", "bool", value.String("true"), status.TypeMismatch},
		{"string into int", "int", value.String("1"), status.TypeMismatch},
		{"bool into int", "int", value.Bool(true), status.TypeMismatch},
		{"bool into float", "float", value.Bool(false), status.TypeMismatch},
		{"int into varchar", "varchar", value.Int(1), status.TypeMismatch},
		{"list into int", "int", value.Ints(1, 2), status.NotSupported},
		{"nested list into varchar", "varchar", value.List(value.Ints(1, 2)), status.NotSupported},
		{"mixed list into varchar", "varchar", value.List(value.Int(1), value.Ints(2)), status.NotSupported},
		{"sparse into varchar", "varchar", value.Sparse([]value.Value{value.Int(0)}, []value.Value{value.Float(1)}), status.NotSupported},
		{"sparse into float", "float", value.Sparse(nil, nil), status.NotSupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Coerce(tt.in, col(tt.typ))
			require.Error(t, err)
			assert.Equal(t, tt.code, status.CodeOf(err), err.Error())
		})
	}
}

func TestCoerce_FlatListIntoVarchar(t *testing.T) {
	tests := []struct {
		name string
		in   value.Value
		want string
	}{
		{"ints", value.Ints(1, 2, 3), "[1, 2, 3]"},
		{"floats", value.Floats(0.5, -2), "[0.5, -2]"},
		{"strings unquoted", value.List(value.String("a"), value.String("b c")), "[a, b c]"},
		{"mixed scalars", value.List(value.Bool(true), value.Int(7)), "[true, 7]"},
		{"empty", value.List(), "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell, err := New(OverflowWrap).Coerce(tt.in, col("varchar"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(cell.Data))
		})
	}
}

func TestCoerce_Vector(t *testing.T) {
	c := New(OverflowWrap)
	cl := col("vector,3,int")

	cell, err := c.Coerce(value.Ints(1, 2, 3), cl)
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Int(1), value.Int(2), value.Int(3)}, DecodeSeq(cell.Data, schema.FamilyInt32, 3))

	cell, err = c.Coerce(value.Floats(1.9, -2.9, 3), cl)
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Int(1), value.Int(-2), value.Int(3)}, DecodeSeq(cell.Data, schema.FamilyInt32, 3))

	errs := []struct {
		name string
		in   value.Value
		code status.Code
	}{
		{"int scalar", value.Int(1), status.NotSupported},
		{"float scalar", value.Float(1.1), status.NotSupported},
		{"string scalar", value.String("str"), status.NotSupported},
		{"sparse", value.Sparse([]value.Value{value.Int(0)}, []value.Value{value.Int(1)}), status.NotSupported},
		{"too short", value.Ints(1, 2), status.DimensionMismatch},
		{"too long", value.Ints(1, 2, 3, 4), status.DimensionMismatch},
		{"empty", value.List(), status.DimensionMismatch},
		{"string element", value.List(value.Int(1), value.String("a"), value.Int(3)), status.TypeMismatch},
		{"nested", value.List(value.Ints(1, 2, 3)), status.TypeMismatch},
		{"mixed", value.List(value.Int(1), value.Ints(2), value.Int(3)), status.TypeMismatch},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Coerce(tt.in, cl)
			require.Error(t, err)
			assert.Equal(t, tt.code, status.CodeOf(err), err.Error())
		})
	}
}

func TestCoerce_TensorFlatEqualsNested(t *testing.T) {
	c := New(OverflowWrap)
	cl := col("tensor,3,int")

	flat, err := c.Coerce(value.Ints(7, 8, 9, -7, -8, -9), cl)
	require.NoError(t, err)
	nested, err := c.Coerce(value.List(value.Ints(7, 8, 9), value.Ints(-7, -8, -9)), cl)
	require.NoError(t, err)
	assert.Equal(t, flat.Data, nested.Data)
	assert.Len(t, flat.Data, 6*4)

	single, err := c.Coerce(value.Ints(1, 2, 3), cl)
	require.NoError(t, err)
	wrapped, err := c.Coerce(value.List(value.Ints(1, 2, 3)), cl)
	require.NoError(t, err)
	assert.Equal(t, single.Data, wrapped.Data)
}

func TestCoerce_TensorErrors(t *testing.T) {
	c := New(OverflowWrap)
	cl := col("tensor,3,float")
	tests := []struct {
		name string
		in   value.Value
		code status.Code
	}{
		{"scalar", value.Float(1), status.NotSupported},
		{"empty", value.List(), status.DimensionMismatch},
		{"not multiple", value.Floats(1, 2, 3, 4), status.DimensionMismatch},
		{"short row", value.List(value.Floats(1, 2, 3), value.Floats(1, 2)), status.DimensionMismatch},
		{"scalar after row", value.List(value.Floats(1, 2, 3), value.Float(4)), status.TypeMismatch},
		{"string element", value.List(value.Float(1), value.String("x"), value.Float(3)), status.TypeMismatch},
		{"too deep", value.List(value.List(value.Floats(1, 2, 3), value.Floats(1), value.Floats(2))), status.TypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Coerce(tt.in, cl)
			require.Error(t, err)
			assert.Equal(t, tt.code, status.CodeOf(err), err.Error())
		})
	}
}

func TestCoerce_TensorArray(t *testing.T) {
	c := New(OverflowWrap)
	cl := col("tensorarray,2,int")

	in := value.List(
		value.List(value.Ints(1, 2), value.Ints(3, 4)),
		value.List(value.Ints(5, 6)),
	)
	cell, err := c.Coerce(in, cl)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 1}, cell.TensorLens)
	assert.Equal(t, value.Ints(1, 2, 3, 4, 5, 6).A, DecodeSeq(cell.Data, schema.FamilyInt32, 6))

	flatTensors, err := c.Coerce(value.List(value.Ints(1, 2, 3, 4), value.Ints(5, 6)), cl)
	require.NoError(t, err)
	assert.Equal(t, cell.Data, flatTensors.Data)
	assert.Equal(t, cell.TensorLens, flatTensors.TensorLens)

	for name, tt := range map[string]struct {
		in   value.Value
		code status.Code
	}{
		"scalar":        {value.Int(1), status.NotSupported},
		"empty":         {value.List(), status.DimensionMismatch},
		"scalar tensor": {value.Ints(1, 2), status.TypeMismatch},
		"empty tensor":  {value.List(value.List()), status.DimensionMismatch},
		"bad dim":       {value.List(value.Ints(1, 2, 3)), status.DimensionMismatch},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Coerce(tt.in, cl)
			require.Error(t, err)
			assert.Equal(t, tt.code, status.CodeOf(err), err.Error())
		})
	}
}

func TestCoerce_Sparse(t *testing.T) {
	c := New(OverflowWrap)
	cl := col("sparse,100,float,int")

	idx := []value.Value{value.Int(10), value.Int(20), value.Int(30), value.Int(10)}
	vals := []value.Value{value.Float(1.1), value.Float(2.2), value.Float(3.3), value.Float(4.4)}
	cell, err := c.Coerce(value.Sparse(idx, vals), cl)
	require.NoError(t, err)
	assert.Equal(t, idx, DecodeSeq(cell.Index, schema.FamilyInt32, 4))
	got := DecodeSeq(cell.Data, schema.FamilyFloat32, 4)
	for i := range vals {
		assert.Equal(t, float64(float32(vals[i].F64)), got[i].F64)
	}

	empty, err := c.Coerce(value.Sparse(nil, nil), cl)
	require.NoError(t, err)
	assert.Empty(t, empty.Data)

	tests := []struct {
		name string
		in   value.Value
		code status.Code
	}{
		{"flat", value.Floats(1, 2), status.NotSupported},
		{"scalar", value.Float(1), status.NotSupported},
		{"length mismatch", value.Sparse([]value.Value{value.Int(1)}, nil), status.DimensionMismatch},
		{"index too large", value.Sparse([]value.Value{value.Int(100)}, []value.Value{value.Float(1)}), status.DimensionMismatch},
		{"negative index", value.Sparse([]value.Value{value.Int(-1)}, []value.Value{value.Float(1)}), status.DimensionMismatch},
		{"float index", value.Sparse([]value.Value{value.Float(1)}, []value.Value{value.Float(1)}), status.TypeMismatch},
		{"string value", value.Sparse([]value.Value{value.Int(1)}, []value.Value{value.String("x")}), status.TypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Coerce(tt.in, cl)
			require.Error(t, err)
			assert.Equal(t, tt.code, status.CodeOf(err), err.Error())
		})
	}
}

func TestCoerce_Absent(t *testing.T) {
	c := New(OverflowWrap)
	def := value.Int(1)

	cell, err := c.Coerce(value.Null(), &schema.ColumnSchema{Name: "c", Type: schema.Scalar(schema.FamilyInt8), Default: &def})
	require.NoError(t, err)
	assert.True(t, cell.IsDefault)
	assert.Equal(t, []byte{1}, cell.Data)

	cell, err = c.Coerce(value.Value{}, &schema.ColumnSchema{Name: "c", Type: schema.Scalar(schema.FamilyInt8), Nullable: true})
	require.NoError(t, err)
	assert.True(t, cell.Null)

	_, err = c.Coerce(value.Null(), col("int"))
	assert.Equal(t, status.MissingValue, status.CodeOf(err))
}

func TestCheckDefault(t *testing.T) {
	c := New(OverflowWrap)
	good := value.Floats(0, 0, 0)
	bad := value.String("x")
	null := value.Null()

	assert.NoError(t, c.CheckDefault(&schema.ColumnSchema{Name: "v", Type: schema.Vector(3, schema.FamilyFloat32), Default: &good}))
	assert.NoError(t, c.CheckDefault(col("int")))

	err := c.CheckDefault(&schema.ColumnSchema{Name: "v", Type: schema.Scalar(schema.FamilyInt32), Default: &bad})
	assert.Equal(t, status.InvalidColumnDefinition, status.CodeOf(err))

	err = c.CheckDefault(&schema.ColumnSchema{Name: "v", Type: schema.Scalar(schema.FamilyInt32), Default: &null})
	assert.Equal(t, status.InvalidColumnDefinition, status.CodeOf(err))
}

func TestParseOverflowPolicy(t *testing.T) {
	for _, p := range []OverflowPolicy{OverflowWrap, OverflowSaturate, OverflowReject} {
		got, err := ParseOverflowPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseOverflowPolicy("clip")
	assert.Error(t, err)
}
