package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecingest/coerce"
	"github.com/hupe1980/vecingest/schema"
	"github.com/hupe1980/vecingest/validate"
)

func TestUniformVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))
	assert.LessOrEqual(t, v[0][0], float32(1.0))
	assert.GreaterOrEqual(t, v[1][0], float32(0.0))
}

func TestReset(t *testing.T) {
	rng := NewRNG(42)
	a := rng.Intn(1000)
	rng.Reset()
	assert.Equal(t, a, rng.Intn(1000))
	assert.Equal(t, int64(42), rng.Seed())
}

func TestRows_ValidAndCoercible(t *testing.T) {
	s, err := schema.FromDefs([]schema.ColumnDef{
		{Name: "id", Type: "bigint", Constraints: []string{"primary key"}},
		{Name: "flag", Type: "bool", Default: false},
		{Name: "i8", Type: "int8"},
		{Name: "half", Type: "float16", Constraints: []string{"null"}},
		{Name: "name", Type: "varchar", Constraints: []string{"null"}},
		{Name: "vec", Type: "vector,16,float"},
		{Name: "ten", Type: "tensor,4,bfloat16"},
		{Name: "ta", Type: "tensorarray,2,int16"},
		{Name: "sp", Type: "sparse,100,double,int8"},
	})
	require.NoError(t, err)

	rows := NewRNG(7).Rows(s, 500, 0.3)
	require.Len(t, rows, 500)
	require.NoError(t, validate.New(s, validate.DefaultLimits()).Validate(rows))

	c := coerce.New(coerce.OverflowReject)
	for i, row := range rows {
		for name, v := range row {
			_, err := c.Coerce(v, s.ColumnByName(name))
			require.NoError(t, err, "row %d column %s", i, name)
		}
	}
}

func TestRows_Deterministic(t *testing.T) {
	s, err := schema.FromDefs([]schema.ColumnDef{{Name: "v", Type: "vector,3,int"}})
	require.NoError(t, err)

	a := NewRNG(1).Rows(s, 10, 0)
	b := NewRNG(1).Rows(s, 10, 0)
	for i := range a {
		assert.True(t, a[i]["v"].Equal(b[i]["v"]))
	}
}
