package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecingest/status"
	"github.com/hupe1980/vecingest/value"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want ColumnType
	}{
		{"int", Scalar(FamilyInt32)},
		{"Integer", Scalar(FamilyInt32)},
		{"int32", Scalar(FamilyInt32)},
		{"bigint", Scalar(FamilyInt64)},
		{"tinyint", Scalar(FamilyInt8)},
		{"float", Scalar(FamilyFloat32)},
		{"float64", Scalar(FamilyFloat64)},
		{"double", Scalar(FamilyFloat64)},
		{"float16", Scalar(FamilyFloat16)},
		{"bfloat16", Scalar(FamilyBFloat16)},
		{"varchar", Scalar(FamilyVarchar)},
		{"bool", Scalar(FamilyBool)},
		{"vector,3,float", Vector(3, FamilyFloat32)},
		{"vector, 128, int8", Vector(128, FamilyInt8)},
		{"tensor,3,int", Tensor(3, FamilyInt32)},
		{"tensorarray,2,float16", TensorArray(2, FamilyFloat16)},
		{"sparse,100,float,int", Sparse(100, FamilyFloat32, FamilyInt32)},
		{"sparse,100,double,int8", Sparse(100, FamilyFloat64, FamilyInt8)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := ParseType(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestParseType_Errors(t *testing.T) {
	for _, in := range []string{
		"",
		"text",
		"vector",
		"vector,3",
		"vector,0,float",
		"vector,-1,float",
		"vector,x,float",
		"vector,3,varchar",
		"sparse,100,float",
		"sparse,100,float,float",
		"sparse,200,float,int8",
		"matrix,3,float",
	} {
		_, err := ParseType(in)
		assert.Error(t, err, "type %q", in)
	}
}

func TestColumnType_Widths(t *testing.T) {
	assert.Equal(t, 1, Scalar(FamilyBool).FixedWidth())
	assert.Equal(t, 2, Scalar(FamilyBFloat16).FixedWidth())
	assert.Equal(t, 8, Scalar(FamilyInt64).FixedWidth())
	assert.Equal(t, 0, Scalar(FamilyVarchar).FixedWidth())
	assert.Equal(t, 12, Vector(3, FamilyFloat32).FixedWidth())
	assert.Equal(t, 0, Tensor(3, FamilyFloat32).FixedWidth())
	assert.Equal(t, 2, Tensor(3, FamilyInt16).ElemWidth())
}

func TestFromDefs(t *testing.T) {
	s, err := FromDefs([]ColumnDef{
		{Name: "id", Type: "int", Constraints: []string{"PRIMARY  KEY"}},
		{Name: "c1", Type: "int8", Default: 1},
		{Name: "c2", Type: "varchar", Constraints: []string{"null"}},
		{Name: "vec", Type: "vector,3,float", Constraints: []string{"not null", "unique"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, s.NumColumns())
	assert.Equal(t, []string{"id", "c1", "c2", "vec"}, s.Names())

	i, ok := s.Lookup("c2")
	require.True(t, ok)
	assert.Equal(t, 2, i)
	assert.True(t, s.Column(i).Nullable)

	id := s.ColumnByName("id")
	assert.True(t, id.PrimaryKey)
	assert.False(t, id.Nullable)

	c1 := s.ColumnByName("c1")
	require.True(t, c1.HasDefault())
	assert.Equal(t, value.Int(1), *c1.Default)
	assert.False(t, c1.Nullable)

	assert.True(t, s.ColumnByName("vec").Unique)
	assert.Nil(t, s.ColumnByName("C1"))
	assert.Equal(t, "(id int32, c1 int8, c2 varchar, vec vector,3,float)", s.String())
}

func TestFromDefs_Errors(t *testing.T) {
	tests := []struct {
		name string
		defs []ColumnDef
	}{
		{"empty", nil},
		{"bad type", []ColumnDef{{Name: "c1", Type: "vector,0,int"}}},
		{"duplicate", []ColumnDef{{Name: "c1", Type: "int"}, {Name: "c1", Type: "int"}}},
		{"unknown constraint", []ColumnDef{{Name: "c1", Type: "int", Constraints: []string{"check"}}}},
		{"nullable primary key", []ColumnDef{{Name: "c1", Type: "int", Constraints: []string{"primary key", "null"}}}},
		{"bad default", []ColumnDef{{Name: "c1", Type: "int", Default: struct{}{}}}},
		{"no name", []ColumnDef{{Type: "int"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDefs(tt.defs)
			require.Error(t, err)
			assert.Equal(t, status.InvalidColumnDefinition, status.CodeOf(err))
		})
	}
}

func TestDefs_RoundTrip(t *testing.T) {
	defs := []ColumnDef{
		{Name: "id", Type: "int", Constraints: []string{ConstraintPrimaryKey}},
		{Name: "c1", Type: "double", Default: 1.5},
		{Name: "c2", Type: "sparse,100,float,int", Constraints: []string{ConstraintNull}},
	}
	s, err := FromDefs(defs)
	require.NoError(t, err)

	again, err := FromDefs(s.Defs())
	require.NoError(t, err)
	assert.Equal(t, s.Columns(), again.Columns())
}

func TestParseDefinition(t *testing.T) {
	yamlDef := []byte(`
name: docs
columns:
  - name: id
    type: int
    constraints: [primary key]
  - name: body
    type: varchar
    default: ""
  - name: emb
    type: vector,4,float
`)
	def, err := ParseDefinitionYAML(yamlDef)
	require.NoError(t, err)
	assert.Equal(t, "docs", def.Name)
	require.Len(t, def.Columns, 3)
	assert.Equal(t, "vector,4,float", def.Columns[2].Type)

	jsonDef := []byte(`{"name":"docs","columns":[{"name":"id","type":"int","default":7}]}`)
	def, err = ParseDefinitionJSON(jsonDef)
	require.NoError(t, err)
	s, err := FromDefs(def.Columns)
	require.NoError(t, err)
	assert.Equal(t, value.Int(7), *s.Column(0).Default)

	_, err = ParseDefinitionJSON([]byte(`{"columns":`))
	assert.Equal(t, status.InvalidColumnDefinition, status.CodeOf(err))
}
