package batch

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vecingest/coerce"
	"github.com/hupe1980/vecingest/schema"
	"github.com/hupe1980/vecingest/value"
)

// Column is one sealed, column-major buffer set.
//
// Layout by family:
//
//	bool, numeric:  Data holds rows*width bytes; null rows are zero-filled.
//	vector:         Data holds rows*dim*width bytes; null rows are zero-filled.
//	varchar:        Data[Offsets[i]:Offsets[i+1]] is row i.
//	tensor:         same as varchar; the slice holds k*dim elements.
//	tensor array:   same as tensor for the whole row; the per-tensor embedding
//	                counts are TensorLens[ArrayOffsets[i]:ArrayOffsets[i+1]].
//	sparse:         Offsets count non-zeros; row i spans elements
//	                Offsets[i]..Offsets[i+1] of Data (values) and Indices.
//
// Nulls and Defaults mark rows stored as null or filled from the column
// default.
type Column struct {
	Name         string
	Type         schema.ColumnType
	Data         []byte
	Offsets      []uint64
	Indices      []byte
	ArrayOffsets []uint64
	TensorLens   []uint32
	Nulls        *roaring.Bitmap
	Defaults     *roaring.Bitmap

	rows int
}

// Len returns the number of rows.
func (c *Column) Len() int { return c.rows }

// IsNull reports whether row i is null.
func (c *Column) IsNull(i int) bool { return c.Nulls.Contains(uint32(i)) } //nolint:gosec // rows <= MaxBatchRows

// IsDefault reports whether row i was filled from the column default.
func (c *Column) IsDefault(i int) bool { return c.Defaults.Contains(uint32(i)) } //nolint:gosec // rows <= MaxBatchRows

// Size returns the number of buffer bytes held by c.
func (c *Column) Size() int {
	return len(c.Data) + len(c.Indices) + 8*(len(c.Offsets)+len(c.ArrayOffsets)) + 4*len(c.TensorLens)
}

// Raw returns the stored bytes of row i (values for sparse rows).
func (c *Column) Raw(i int) []byte {
	if w := c.Type.FixedWidth(); w > 0 {
		return c.Data[i*w : (i+1)*w]
	}
	lo, hi := c.Offsets[i], c.Offsets[i+1]
	if c.Type.Family == schema.FamilySparse {
		w := uint64(c.Type.Elem.Width())
		return c.Data[lo*w : hi*w]
	}
	return c.Data[lo:hi]
}

// Value reads row i back into a Value.
//
// Float families are widened to float64 from their stored precision, so a
// Float16 column returns the rounded value. Tensors come back nested, one
// sub-sequence per embedding; sparse rows come back as an indexed pair.
func (c *Column) Value(i int) value.Value {
	if c.IsNull(i) {
		return value.Null()
	}
	t := c.Type
	raw := c.Raw(i)

	switch t.Family {
	case schema.FamilyVector:
		return value.List(coerce.DecodeSeq(raw, t.Elem, t.Dim)...)
	case schema.FamilyTensor:
		return c.tensorValue(raw)
	case schema.FamilyTensorArray:
		lens := c.TensorLens[c.ArrayOffsets[i]:c.ArrayOffsets[i+1]]
		stride := t.Dim * t.Elem.Width()
		tensors := make([]value.Value, len(lens))
		for j, k := range lens {
			n := int(k) * stride
			tensors[j] = c.tensorValue(raw[:n])
			raw = raw[n:]
		}
		return value.List(tensors...)
	case schema.FamilySparse:
		n := int(c.Offsets[i+1] - c.Offsets[i])
		iw := uint64(t.IndexElem.Width())
		idx := c.Indices[c.Offsets[i]*iw : c.Offsets[i+1]*iw]
		return value.Sparse(coerce.DecodeSeq(idx, t.IndexElem, n), coerce.DecodeSeq(raw, t.Elem, n))
	default:
		return coerce.Decode(raw, t.Family)
	}
}

func (c *Column) tensorValue(raw []byte) value.Value {
	t := c.Type
	stride := t.Dim * t.Elem.Width()
	rows := make([]value.Value, len(raw)/stride)
	for j := range rows {
		rows[j] = value.List(coerce.DecodeSeq(raw[j*stride:], t.Elem, t.Dim)...)
	}
	return value.List(rows...)
}

// Values reads every row back.
func (c *Column) Values() []value.Value {
	out := make([]value.Value, c.rows)
	for i := range out {
		out[i] = c.Value(i)
	}
	return out
}

// builder accumulates cells for one column in row order.
type builder struct {
	col   *Column
	width int
}

func newBuilder(cs *schema.ColumnSchema, rows int) *builder {
	col := &Column{
		Name:     cs.Name,
		Type:     cs.Type,
		Nulls:    roaring.New(),
		Defaults: roaring.New(),
	}
	b := &builder{col: col, width: cs.Type.FixedWidth()}
	if b.width > 0 {
		col.Data = make([]byte, 0, rows*b.width)
		return b
	}
	col.Offsets = make([]uint64, 1, rows+1)
	if cs.Type.Family == schema.FamilyTensorArray {
		col.ArrayOffsets = make([]uint64, 1, rows+1)
	}
	return b
}

func (b *builder) append(cell *coerce.Cell) {
	col := b.col
	row := uint32(col.rows) //nolint:gosec // rows <= MaxBatchRows
	col.rows++

	if cell.Null {
		col.Nulls.Add(row)
	}
	if cell.IsDefault {
		col.Defaults.Add(row)
	}

	if b.width > 0 {
		if cell.Null {
			col.Data = append(col.Data, make([]byte, b.width)...)
		} else {
			col.Data = append(col.Data, cell.Data...)
		}
		return
	}

	col.Data = append(col.Data, cell.Data...)
	switch col.Type.Family {
	case schema.FamilySparse:
		n := uint64(len(cell.Data) / col.Type.Elem.Width())
		col.Offsets = append(col.Offsets, col.Offsets[len(col.Offsets)-1]+n)
		col.Indices = append(col.Indices, cell.Index...)
	case schema.FamilyTensorArray:
		col.Offsets = append(col.Offsets, uint64(len(col.Data)))
		col.TensorLens = append(col.TensorLens, cell.TensorLens...)
		col.ArrayOffsets = append(col.ArrayOffsets, uint64(len(col.TensorLens)))
	default:
		col.Offsets = append(col.Offsets, uint64(len(col.Data)))
	}
}

func (b *builder) seal() *Column {
	col := b.col
	col.Nulls.RunOptimize()
	col.Defaults.RunOptimize()
	b.col = nil
	return col
}
