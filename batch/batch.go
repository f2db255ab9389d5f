// Package batch assembles validated rows into sealed, column-major batches.
//
// A ColumnBatch is immutable once returned: every column has the same row
// count and buffers are never written again, so batches may be shared with
// sinks and index consumers without copying.
package batch

import (
	"fmt"

	"github.com/hupe1980/vecingest/schema"
)

// ColumnBatch is one sealed insert: a Column per schema column, all of the
// same length.
type ColumnBatch struct {
	schema  *schema.TableSchema
	columns []*Column
	rows    int
}

// New seals already built columns into a batch. It is used by decoders that
// rebuild persisted batches.
func New(s *schema.TableSchema, cols []*Column) (*ColumnBatch, error) {
	if len(cols) != s.NumColumns() {
		return nil, fmt.Errorf("batch has %d columns, schema has %d", len(cols), s.NumColumns())
	}
	rows := -1
	for i, c := range cols {
		cs := s.Column(i)
		if c.Name != cs.Name || c.Type != cs.Type {
			return nil, fmt.Errorf("column %d is %s %s, schema says %s %s", i, c.Name, c.Type, cs.Name, cs.Type)
		}
		if rows >= 0 && c.rows != rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.rows, rows)
		}
		rows = c.rows
	}
	return &ColumnBatch{schema: s, columns: cols, rows: rows}, nil
}

// NewColumn returns a Column over existing buffers. rows must match the
// buffers; callers are decoders that trust their own framing.
func NewColumn(c Column, rows int) *Column {
	c.rows = rows
	return &c
}

// NumRows returns the row count.
func (b *ColumnBatch) NumRows() int { return b.rows }

// NumColumns returns the column count.
func (b *ColumnBatch) NumColumns() int { return len(b.columns) }

// Schema returns the schema the batch was built for.
func (b *ColumnBatch) Schema() *schema.TableSchema { return b.schema }

// Column returns the i-th column in schema order.
func (b *ColumnBatch) Column(i int) *Column { return b.columns[i] }

// Columns returns the columns in schema order. The slice must not be modified.
func (b *ColumnBatch) Columns() []*Column { return b.columns }

// ColumnByName returns the named column or nil.
func (b *ColumnBatch) ColumnByName(name string) *Column {
	i, ok := b.schema.Lookup(name)
	if !ok {
		return nil
	}
	return b.columns[i]
}

// Size returns the number of buffer bytes held by the batch.
func (b *ColumnBatch) Size() int {
	n := 0
	for _, c := range b.columns {
		n += c.Size()
	}
	return n
}
