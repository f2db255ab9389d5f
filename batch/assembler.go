package batch

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecingest/coerce"
	"github.com/hupe1980/vecingest/schema"
	"github.com/hupe1980/vecingest/status"
	"github.com/hupe1980/vecingest/value"
)

const defaultChunkRows = 256

// Options configures an Assembler.
type Options struct {
	// Parallelism bounds concurrent coercion workers. 0 means GOMAXPROCS.
	Parallelism int
	// ChunkRows is the number of rows one worker coerces per task. 0 means 256.
	ChunkRows int
}

// Assembler turns validated rows into a sealed ColumnBatch.
//
// Default cells are coerced once, when the assembler is built; an invalid
// column default therefore fails at table creation, not at first insert.
type Assembler struct {
	schema   *schema.TableSchema
	coercer  *coerce.Coercer
	absent   []coerce.Cell
	absentOK []bool
	opts     Options
}

// NewAssembler prepares an assembler for s.
func NewAssembler(s *schema.TableSchema, c *coerce.Coercer, opts Options) (*Assembler, error) {
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.GOMAXPROCS(0)
	}
	if opts.ChunkRows <= 0 {
		opts.ChunkRows = defaultChunkRows
	}

	a := &Assembler{
		schema:   s,
		coercer:  c,
		absent:   make([]coerce.Cell, s.NumColumns()),
		absentOK: make([]bool, s.NumColumns()),
		opts:     opts,
	}
	for i := range s.NumColumns() {
		col := s.Column(i)
		if err := c.CheckDefault(col); err != nil {
			return nil, err
		}
		if cell, err := c.Absent(col); err == nil {
			a.absent[i] = cell
			a.absentOK[i] = true
		}
	}
	return a, nil
}

// Schema returns the schema the assembler builds batches for.
func (a *Assembler) Schema() *schema.TableSchema { return a.schema }

// chunkResult holds the first failure of one chunk.
type chunkResult struct {
	err *status.Error
}

// Assemble coerces every cell and packs the batch.
//
// Rows are coerced in parallel chunks into staging cells; the first failure in
// row-then-column order wins and nothing is built. On success cells are
// appended in client order and the columns are sealed.
func (a *Assembler) Assemble(ctx context.Context, rows []value.Row) (*ColumnBatch, error) {
	ncols := a.schema.NumColumns()
	staged := make([][]coerce.Cell, len(rows))

	nchunks := (len(rows) + a.opts.ChunkRows - 1) / a.opts.ChunkRows
	results := make([]chunkResult, nchunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Parallelism)

	for ci := range nchunks {
		lo := ci * a.opts.ChunkRows
		hi := min(lo+a.opts.ChunkRows, len(rows))
		g.Go(func() error {
			for r := lo; r < hi; r++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				cells, err := a.coerceRow(rows[r])
				if err != nil {
					results[ci].err = err.AtRow(r)
					return nil
				}
				staged[r] = cells
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, res := range results {
		if res.err != nil {
			return nil, res.err
		}
	}

	builders := make([]*builder, ncols)
	for i := range ncols {
		builders[i] = newBuilder(a.schema.Column(i), len(rows))
	}
	for r := range staged {
		for i := range ncols {
			builders[i].append(&staged[r][i])
		}
	}

	cols := make([]*Column, ncols)
	for i, b := range builders {
		cols[i] = b.seal()
	}
	return &ColumnBatch{schema: a.schema, columns: cols, rows: len(rows)}, nil
}

// Estimate predicts the buffer bytes Assemble will produce for rows without
// coercing anything. Fixed-width columns are exact; variable columns are
// sized from the raw client values.
func (a *Assembler) Estimate(rows []value.Row) int64 {
	var n int64
	for i := range a.schema.NumColumns() {
		col := a.schema.Column(i)
		if w := col.Type.FixedWidth(); w > 0 {
			n += int64(w) * int64(len(rows))
			continue
		}
		n += 8 * int64(len(rows)+1)
		for _, row := range rows {
			v, ok := row[col.Name]
			if !ok || v.IsNull() {
				n += int64(len(a.absent[i].Data))
				continue
			}
			n += cellEstimate(v, col.Type)
		}
	}
	return n
}

func cellEstimate(v value.Value, t schema.ColumnType) int64 {
	switch t.Family {
	case schema.FamilyVarchar:
		if v.Kind == value.KindString {
			return int64(len(v.S))
		}
		return int64(len(v.String()))
	case schema.FamilySparse:
		if v.Sp == nil {
			return 0
		}
		return int64(len(v.Sp.Indices)) * int64(t.Elem.Width()+t.IndexElem.Width())
	default:
		return int64(leaves(v)) * int64(t.ElemWidth())
	}
}

func leaves(v value.Value) int {
	if v.Kind != value.KindList {
		return 1
	}
	n := 0
	for _, e := range v.A {
		n += leaves(e)
	}
	return n
}

// coerceRow converts one row in schema column order.
func (a *Assembler) coerceRow(row value.Row) ([]coerce.Cell, *status.Error) {
	cells := make([]coerce.Cell, a.schema.NumColumns())
	for i := range cells {
		col := a.schema.Column(i)
		v, ok := row[col.Name]
		if !ok || v.IsNull() {
			if !a.absentOK[i] {
				return nil, status.New(status.MissingValue, "value required and column has no default").InColumn(col.Name)
			}
			cells[i] = a.absent[i]
			continue
		}
		cell, err := a.coercer.Coerce(v, col)
		if err != nil {
			return nil, asStatus(err).InColumn(col.Name)
		}
		cells[i] = cell
	}
	return cells, nil
}

func asStatus(err error) *status.Error {
	if se, ok := err.(*status.Error); ok { //nolint:errorlint // coercer returns *status.Error directly
		return se
	}
	return status.Wrap(status.Internal, err, "coerce")
}
