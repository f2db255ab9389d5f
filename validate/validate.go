// Package validate checks batch and row structure against a table schema
// before any value is coerced.
package validate

import (
	"slices"

	"github.com/hupe1980/vecingest/schema"
	"github.com/hupe1980/vecingest/status"
	"github.com/hupe1980/vecingest/value"
)

// DefaultMaxBatchRows is the largest number of rows one insert may carry.
const DefaultMaxBatchRows = 8192

// Limits defines bounds for one insert call.
type Limits struct {
	MaxBatchRows int // Max rows per insert (default: 8192)
}

// DefaultLimits returns the production defaults.
func DefaultLimits() Limits {
	return Limits{MaxBatchRows: DefaultMaxBatchRows}
}

func (l Limits) maxRows() int {
	if l.MaxBatchRows <= 0 {
		return DefaultMaxBatchRows
	}
	return l.MaxBatchRows
}

// Validator checks rows against one schema. It holds no mutable state.
type Validator struct {
	schema *schema.TableSchema
	limits Limits
}

// New returns a Validator for s.
func New(s *schema.TableSchema, limits Limits) *Validator {
	return &Validator{schema: s, limits: limits}
}

// MaxBatchRows returns the effective batch row limit.
func (v *Validator) MaxBatchRows() int { return v.limits.maxRows() }

// Validate checks batch-level limits and then every row in client order.
// The first violation is returned.
func (v *Validator) Validate(rows []value.Row) error {
	if err := v.CheckBatch(len(rows)); err != nil {
		return err
	}
	for i, row := range rows {
		if err := v.CheckRow(row); err != nil {
			return err.AtRow(i)
		}
	}
	return nil
}

// CheckBatch enforces the batch-level rules on the row count alone.
func (v *Validator) CheckBatch(n int) error {
	if n == 0 {
		return status.New(status.EmptyInput, "no rows to insert")
	}
	if limit := v.limits.maxRows(); n > limit {
		return status.Errorf(status.BatchTooLarge, "%d rows exceed the limit of %d", n, limit)
	}
	return nil
}

// CheckRow applies the per-row structural rules.
func (v *Validator) CheckRow(row value.Row) *status.Error {
	if len(row) == 0 {
		return status.New(status.SyntaxError, "row has no fields")
	}
	if len(row) > v.schema.NumColumns() {
		return status.Errorf(status.ColumnCountMismatch, "row has %d columns, table has %d", len(row), v.schema.NumColumns())
	}

	for _, name := range sortedNames(row) {
		if _, ok := v.schema.Lookup(name); !ok {
			return status.New(status.ColumnNotFound, "unknown column").InColumn(name)
		}
	}

	for i := range v.schema.NumColumns() {
		col := v.schema.Column(i)
		if col.Nullable || col.HasDefault() {
			continue
		}
		if cell, ok := row[col.Name]; !ok || cell.IsNull() {
			return status.New(status.MissingValue, "value required and column has no default").InColumn(col.Name)
		}
	}
	return nil
}

func sortedNames(row value.Row) []string {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
