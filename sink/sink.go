// Package sink defines the persistence collaborator that receives sealed
// column batches.
//
// The ingestion core hands a batch to exactly one Sink after it has been
// fully validated, coerced and sealed. A sink either accepts the whole batch
// or returns an error; it never sees partial batches.
package sink

import (
	"context"
	"sync"

	"github.com/hupe1980/vecingest/batch"
)

// Sink receives committed batches.
type Sink interface {
	// Commit persists b for table. Implementations must treat b as read-only.
	Commit(ctx context.Context, table string, b *batch.ColumnBatch) error
}

// Dropper is implemented by sinks that hold per-table state.
type Dropper interface {
	// Drop discards everything stored for table.
	Drop(ctx context.Context, table string) error
}

// Noop discards every batch.
type Noop struct{}

// Commit implements Sink.
func (Noop) Commit(context.Context, string, *batch.ColumnBatch) error { return nil }

// Memory keeps committed batches in memory, per table.
type Memory struct {
	mu      sync.RWMutex
	batches map[string][]*batch.ColumnBatch
}

// NewMemory creates an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{batches: make(map[string][]*batch.ColumnBatch)}
}

// Commit implements Sink.
func (m *Memory) Commit(ctx context.Context, table string, b *batch.ColumnBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[table] = append(m.batches[table], b)
	return nil
}

// Drop implements Dropper.
func (m *Memory) Drop(_ context.Context, table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.batches, table)
	return nil
}

// Batches returns the batches committed for table, oldest first.
func (m *Memory) Batches(table string) []*batch.ColumnBatch {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*batch.ColumnBatch(nil), m.batches[table]...)
}

// Rows returns the number of rows committed for table.
func (m *Memory) Rows(table string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, b := range m.batches[table] {
		n += b.NumRows()
	}
	return n
}
