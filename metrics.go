package vecingest

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/vecingest/status"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prom package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordInsert is called after each insert call. rows is the number of
	// rows submitted, code the result, duration the total time taken.
	RecordInsert(rows int, code status.Code, duration time.Duration)

	// RecordCommit is called after each successful sink commit with the
	// size of the sealed batch.
	RecordCommit(bytes int, duration time.Duration)

	// RecordDDL is called after table and index definition changes.
	// op is one of create_table, drop_table, create_index, drop_index.
	RecordDDL(op string, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(int, status.Code, time.Duration) {}
func (NoopMetricsCollector) RecordCommit(int, time.Duration)              {}
func (NoopMetricsCollector) RecordDDL(string, error)                      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	InsertTotalNanos atomic.Int64
	RowsCommitted    atomic.Int64
	RowsRejected     atomic.Int64
	CommitCount      atomic.Int64
	CommitBytes      atomic.Int64
	DDLCount         atomic.Int64
	DDLErrors        atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(rows int, code status.Code, duration time.Duration) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if code != status.OK {
		b.InsertErrors.Add(1)
		b.RowsRejected.Add(int64(rows))
		return
	}
	b.RowsCommitted.Add(int64(rows))
}

// RecordCommit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCommit(bytes int, _ time.Duration) {
	b.CommitCount.Add(1)
	b.CommitBytes.Add(int64(bytes))
}

// RecordDDL implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDDL(_ string, err error) {
	b.DDLCount.Add(1)
	if err != nil {
		b.DDLErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:    b.InsertCount.Load(),
		InsertErrors:   b.InsertErrors.Load(),
		InsertAvgNanos: b.getAvgInsertNanos(),
		RowsCommitted:  b.RowsCommitted.Load(),
		RowsRejected:   b.RowsRejected.Load(),
		CommitCount:    b.CommitCount.Load(),
		CommitBytes:    b.CommitBytes.Load(),
		DDLCount:       b.DDLCount.Load(),
		DDLErrors:      b.DDLErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgInsertNanos() int64 {
	count := b.InsertCount.Load()
	if count == 0 {
		return 0
	}
	return b.InsertTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount    int64
	InsertErrors   int64
	InsertAvgNanos int64
	RowsCommitted  int64
	RowsRejected   int64
	CommitCount    int64
	CommitBytes    int64
	DDLCount       int64
	DDLErrors      int64
}
