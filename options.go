package vecingest

import (
	"log/slog"

	"github.com/hupe1980/vecingest/coerce"
	"github.com/hupe1980/vecingest/resource"
	"github.com/hupe1980/vecingest/sink"
	"github.com/hupe1980/vecingest/validate"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	sink             sink.Sink
	policy           coerce.OverflowPolicy
	parallelism      int
	chunkRows        int
	controller       *resource.Controller
	consumers        []IndexConsumer
	limits           validate.Limits
}

func defaultOptions() options {
	return options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		sink:             sink.Noop{},
		policy:           coerce.OverflowWrap,
		limits:           validate.DefaultLimits(),
	}
}

// Option configures Open.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := vecingest.NewJSONLogger(slog.LevelInfo)
//	db := vecingest.Open(vecingest.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vecingest.BasicMetricsCollector{}
//	db := vecingest.Open(vecingest.WithMetricsCollector(metrics))
//	// ... insert ...
//	stats := metrics.GetStats()
//	fmt.Printf("Inserts: %d, Rows: %d\n", stats.InsertCount, stats.RowsCommitted)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithSink sets the persistence collaborator that receives sealed batches.
// The default discards them.
func WithSink(s sink.Sink) Option {
	return func(o *options) {
		if s == nil {
			s = sink.Noop{}
		}
		o.sink = s
	}
}

// WithOverflowPolicy selects how narrowing numeric conversions behave.
// Default: coerce.OverflowWrap.
func WithOverflowPolicy(p coerce.OverflowPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithParallelism bounds the number of goroutines coercing one batch.
// 0 means GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithChunkRows sets how many rows one coercion worker handles per task.
func WithChunkRows(n int) Option {
	return func(o *options) {
		o.chunkRows = n
	}
}

// WithResourceController bounds concurrent inserts, staging memory and sink
// I/O across every table of the database. Memory is reserved from an estimate
// of the batch before coercion and held until the commit returns.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithIndexConsumer registers a consumer notified of every committed batch.
func WithIndexConsumer(c IndexConsumer) Option {
	return func(o *options) {
		if c != nil {
			o.consumers = append(o.consumers, c)
		}
	}
}

// WithMaxBatchRows overrides the per-insert row limit (default 8192).
func WithMaxBatchRows(n int) Option {
	return func(o *options) {
		o.limits.MaxBatchRows = n
	}
}
