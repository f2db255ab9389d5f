package vecingest

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/vecingest/batch"
	"github.com/hupe1980/vecingest/schema"
	"github.com/hupe1980/vecingest/status"
	"github.com/hupe1980/vecingest/validate"
	"github.com/hupe1980/vecingest/value"
)

// InsertStage is the position of one insert call in its state machine:
// Received, Validating, Coercing, Assembling, Committed, or Rejected from any
// earlier stage.
type InsertStage int

const (
	StageReceived InsertStage = iota
	StageValidating
	StageCoercing
	StageAssembling
	StageCommitted
	StageRejected
)

func (s InsertStage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageValidating:
		return "validating"
	case StageCoercing:
		return "coercing"
	case StageAssembling:
		return "assembling"
	case StageCommitted:
		return "committed"
	case StageRejected:
		return "rejected"
	default:
		return fmt.Sprintf("InsertStage(%d)", int(s))
	}
}

// InsertResult is the outcome of one insert call. Code is status.OK only
// when every row was committed; Rows is 0 otherwise.
type InsertResult struct {
	Code status.Code
	Rows int
}

// Snapshot is an immutable view of the batches committed to a table.
type Snapshot struct {
	Rows    int
	Batches []*batch.ColumnBatch
}

// Column returns every committed value of the named column in commit order,
// or nil when the column does not exist.
func (s *Snapshot) Column(name string) []value.Value {
	var out []value.Value
	for _, b := range s.Batches {
		col := b.ColumnByName(name)
		if col == nil {
			return nil
		}
		out = append(out, col.Values()...)
	}
	return out
}

// Table is a handle to one table. It is safe for concurrent use.
//
// Inserts hold the read side of the schema lock; index DDL and drop take the
// write side. Commits are serialized per table and published with a single
// snapshot pointer swap, so readers never observe a partial batch.
type Table struct {
	db        *Database
	name      string
	schema    *schema.TableSchema
	validator *validate.Validator
	assembler *batch.Assembler

	mu      sync.RWMutex
	dropped bool
	indexes map[string]IndexInfo

	commitMu sync.Mutex
	snap     atomic.Pointer[Snapshot]
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Schema returns the table schema.
func (t *Table) Schema() *schema.TableSchema { return t.schema }

// Column returns the named column schema or nil.
func (t *Table) Column(name string) *schema.ColumnSchema { return t.schema.ColumnByName(name) }

// BatchRowLimit returns the largest number of rows one insert may carry.
func (t *Table) BatchRowLimit() int { return t.validator.MaxBatchRows() }

// Snapshot returns the committed state of the table.
func (t *Table) Snapshot() *Snapshot { return t.snap.Load() }

// Rows returns the number of committed rows.
func (t *Table) Rows() int { return t.snap.Load().Rows }

func (t *Table) markDropped() {
	t.mu.Lock()
	t.dropped = true
	t.mu.Unlock()
}

// Insert validates, coerces and commits rows as one atomic batch.
//
// The returned error is a *status.Error whose code equals the result code.
// On any failure nothing is committed.
func (t *Table) Insert(ctx context.Context, rows []value.Row) (InsertResult, error) {
	start := time.Now()
	stage := StageReceived

	n, err := t.insert(ctx, rows, &stage)
	if err != nil {
		err = translateError(err, status.Internal)
		return t.finish(ctx, len(rows), stage, start, err), err
	}
	return t.finish(ctx, n, StageCommitted, start, nil), nil
}

// InsertMaps converts untyped client rows and inserts them. Values that have
// no Go-to-Value conversion are reported as NotSupported.
func (t *Table) InsertMaps(ctx context.Context, ms ...map[string]any) (InsertResult, error) {
	rows, err := value.FromMaps(ms...)
	if err != nil {
		err = translateError(err, status.NotSupported)
		return t.finish(ctx, len(ms), StageReceived, time.Now(), err), err
	}
	return t.Insert(ctx, rows)
}

// InsertJSON decodes a JSON array of row objects (or a single object) and
// inserts it. A payload that does not parse is a SyntaxError.
func (t *Table) InsertJSON(ctx context.Context, data []byte) (InsertResult, error) {
	return t.insertDecoded(ctx, data, value.DecodeJSONRows)
}

// InsertMsgpack decodes a MessagePack array of row maps and inserts it.
func (t *Table) InsertMsgpack(ctx context.Context, data []byte) (InsertResult, error) {
	return t.insertDecoded(ctx, data, value.DecodeMsgpackRows)
}

func (t *Table) insertDecoded(ctx context.Context, data []byte, decode func([]byte) ([]value.Row, error)) (InsertResult, error) {
	rows, err := decode(data)
	if err != nil {
		err = translateError(err, status.SyntaxError)
		return t.finish(ctx, 0, StageReceived, time.Now(), err), err
	}
	return t.Insert(ctx, rows)
}

func (t *Table) finish(ctx context.Context, rows int, stage InsertStage, start time.Time, err error) InsertResult {
	code := status.CodeOf(err)
	t.db.opts.metricsCollector.RecordInsert(rows, code, time.Since(start))
	t.db.opts.logger.LogInsert(ctx, t.name, rows, stage, err)
	if err != nil {
		return InsertResult{Code: code}
	}
	return InsertResult{Code: status.OK, Rows: rows}
}

func (t *Table) insert(ctx context.Context, rows []value.Row, stage *InsertStage) (int, error) {
	if t.db.closed.Load() {
		return 0, ErrClosed
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.dropped {
		return 0, status.Errorf(status.TableNotExist, "table %q does not exist", t.name)
	}

	rc := t.db.opts.controller
	if err := rc.AcquireInsert(ctx); err != nil {
		return 0, err
	}
	defer rc.ReleaseInsert()

	*stage = StageValidating
	if err := t.validator.Validate(rows); err != nil {
		return 0, err
	}

	// Staging memory is reserved before coercion starts and topped up if the
	// sealed batch outgrows the estimate.
	reserved := t.assembler.Estimate(rows)
	if err := rc.AcquireMemory(ctx, reserved); err != nil {
		return 0, err
	}
	defer func() { rc.ReleaseMemory(reserved) }()

	*stage = StageCoercing
	b, err := t.assembler.Assemble(ctx, rows)
	if err != nil {
		return 0, err
	}

	*stage = StageAssembling
	if extra := int64(b.Size()) - reserved; extra > 0 {
		if err := rc.AcquireMemory(ctx, extra); err != nil {
			return 0, err
		}
		reserved += extra
	}

	if err := t.commit(ctx, b); err != nil {
		return 0, err
	}
	*stage = StageCommitted

	t.notify(ctx, b)
	return b.NumRows(), nil
}

func (t *Table) commit(ctx context.Context, b *batch.ColumnBatch) error {
	t.commitMu.Lock()
	defer t.commitMu.Unlock()

	start := time.Now()
	if err := t.db.opts.sink.Commit(ctx, t.name, b); err != nil {
		return status.Wrap(status.CommitFailed, err, "sink rejected batch")
	}
	t.db.opts.metricsCollector.RecordCommit(b.Size(), time.Since(start))

	old := t.snap.Load()
	next := &Snapshot{
		Rows:    old.Rows + b.NumRows(),
		Batches: append(slices.Clip(old.Batches), b),
	}
	t.snap.Store(next)
	return nil
}

// notify hands a published batch to the index consumers. Consumer failures
// are logged; the batch stays committed.
func (t *Table) notify(ctx context.Context, b *batch.ColumnBatch) {
	if len(t.db.opts.consumers) == 0 {
		return
	}
	ev := CommitEvent{Table: t.name, Indexes: maps.Clone(t.indexes), Batch: b}
	for _, c := range t.db.opts.consumers {
		if err := c.OnCommit(ctx, ev); err != nil {
			t.db.opts.logger.WarnContext(ctx, "index consumer failed",
				"table", t.name,
				"rows", b.NumRows(),
				"error", err,
			)
		}
	}
}

// IndexType names an index kind.
type IndexType int

const (
	IndexHNSW IndexType = iota
	IndexIVF
	IndexFullText
	IndexSecondary
)

func (it IndexType) String() string {
	switch it {
	case IndexHNSW:
		return "hnsw"
	case IndexIVF:
		return "ivf"
	case IndexFullText:
		return "fulltext"
	case IndexSecondary:
		return "secondary"
	default:
		return fmt.Sprintf("IndexType(%d)", int(it))
	}
}

// ParseIndexType parses an index type name, case-insensitively.
func ParseIndexType(s string) (IndexType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hnsw":
		return IndexHNSW, nil
	case "ivf", "ivfflat":
		return IndexIVF, nil
	case "fulltext", "full_text":
		return IndexFullText, nil
	case "secondary":
		return IndexSecondary, nil
	default:
		return 0, status.Errorf(status.NotSupported, "unknown index type %q", s)
	}
}

// IndexInfo describes an index declared on one column.
type IndexInfo struct {
	Column string
	Type   IndexType
	Params map[string]string
}

// CommitEvent is delivered to index consumers after a batch is published.
type CommitEvent struct {
	Table   string
	Indexes map[string]IndexInfo
	Batch   *batch.ColumnBatch
}

// IndexConsumer receives every committed batch. Building the index itself
// is the consumer's job; the table only records declarations.
type IndexConsumer interface {
	OnCommit(ctx context.Context, ev CommitEvent) error
}

// IndexConsumerFunc adapts a function to IndexConsumer.
type IndexConsumerFunc func(ctx context.Context, ev CommitEvent) error

// OnCommit implements IndexConsumer.
func (f IndexConsumerFunc) OnCommit(ctx context.Context, ev CommitEvent) error { return f(ctx, ev) }

func checkIndexColumn(col *schema.ColumnSchema, it IndexType) error {
	f := col.Type.Family
	var ok bool
	switch it {
	case IndexHNSW, IndexIVF:
		ok = f == schema.FamilyVector
	case IndexFullText:
		ok = f == schema.FamilyVarchar
	case IndexSecondary:
		ok = !f.IsStructured()
	default:
		return status.Errorf(status.NotSupported, "unknown index type %s", it)
	}
	if !ok {
		return status.Errorf(status.NotSupported, "%s index cannot be built on %s", it, col.Type).InColumn(col.Name)
	}
	return nil
}

// CreateIndex declares an index on a column.
func (t *Table) CreateIndex(ctx context.Context, name string, info IndexInfo, conflict ConflictType) (err error) {
	defer func() {
		t.db.opts.metricsCollector.RecordDDL(OpCreateIndex, err)
		t.db.opts.logger.LogIndex(ctx, OpCreateIndex, t.name, name, err)
	}()

	col := t.schema.ColumnByName(info.Column)
	if col == nil {
		return status.New(status.ColumnNotFound, "index column does not exist").InColumn(info.Column)
	}
	if err := checkIndexColumn(col, info.Type); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dropped {
		return status.Errorf(status.TableNotExist, "table %q does not exist", t.name)
	}
	if _, ok := t.indexes[name]; ok {
		switch conflict {
		case ConflictIgnore:
			return nil
		case ConflictReplace:
		default:
			return status.Errorf(status.DuplicateIndex, "index %q already exists", name)
		}
	}
	info.Params = maps.Clone(info.Params)
	t.indexes[name] = info
	return nil
}

// DropIndex removes an index declaration.
func (t *Table) DropIndex(ctx context.Context, name string, conflict ConflictType) (err error) {
	defer func() {
		t.db.opts.metricsCollector.RecordDDL(OpDropIndex, err)
		t.db.opts.logger.LogIndex(ctx, OpDropIndex, t.name, name, err)
	}()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dropped {
		return status.Errorf(status.TableNotExist, "table %q does not exist", t.name)
	}
	if _, ok := t.indexes[name]; !ok {
		if conflict == ConflictIgnore {
			return nil
		}
		return status.Errorf(status.IndexNotExist, "index %q does not exist", name)
	}
	delete(t.indexes, name)
	return nil
}

// Indexes returns a copy of the declared indexes keyed by name.
func (t *Table) Indexes() map[string]IndexInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.indexes)
}
