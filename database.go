package vecingest

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/vecingest/batch"
	"github.com/hupe1980/vecingest/coerce"
	"github.com/hupe1980/vecingest/schema"
	"github.com/hupe1980/vecingest/sink"
	"github.com/hupe1980/vecingest/status"
	"github.com/hupe1980/vecingest/validate"
)

// ConflictType selects what a DDL call does when its target already exists
// (create) or does not exist (drop).
type ConflictType int

const (
	// ConflictError fails with DuplicateTable, TableNotExist, DuplicateIndex
	// or IndexNotExist.
	ConflictError ConflictType = iota
	// ConflictIgnore turns the call into a no-op.
	ConflictIgnore
	// ConflictReplace drops the existing object and creates it again.
	// On drop it behaves like ConflictError.
	ConflictReplace
)

func (c ConflictType) String() string {
	switch c {
	case ConflictError:
		return "error"
	case ConflictIgnore:
		return "ignore"
	case ConflictReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// DDL operation names passed to MetricsCollector.RecordDDL.
const (
	OpCreateTable = "create_table"
	OpDropTable   = "drop_table"
	OpCreateIndex = "create_index"
	OpDropIndex   = "drop_index"
)

// Database is a set of named tables sharing one sink, logger and metrics
// collector. It is safe for concurrent use.
type Database struct {
	opts options

	mu     sync.RWMutex
	tables map[string]*Table
	closed atomic.Bool
}

// Open returns an empty database configured by opts.
func Open(opts ...Option) *Database {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Database{
		opts:   o,
		tables: make(map[string]*Table),
	}
}

// CreateTable creates a table from column definitions.
//
// The definitions are resolved and every default is checked before the
// database is touched, so an invalid definition leaves it unchanged.
func (db *Database) CreateTable(ctx context.Context, name string, defs []schema.ColumnDef, conflict ConflictType) (tbl *Table, err error) {
	defer func() {
		db.opts.metricsCollector.RecordDDL(OpCreateTable, err)
		db.opts.logger.LogCreateTable(ctx, name, len(defs), err)
	}()

	if db.closed.Load() {
		return nil, translateError(ErrClosed, status.Internal)
	}
	if name == "" {
		return nil, status.New(status.InvalidColumnDefinition, "table name is empty")
	}

	s, err := schema.FromDefs(defs)
	if err != nil {
		return nil, translateError(err, status.InvalidColumnDefinition)
	}
	t, err := db.newTable(name, s)
	if err != nil {
		return nil, translateError(err, status.InvalidColumnDefinition)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if existing, ok := db.tables[name]; ok {
		switch conflict {
		case ConflictIgnore:
			return existing, nil
		case ConflictReplace:
			if err := db.dropLocked(ctx, existing); err != nil {
				return nil, err
			}
		default:
			return nil, status.Errorf(status.DuplicateTable, "table %q already exists", name)
		}
	}

	db.tables[name] = t
	return t, nil
}

func (db *Database) newTable(name string, s *schema.TableSchema) (*Table, error) {
	a, err := batch.NewAssembler(s, coerce.New(db.opts.policy), batch.Options{
		Parallelism: db.opts.parallelism,
		ChunkRows:   db.opts.chunkRows,
	})
	if err != nil {
		return nil, err
	}
	t := &Table{
		db:        db,
		name:      name,
		schema:    s,
		validator: validate.New(s, db.opts.limits),
		assembler: a,
		indexes:   make(map[string]IndexInfo),
	}
	t.snap.Store(&Snapshot{})
	return t, nil
}

// DropTable removes a table. Handles obtained earlier keep existing, but
// every insert through them fails with TableNotExist.
func (db *Database) DropTable(ctx context.Context, name string, conflict ConflictType) (err error) {
	defer func() {
		db.opts.metricsCollector.RecordDDL(OpDropTable, err)
		db.opts.logger.LogDropTable(ctx, name, err)
	}()

	if db.closed.Load() {
		return translateError(ErrClosed, status.Internal)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.tables[name]
	if !ok {
		if conflict == ConflictIgnore {
			return nil
		}
		return status.Errorf(status.TableNotExist, "table %q does not exist", name)
	}
	return db.dropLocked(ctx, t)
}

// dropLocked detaches t and asks the sink to forget its data.
// Caller must hold db.mu.
func (db *Database) dropLocked(ctx context.Context, t *Table) error {
	t.markDropped()
	delete(db.tables, t.name)

	if d, ok := db.opts.sink.(sink.Dropper); ok {
		if err := d.Drop(ctx, t.name); err != nil {
			return translateError(err, status.Internal)
		}
	}
	return nil
}

// GetTable returns the named table or a TableNotExist error.
func (db *Database) GetTable(name string) (*Table, error) {
	if db.closed.Load() {
		return nil, translateError(ErrClosed, status.Internal)
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.tables[name]
	if !ok {
		return nil, status.Errorf(status.TableNotExist, "table %q does not exist", name)
	}
	return t, nil
}

// ListTables returns the table names in sorted order.
func (db *Database) ListTables() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Close releases the database. Data already handed to the sink stays there;
// every later call returns an error wrapping ErrClosed.
// Close is idempotent.
func (db *Database) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	for name, t := range db.tables {
		t.markDropped()
		delete(db.tables, name)
	}
	db.opts.logger.Info("database closed")
	return nil
}
