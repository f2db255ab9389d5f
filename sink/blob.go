package sink

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/vecingest/batch"
	"github.com/hupe1980/vecingest/blobstore"
	"github.com/hupe1980/vecingest/codec"
	"github.com/hupe1980/vecingest/resource"
	"github.com/hupe1980/vecingest/segment"
)

// CurrentName is the base name of the per-table manifest blob.
const CurrentName = "CURRENT"

// SegmentRef describes one committed segment.
type SegmentRef struct {
	Name      string    `json:"name"`
	Rows      int       `json:"rows"`
	Bytes     int       `json:"bytes"`
	Committed time.Time `json:"committed"`
}

// TableManifest is the content of tables/<table>/CURRENT.
type TableManifest struct {
	Table    string       `json:"table"`
	Version  uint64       `json:"version"`
	Rows     int          `json:"rows"`
	Segments []SegmentRef `json:"segments"`
}

// BlobOptions configures a Blob sink.
type BlobOptions struct {
	// Prefix is the root of all table directories. Default: "tables".
	Prefix string
	// Codec encodes segment manifests and the table manifest in CURRENT.
	// Readers must use the same codec as the writer. Default: codec.Default.
	Codec codec.Codec
	// Compression is applied to segment sections.
	Compression segment.Compression
	// Controller throttles segment writes. Optional.
	Controller *resource.Controller
}

// Blob writes every batch as a segment to a BlobStore and then publishes a
// new table manifest. Readers that load CURRENT see either the old or the
// new segment list, never a partial one.
//
// Commits to one table are serialized within a Blob. When the store
// implements blobstore.VersionedPutter the manifest is published as the
// version following the one read, so a writer in another process that
// published first makes the commit fail with blobstore.ErrConflict instead of
// dropping its segment from the list. Segment names carry a random suffix so
// racing writers never overwrite each other's data.
type Blob struct {
	store blobstore.BlobStore
	opts  BlobOptions

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var (
	_ Sink    = (*Blob)(nil)
	_ Dropper = (*Blob)(nil)
)

// NewBlob creates a Blob sink on store.
func NewBlob(store blobstore.BlobStore, opts BlobOptions) *Blob {
	if opts.Prefix == "" {
		opts.Prefix = "tables"
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	return &Blob{store: store, opts: opts, locks: make(map[string]*sync.Mutex)}
}

// Store returns the underlying blob store.
func (s *Blob) Store() blobstore.BlobStore { return s.store }

func (s *Blob) lock(table string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[table]
	if !ok {
		l = &sync.Mutex{}
		s.locks[table] = l
	}
	return l
}

func (s *Blob) dir(table string) string {
	return path.Join(s.opts.Prefix, table)
}

// Commit implements Sink.
func (s *Blob) Commit(ctx context.Context, table string, b *batch.ColumnBatch) error {
	l := s.lock(table)
	l.Lock()
	defer l.Unlock()

	m, err := s.Manifest(ctx, table)
	if err != nil {
		return err
	}

	data, err := segment.Encode(table, b, segment.Options{Codec: s.opts.Codec, Compression: s.opts.Compression})
	if err != nil {
		return err
	}
	if err := s.opts.Controller.AcquireIO(ctx, len(data)); err != nil {
		return err
	}

	m.Version++
	ref := SegmentRef{
		Name:      fmt.Sprintf("%08d-%s.seg", m.Version, uuid.NewString()),
		Rows:      b.NumRows(),
		Bytes:     len(data),
		Committed: time.Now().UTC(),
	}
	name := path.Join(s.dir(table), ref.Name)
	if err := s.store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("sink: put %s: %w", name, err)
	}

	m.Table = table
	m.Rows += ref.Rows
	m.Segments = append(m.Segments, ref)
	current, err := s.opts.Codec.Marshal(m)
	if err != nil {
		_ = s.store.Delete(context.WithoutCancel(ctx), name)
		return fmt.Errorf("sink: encode manifest: %w", err)
	}
	if err := s.publish(ctx, table, current, m.Version); err != nil {
		// The segment is unreachable without a manifest entry.
		_ = s.store.Delete(context.WithoutCancel(ctx), name)
		return fmt.Errorf("sink: publish %s: %w", table, err)
	}
	return nil
}

func (s *Blob) publish(ctx context.Context, table string, current []byte, version uint64) error {
	name := path.Join(s.dir(table), CurrentName)
	if vp, ok := s.store.(blobstore.VersionedPutter); ok {
		return vp.PutVersion(ctx, name, current, version)
	}
	return s.store.Put(ctx, name, current)
}

// Manifest reads the current manifest of table. A table without commits
// yields an empty manifest.
func (s *Blob) Manifest(ctx context.Context, table string) (TableManifest, error) {
	data, err := blobstore.ReadAll(ctx, s.store, path.Join(s.dir(table), CurrentName))
	if errors.Is(err, blobstore.ErrNotFound) {
		return TableManifest{Table: table}, nil
	}
	if err != nil {
		return TableManifest{}, fmt.Errorf("sink: read manifest: %w", err)
	}
	var m TableManifest
	if err := s.opts.Codec.Unmarshal(data, &m); err != nil {
		return TableManifest{}, fmt.Errorf("sink: decode manifest: %w", err)
	}
	return m, nil
}

// Load decodes every segment listed in the manifest of table, oldest first.
func (s *Blob) Load(ctx context.Context, table string) ([]*segment.Segment, error) {
	m, err := s.Manifest(ctx, table)
	if err != nil {
		return nil, err
	}
	segs := make([]*segment.Segment, 0, len(m.Segments))
	for _, ref := range m.Segments {
		name := path.Join(s.dir(table), ref.Name)
		data, err := blobstore.ReadAll(ctx, s.store, name)
		if err != nil {
			return nil, fmt.Errorf("sink: read %s: %w", name, err)
		}
		seg, err := segment.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("sink: %s: %w", name, err)
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// Drop implements Dropper. The manifest goes first so a crash mid-drop
// leaves only unreferenced segments behind.
func (s *Blob) Drop(ctx context.Context, table string) error {
	l := s.lock(table)
	l.Lock()
	defer l.Unlock()

	dir := s.dir(table)
	if err := s.store.Delete(ctx, path.Join(dir, CurrentName)); err != nil {
		return fmt.Errorf("sink: drop %s: %w", table, err)
	}
	names, err := s.store.List(ctx, dir+"/")
	if err != nil {
		return fmt.Errorf("sink: drop %s: %w", table, err)
	}
	for _, name := range names {
		if err := s.store.Delete(ctx, name); err != nil {
			return fmt.Errorf("sink: drop %s: %w", table, err)
		}
	}
	return nil
}
