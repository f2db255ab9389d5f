// Package segment serializes sealed column batches into self-describing,
// optionally compressed byte blobs.
//
// Layout:
//
//	magic    "VISG"
//	version  uint16
//	codec    uint8 length + name
//	manifest uint32 length + codec-encoded Manifest
//	sections one block per column buffer, in manifest order
//	crc32    IEEE checksum of everything above
//
// Decode rebuilds a ColumnBatch identical to the encoded one.
package segment

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vecingest/batch"
	"github.com/hupe1980/vecingest/codec"
	"github.com/hupe1980/vecingest/schema"
)

const (
	magic   = "VISG"
	version = 1
)

var (
	// ErrBadMagic is returned when the blob is not a segment.
	ErrBadMagic = errors.New("segment: bad magic")
	// ErrChecksum is returned when the trailing checksum does not match.
	ErrChecksum = errors.New("segment: checksum mismatch")
	// ErrUnsupportedVersion is returned for segments from a newer format.
	ErrUnsupportedVersion = errors.New("segment: unsupported version")
)

// Section names, in the order they are written for each column.
const (
	SectionData         = "data"
	SectionOffsets      = "offsets"
	SectionIndices      = "indices"
	SectionArrayOffsets = "array_offsets"
	SectionTensorLens   = "tensor_lens"
	SectionNulls        = "nulls"
	SectionDefaults     = "defaults"
)

// ColumnManifest describes one column and its sections.
type ColumnManifest struct {
	Name        string   `json:"name" msgpack:"name"`
	Type        string   `json:"type" msgpack:"type"`
	Constraints []string `json:"constraints,omitempty" msgpack:"constraints,omitempty"`
	Sections    []string `json:"sections" msgpack:"sections"`
}

// Manifest is the segment header.
type Manifest struct {
	Table       string           `json:"table" msgpack:"table"`
	Rows        int              `json:"rows" msgpack:"rows"`
	Compression Compression      `json:"compression" msgpack:"compression"`
	Columns     []ColumnManifest `json:"columns" msgpack:"columns"`
}

// Options configures Encode.
type Options struct {
	Codec       codec.Codec
	Compression Compression
}

// Segment is a decoded segment.
type Segment struct {
	Manifest Manifest
	Batch    *batch.ColumnBatch
}

// Encode serializes b.
//
// Column defaults are not persisted: a segment holds data, and every default
// is already materialized in the rows it filled.
func Encode(table string, b *batch.ColumnBatch, opts Options) ([]byte, error) {
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}

	m := Manifest{Table: table, Rows: b.NumRows(), Compression: opts.Compression}
	defs := b.Schema().Defs()
	var sections [][]byte

	for i, col := range b.Columns() {
		cm := ColumnManifest{Name: col.Name, Type: col.Type.String(), Constraints: defs[i].Constraints}
		add := func(name string, data []byte) {
			cm.Sections = append(cm.Sections, name)
			sections = append(sections, data)
		}

		add(SectionData, col.Data)
		if col.Offsets != nil {
			add(SectionOffsets, uint64sToBytes(col.Offsets))
		}
		if col.Type.Family == schema.FamilySparse {
			add(SectionIndices, col.Indices)
		}
		if col.Type.Family == schema.FamilyTensorArray {
			add(SectionArrayOffsets, uint64sToBytes(col.ArrayOffsets))
			add(SectionTensorLens, uint32sToBytes(col.TensorLens))
		}
		nulls, err := col.Nulls.ToBytes()
		if err != nil {
			return nil, fmt.Errorf("segment: column %q nulls: %w", col.Name, err)
		}
		add(SectionNulls, nulls)
		defaults, err := col.Defaults.ToBytes()
		if err != nil {
			return nil, fmt.Errorf("segment: column %q defaults: %w", col.Name, err)
		}
		add(SectionDefaults, defaults)

		m.Columns = append(m.Columns, cm)
	}

	header, err := opts.Codec.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("segment: encode manifest: %w", err)
	}
	name := opts.Codec.Name()

	out := make([]byte, 0, 64+len(header)+b.Size())
	out = append(out, magic...)
	out = binary.LittleEndian.AppendUint16(out, version)
	out = append(out, byte(len(name)))
	out = append(out, name...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(header))) //nolint:gosec // manifest is small
	out = append(out, header...)
	for _, s := range sections {
		out = compressBlock(out, s, opts.Compression)
	}
	return binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(out)), nil
}

// Decode parses a segment produced by Encode.
func Decode(data []byte) (*Segment, error) {
	if len(data) < len(magic)+2+1+4+4 {
		return nil, ErrBadMagic
	}
	if string(data[:len(magic)]) != magic {
		return nil, ErrBadMagic
	}
	body, sum := data[:len(data)-4], binary.LittleEndian.Uint32(data[len(data)-4:])
	if crc32.ChecksumIEEE(body) != sum {
		return nil, ErrChecksum
	}

	p := body[len(magic):]
	if v := binary.LittleEndian.Uint16(p); v != version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	p = p[2:]

	nameLen := int(p[0])
	p = p[1:]
	if len(p) < nameLen+4 {
		return nil, errors.New("segment: truncated header")
	}
	c, ok := codec.ByName(string(p[:nameLen]))
	if !ok {
		return nil, fmt.Errorf("segment: unknown codec %q", p[:nameLen])
	}
	p = p[nameLen:]

	hlen := int(binary.LittleEndian.Uint32(p))
	p = p[4:]
	if len(p) < hlen {
		return nil, errors.New("segment: truncated manifest")
	}
	var m Manifest
	if err := c.Unmarshal(p[:hlen], &m); err != nil {
		return nil, fmt.Errorf("segment: decode manifest: %w", err)
	}
	p = p[hlen:]

	defs := make([]schema.ColumnDef, len(m.Columns))
	for i, cm := range m.Columns {
		defs[i] = schema.ColumnDef{Name: cm.Name, Type: cm.Type, Constraints: cm.Constraints}
	}
	s, err := schema.FromDefs(defs)
	if err != nil {
		return nil, fmt.Errorf("segment: schema: %w", err)
	}

	cols := make([]*batch.Column, len(m.Columns))
	for i, cm := range m.Columns {
		cs := s.Column(i)
		col := batch.Column{Name: cs.Name, Type: cs.Type}
		for _, sec := range cm.Sections {
			raw, n, err := decompressBlock(p, m.Compression)
			if err != nil {
				return nil, fmt.Errorf("segment: column %q section %s: %w", cm.Name, sec, err)
			}
			p = p[n:]
			if err := assign(&col, sec, raw); err != nil {
				return nil, fmt.Errorf("segment: column %q section %s: %w", cm.Name, sec, err)
			}
		}
		if col.Nulls == nil {
			col.Nulls = roaring.New()
		}
		if col.Defaults == nil {
			col.Defaults = roaring.New()
		}
		cols[i] = batch.NewColumn(col, m.Rows)
	}
	if len(p) != 0 {
		return nil, fmt.Errorf("segment: %d trailing bytes", len(p))
	}

	b, err := batch.New(s, cols)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	return &Segment{Manifest: m, Batch: b}, nil
}

func assign(col *batch.Column, section string, raw []byte) error {
	switch section {
	case SectionData:
		col.Data = clone(raw)
	case SectionOffsets:
		col.Offsets = bytesToUint64s(raw)
	case SectionIndices:
		col.Indices = clone(raw)
	case SectionArrayOffsets:
		col.ArrayOffsets = bytesToUint64s(raw)
	case SectionTensorLens:
		col.TensorLens = bytesToUint32s(raw)
	case SectionNulls:
		col.Nulls = roaring.New()
		return col.Nulls.UnmarshalBinary(raw)
	case SectionDefaults:
		col.Defaults = roaring.New()
		return col.Defaults.UnmarshalBinary(raw)
	default:
		return fmt.Errorf("unknown section")
	}
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func uint64sToBytes(xs []uint64) []byte {
	out := make([]byte, 0, 8*len(xs))
	for _, x := range xs {
		out = binary.LittleEndian.AppendUint64(out, x)
	}
	return out
}

func bytesToUint64s(b []byte) []uint64 {
	out := make([]uint64, len(b)/8)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	return out
}

func uint32sToBytes(xs []uint32) []byte {
	out := make([]byte, 0, 4*len(xs))
	for _, x := range xs {
		out = binary.LittleEndian.AppendUint32(out, x)
	}
	return out
}

func bytesToUint32s(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}
