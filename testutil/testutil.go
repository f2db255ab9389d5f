package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/vecingest/schema"
	"github.com/hupe1980/vecingest/value"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec // deterministic test data
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float32()
		}
		vectors[i] = vec
	}

	return vectors
}

const letters = "abcdefghijklmnopqrstuvwxyz0123456789"

// Value returns a random value that coerces into t without overflow.
func (r *RNG) Value(t schema.ColumnType) value.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.valueLocked(t)
}

func (r *RNG) valueLocked(t schema.ColumnType) value.Value {
	switch t.Family {
	case schema.FamilyVector:
		return r.elems(t.Elem, t.Dim)
	case schema.FamilyTensor:
		return r.elems(t.Elem, t.Dim*(1+r.rand.Intn(3)))
	case schema.FamilyTensorArray:
		n := 1 + r.rand.Intn(3)
		tensors := make([]value.Value, n)
		for i := range tensors {
			tensors[i] = r.elems(t.Elem, t.Dim*(1+r.rand.Intn(2)))
		}
		return value.List(tensors...)
	case schema.FamilySparse:
		n := min(t.Dim, 1+r.rand.Intn(8))
		seen := make(map[int]bool, n)
		idx := make([]value.Value, 0, n)
		for len(idx) < n {
			p := r.rand.Intn(t.Dim)
			if !seen[p] {
				seen[p] = true
				idx = append(idx, value.Int(int64(p)))
			}
		}
		return value.Sparse(idx, r.elems(t.Elem, n).A)
	default:
		return r.scalar(t.Family)
	}
}

func (r *RNG) elems(f schema.Family, n int) value.Value {
	out := make([]value.Value, n)
	for i := range out {
		out[i] = r.scalar(f)
	}
	return value.List(out...)
}

func (r *RNG) scalar(f schema.Family) value.Value {
	switch {
	case f == schema.FamilyBool:
		return value.Bool(r.rand.Intn(2) == 1)
	case f.IsInteger():
		lo, hi := f.IntRange()
		if hi-lo < 0 || hi-lo >= 1<<62 {
			return value.Int(r.rand.Int63() - r.rand.Int63())
		}
		return value.Int(lo + r.rand.Int63n(hi-lo+1))
	case f.IsFloat():
		return value.Float(float64(r.rand.Float32()*2 - 1))
	case f == schema.FamilyVarchar:
		b := make([]byte, 1+r.rand.Intn(16))
		for i := range b {
			b[i] = letters[r.rand.Intn(len(letters))]
		}
		return value.String(string(b))
	default:
		return value.Null()
	}
}

// Row returns a random row for s. Nullable columns and columns with a
// default are left out with probability missingRate.
func (r *RNG) Row(s *schema.TableSchema, missingRate float64) value.Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rowLocked(s, missingRate)
}

func (r *RNG) rowLocked(s *schema.TableSchema, missingRate float64) value.Row {
	row := make(value.Row, s.NumColumns())
	for i := range s.NumColumns() {
		col := s.Column(i)
		if (col.Nullable || col.HasDefault()) && r.rand.Float64() < missingRate {
			continue
		}
		row[col.Name] = r.valueLocked(col.Type)
	}
	if len(row) == 0 {
		col := s.Column(0)
		row[col.Name] = r.valueLocked(col.Type)
	}
	return row
}

// Rows returns n random rows for s.
func (r *RNG) Rows(s *schema.TableSchema, n int, missingRate float64) []value.Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make([]value.Row, n)
	for i := range rows {
		rows[i] = r.rowLocked(s, missingRate)
	}
	return rows
}
