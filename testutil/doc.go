// Package testutil provides testing utilities for vecingest.
//
// This package is intended for use in tests and benchmarks only.
// It generates deterministic random rows that are valid for a given table
// schema.
//
// # Random Rows
//
//	rng := testutil.NewRNG(seed)
//	rows := rng.Rows(tableSchema, 1000, 0.1) // 10% of nullable cells absent
//
// # Random Vectors
//
//	vecs := rng.UniformVectors(100, 128) // values in [0, 1)
package testutil
