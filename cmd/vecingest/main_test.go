package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecingest/blobstore"
)

const docsYAML = `name: docs
columns:
  - name: id
    type: bigint
    constraints: [primary key]
  - name: body
    type: varchar
    constraints: ["null"]
  - name: emb
    type: vector,3,float
  - name: lang
    type: varchar
    default: en
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAndInspect(t *testing.T) {
	dir := t.TempDir()
	schemaFile := writeFile(t, dir, "docs.yaml", docsYAML)
	rowsFile := writeFile(t, dir, "rows.json", `[
		{"id": 1, "body": "hello", "emb": [0.5, 1, 2]},
		{"id": 2, "emb": [3, 4, 5], "lang": "de"}
	]`)
	metricsFile := filepath.Join(dir, "metrics.prom")
	store := "local:" + filepath.Join(dir, "data")

	out, err := execute(t, "load", "--schema", schemaFile, "--rows", rowsFile, "--store", store,
		"--compression", "lz4", "--metrics-file", metricsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "table docs: 2 of 2 rows committed")

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "vecingest_rows_committed_total 2")

	out, err = execute(t, "inspect", "--table", "docs", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "2 rows in 1 segments")
	assert.Contains(t, out, `"hello"`)
	assert.Contains(t, out, `"de"`)
	assert.Contains(t, out, "null")

	out, err = execute(t, "inspect", "--table", "docs", "--store", store, "--output", "arrow")
	require.NoError(t, err)
	assert.Contains(t, out, "emb: type=fixed_size_list")
}

func TestLoad_Rejected(t *testing.T) {
	dir := t.TempDir()
	schemaFile := writeFile(t, dir, "docs.yaml", docsYAML)
	rowsFile := writeFile(t, dir, "rows.json", `[{"id": 1, "emb": [1, 2]}]`)

	out, err := execute(t, "load", "--schema", schemaFile, "--rows", rowsFile, "--store", "mem:")
	require.Error(t, err)
	assert.Contains(t, out, "0 of 1 rows committed")
	assert.Contains(t, err.Error(), "DimensionMismatch")
}

func TestLoad_EnvConfig(t *testing.T) {
	dir := t.TempDir()
	schemaFile := writeFile(t, dir, "docs.yaml", docsYAML)
	rowsFile := writeFile(t, dir, "rows.json", `[{"id": 1, "emb": [1, 2, 3]}]`)

	t.Setenv("VECINGEST_STORE", "mem:")
	t.Setenv("VECINGEST_COMPRESSION", "brotli")

	_, err := execute(t, "load", "--schema", schemaFile, "--rows", rowsFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brotli")
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	schemaFile := writeFile(t, dir, "docs.yaml", docsYAML)
	rowsFile := writeFile(t, dir, "rows.json", `[{"id": 1, "emb": [1, 2, 3]}]`)
	cfgFile := writeFile(t, dir, "vecingest.yaml", "store: \"mem:\"\noverflow: reject\nresource:\n  max_concurrent_inserts: 1\n")

	out, err := execute(t, "--config", cfgFile, "load", "--schema", schemaFile, "--rows", rowsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 1 rows committed")
}

func TestTypes(t *testing.T) {
	out, err := execute(t, "types")
	require.NoError(t, err)
	assert.Contains(t, out, "vector,<dim>,<elem>")
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{}

	s, err := openStore(ctx, "mem:", cfg)
	require.NoError(t, err)
	assert.IsType(t, &blobstore.MemoryStore{}, s)

	s, err = openStore(ctx, "local:/tmp/x", cfg)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", s.(*blobstore.LocalStore).Root())

	s, err = openStore(ctx, "./data", cfg)
	require.NoError(t, err)
	assert.IsType(t, &blobstore.LocalStore{}, s)

	_, err = openStore(ctx, "gs://bucket", cfg)
	assert.Error(t, err)
	_, err = openStore(ctx, "s3://", cfg)
	assert.Error(t, err)
	_, err = openStore(ctx, "minio://host", cfg)
	assert.Error(t, err)
}

func TestSplitBucket(t *testing.T) {
	b, p := splitBucket("bucket/a/b/")
	assert.Equal(t, "bucket", b)
	assert.Equal(t, "a/b", p)

	b, p = splitBucket("bucket")
	assert.Equal(t, "bucket", b)
	assert.Empty(t, p)
}
