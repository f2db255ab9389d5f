package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hupe1980/vecingest"
	"github.com/hupe1980/vecingest/codec"
	"github.com/hupe1980/vecingest/coerce"
	"github.com/hupe1980/vecingest/metrics/prom"
	"github.com/hupe1980/vecingest/resource"
	"github.com/hupe1980/vecingest/schema"
	"github.com/hupe1980/vecingest/segment"
	"github.com/hupe1980/vecingest/sink"
	"github.com/hupe1980/vecingest/value"
)

func newLoadCmd(cfgFile *string) *cobra.Command {
	var schemaFile, rowsFile string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Validate rows and commit them to a table",
		Long: `Load reads a table definition (YAML or JSON) and a rows file, validates
and coerces every row, and commits the rows as segments to the store.
Rows files larger than the batch limit are committed in several batches;
loading stops at the first rejected batch.

Example:
  vecingest load --schema docs.yaml --rows rows.json --store local:./data`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *cfgFile)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runLoad(ctx, cmd.OutOrStdout(), cfg, schemaFile, rowsFile)
		},
	}

	cmd.Flags().StringVar(&schemaFile, "schema", "", "Path to the table definition, .yaml/.yml or .json (required)")
	cmd.Flags().StringVar(&rowsFile, "rows", "", "Path to the rows file, - for stdin (required)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("rows")

	cmd.Flags().String("format", "json", "Rows file format (json, msgpack)")
	cmd.Flags().String("compression", "zstd", "Segment compression (none, lz4, zstd)")
	cmd.Flags().String("codec", "json", "Segment manifest codec ("+strings.Join(codec.Names(), ", ")+")")
	cmd.Flags().String("overflow", "wrap", "Numeric overflow policy (wrap, saturate, reject)")
	cmd.Flags().Int("parallelism", 0, "Coercion workers per batch, 0 for GOMAXPROCS")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics in text format to this file when done")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Load timeout")
	return cmd
}

func readDefinition(path string) (*schema.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return schema.ParseDefinitionJSON(data)
	default:
		return schema.ParseDefinitionYAML(data)
	}
}

func readRows(ctx context.Context, path, format string, rc *resource.Controller) ([]value.Row, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open rows file %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(resource.NewRateLimitedReader(ctx, r, rc))
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	switch strings.ToLower(format) {
	case "json":
		return value.DecodeJSONRows(data)
	case "msgpack":
		return value.DecodeMsgpackRows(data)
	default:
		return nil, fmt.Errorf("unknown rows format %q", format)
	}
}

func runLoad(ctx context.Context, out io.Writer, cfg *Config, schemaFile, rowsFile string) error {
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	compression, err := segment.ParseCompression(cfg.Compression)
	if err != nil {
		return err
	}
	policy, err := coerce.ParseOverflowPolicy(cfg.Overflow)
	if err != nil {
		return err
	}
	c, ok := codec.ByName(cfg.Codec)
	if !ok {
		return fmt.Errorf("unknown codec %q", cfg.Codec)
	}

	def, err := readDefinition(schemaFile)
	if err != nil {
		return err
	}

	rc := resource.NewController(cfg.Resource)
	rows, err := readRows(ctx, rowsFile, cfg.Format, rc)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg.Store, cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	db := vecingest.Open(
		vecingest.WithLogLevel(level),
		vecingest.WithSink(sink.NewBlob(store, sink.BlobOptions{
			Codec:       c,
			Compression: compression,
			Controller:  rc,
		})),
		vecingest.WithOverflowPolicy(policy),
		vecingest.WithParallelism(cfg.Parallelism),
		vecingest.WithResourceController(rc),
		vecingest.WithMetricsCollector(prom.NewCollector(reg)),
	)
	defer db.Close()

	tbl, err := db.CreateTable(ctx, def.Name, def.Columns, vecingest.ConflictError)
	if err != nil {
		return err
	}

	committed, loadErr := insertAll(ctx, tbl, rows)
	fmt.Fprintf(out, "table %s: %d of %d rows committed\n", def.Name, committed, len(rows))

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return loadErr
}

// insertAll commits rows in batches of at most the table's row limit. It
// stops at the first rejected batch; earlier batches stay committed.
func insertAll(ctx context.Context, tbl *vecingest.Table, rows []value.Row) (int, error) {
	if len(rows) == 0 {
		_, err := tbl.Insert(ctx, rows)
		return 0, err
	}

	limit := tbl.BatchRowLimit()
	committed := 0
	for lo := 0; lo < len(rows); lo += limit {
		hi := min(lo+limit, len(rows))
		res, err := tbl.Insert(ctx, rows[lo:hi])
		if err != nil {
			return committed, fmt.Errorf("batch at row %d: %s: %w", lo, res.Code, err)
		}
		committed += res.Rows
	}
	return committed, nil
}
