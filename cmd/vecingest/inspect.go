package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spf13/cobra"

	"github.com/hupe1980/vecingest/arrowexport"
	"github.com/hupe1980/vecingest/codec"
	"github.com/hupe1980/vecingest/segment"
	"github.com/hupe1980/vecingest/sink"
)

func newInspectCmd(cfgFile *string) *cobra.Command {
	var table, output string
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the committed segments of a table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *cfgFile)
			if err != nil {
				return err
			}
			c, ok := codec.ByName(cfg.Codec)
			if !ok {
				return fmt.Errorf("unknown codec %q", cfg.Codec)
			}
			store, err := openStore(cmd.Context(), cfg.Store, cfg)
			if err != nil {
				return err
			}
			return runInspect(cmd.Context(), cmd.OutOrStdout(), sink.NewBlob(store, sink.BlobOptions{Codec: c}), table, output, limit)
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "Table name (required)")
	_ = cmd.MarkFlagRequired("table")
	cmd.Flags().StringVar(&output, "output", "text", "Output format (text, arrow)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Rows to print per segment, 0 for all")
	return cmd
}

func runInspect(ctx context.Context, out io.Writer, blob *sink.Blob, table, output string, limit int) error {
	m, err := blob.Manifest(ctx, table)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "table %s: version %d, %d rows in %d segments\n", table, m.Version, m.Rows, len(m.Segments))
	if len(m.Segments) == 0 {
		return nil
	}

	segs, err := blob.Load(ctx, table)
	if err != nil {
		return err
	}
	for i, seg := range segs {
		ref := m.Segments[i]
		fmt.Fprintf(out, "\n%s: %d rows, %d bytes, %s\n", ref.Name, ref.Rows, ref.Bytes, seg.Manifest.Compression)
		switch output {
		case "arrow":
			if err := printArrow(out, seg); err != nil {
				return err
			}
		case "text":
			printText(out, seg, limit)
		default:
			return fmt.Errorf("unknown output format %q", output)
		}
	}
	return nil
}

func printText(out io.Writer, seg *segment.Segment, limit int) {
	b := seg.Batch
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	for i, col := range b.Columns() {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprintf(tw, "%s %s", col.Name, col.Type)
	}
	fmt.Fprintln(tw)

	n := b.NumRows()
	if limit > 0 {
		n = min(n, limit)
	}
	for r := range n {
		for i, col := range b.Columns() {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, col.Value(r))
		}
		fmt.Fprintln(tw)
	}
	if n < b.NumRows() {
		fmt.Fprintf(tw, "... %d more rows\n", b.NumRows()-n)
	}
}

func printArrow(out io.Writer, seg *segment.Segment) error {
	rec, err := arrowexport.Record(seg.Batch, memory.NewGoAllocator())
	if err != nil {
		return err
	}
	defer rec.Release()

	fmt.Fprintln(out, rec.Schema())
	for i, col := range rec.Columns() {
		fmt.Fprintf(out, "%s: %v\n", rec.ColumnName(i), col)
	}
	return nil
}
