// Command vecingest loads rows into blob-backed tables and inspects the
// segments it wrote.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "vecingest",
		Short: "vecingest - columnar row ingestion for vector tables",
		Long: `vecingest validates rows against a table definition, coerces them to the
declared column types and commits them as compressed column segments to a
local directory, S3 or MinIO.

Every flag can also be set in a config file (--config) or through an
environment variable with the VECINGEST_ prefix, e.g. VECINGEST_STORE.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a config file (yaml, json or toml)")
	root.PersistentFlags().String("store", "local:./data", "Blob store: local:DIR, mem:, s3://bucket/prefix or minio://host/bucket/prefix")
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vecingest v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(newTypesCmd())
	root.AddCommand(newLoadCmd(&cfgFile))
	root.AddCommand(newInspectCmd(&cfgFile))
	return root
}
