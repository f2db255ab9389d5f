package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecingest/schema"
)

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List accepted column type strings",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, t := range schema.TypeStrings() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}
}
