package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mirrordex/mirrordex/internal/output"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [glob...]",
		Short: "Build the index from a full project scan",
		Long: `Scan clears the existing index and mirror, enumerates the project tree,
and indexes every acceptable text file. Optional glob arguments restrict
the scan to matching paths.

Examples:
  mirrordex scan
  mirrordex scan "**/*.go"
  mirrordex scan "src/**" "docs/**/*.md"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())

			e, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			start := time.Now()
			count, err := e.Scan(cmd.Context(), args)
			if err != nil {
				return err
			}

			out.Successf("indexed %d files in %s", count, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	return cmd
}
