package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirrordex/mirrordex/internal/output"
	"github.com/mirrordex/mirrordex/internal/verify"
)

func newVerifyCmd() *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Audit consistency between the index, manifest, and mirror",
		Long: `Verify compares the in-memory index, the persisted manifest, and the
mirror content objects, and reports every divergence. With --repair the
divergence is reconciled: the live index wins over disk.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			e, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			var report *verify.Report
			if repair {
				report, err = e.Repair()
			} else {
				report, err = e.Verify()
			}
			if err != nil {
				return err
			}

			printReport(out, report)
			if !report.Valid {
				if repair {
					return fmt.Errorf("repair left %d unresolved issues", len(report.Issues))
				}
				return fmt.Errorf("index is inconsistent; run 'mirrordex verify --repair'")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "Reconcile any divergence found")
	return cmd
}

func printReport(out *output.Writer, report *verify.Report) {
	if report.Valid {
		out.Successf("index is consistent (%d files)", report.Stats.Indexed)
		return
	}

	out.Errorf("index is inconsistent (%d files indexed)", report.Stats.Indexed)
	for _, issue := range report.Issues {
		out.Printf("  %s\n", issue)
	}
	out.Newline()
	out.Printf("missing from memory: %d, missing from manifest: %d, missing from disk: %d, orphaned: %d\n",
		report.Stats.MissingFromMemory,
		report.Stats.MissingFromManifest,
		report.Stats.MissingFromDisk,
		report.Stats.Orphaned)
}
