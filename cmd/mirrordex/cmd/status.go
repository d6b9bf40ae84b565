package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/mirrordex/mirrordex/internal/output"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index summary for the project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			e, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			records := e.All()
			var totalBytes int64
			languages := make(map[string]int)
			for _, rec := range records {
				totalBytes += rec.Size
				lang := rec.Language
				if lang == "" {
					lang = "(unknown)"
				}
				languages[lang]++
			}

			out.Printf("root:    %s\n", e.Root())
			out.Printf("files:   %d\n", len(records))
			out.Printf("bytes:   %d\n", totalBytes)

			if len(languages) > 0 {
				names := make([]string, 0, len(languages))
				for name := range languages {
					names = append(names, name)
				}
				sort.Slice(names, func(i, j int) bool {
					if languages[names[i]] != languages[names[j]] {
						return languages[names[i]] > languages[names[j]]
					}
					return names[i] < names[j]
				})
				out.Newline()
				for _, name := range names {
					out.Printf("%6d  %s\n", languages[name], name)
				}
			}

			report, err := e.Verify()
			if err != nil {
				return err
			}
			out.Newline()
			if report.Valid {
				out.Successf("consistent")
			} else {
				out.Warningf("%d consistency issues; run 'mirrordex verify'", len(report.Issues))
			}
			return nil
		},
	}
}
