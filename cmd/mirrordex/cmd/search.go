package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mirrordex/mirrordex/internal/output"
	"github.com/mirrordex/mirrordex/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	regex         bool
	caseSensitive bool
	wholeWord     bool
	pathFilter    string
	language      string
	limit         int
	format        string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed files",
		Long: `Search runs a line-oriented query over every indexed file.

Examples:
  mirrordex search "handleRequest"
  mirrordex search --regex "func \w+Handler" --language go
  mirrordex search "TODO" --path src/ --limit 20`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.regex, "regex", "e", false, "Interpret the query as a regular expression")
	cmd.Flags().BoolVarP(&opts.caseSensitive, "case-sensitive", "c", false, "Match case exactly")
	cmd.Flags().BoolVarP(&opts.wholeWord, "word", "w", false, "Match whole words only (literal mode)")
	cmd.Flags().StringVarP(&opts.pathFilter, "path", "p", "", "Only files whose path contains this substring")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Only files with this language tag (e.g. go, python)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of line matches (default 100)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	mode := search.ModeLiteral
	if opts.regex {
		mode = search.ModeRegex
	}
	results, err := e.Search(query, search.Options{
		Mode:          mode,
		CaseSensitive: opts.caseSensitive,
		WholeWord:     opts.wholeWord,
		PathFilter:    opts.pathFilter,
		Language:      opts.language,
		MaxResults:    opts.limit,
	})
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		out.Printf("no matches\n")
		return nil
	}
	total := 0
	for _, fm := range results {
		for _, m := range fm.Matches {
			out.Printf("%s:%d: %s\n", fm.RelPath, m.Line, m.Text)
			total++
		}
	}
	out.Newline()
	out.Printf("%d matches in %d files\n", total, len(results))
	return nil
}
