package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirrordex/mirrordex/internal/output"
)

func newGetCmd() *cobra.Command {
	var meta bool

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Print an indexed file's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			rec, ok := e.GetFile(args[0])
			if !ok {
				return fmt.Errorf("%s is not indexed", args[0])
			}

			out := output.New(cmd.OutOrStdout())
			if meta {
				out.Printf("path:     %s\n", rec.RelPath)
				out.Printf("language: %s\n", rec.Language)
				out.Printf("size:     %d\n", rec.Size)
				out.Printf("modified: %s\n", rec.ModTime.Format("2006-01-02 15:04:05"))
				return nil
			}
			out.Printf("%s", rec.Content)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&meta, "meta", "m", false, "Print metadata instead of content")
	return cmd
}

func newUpsertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upsert <path>",
		Short: "Re-read one file from disk into the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			if err := e.Upsert(args[0]); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("indexed %s", args[0])
			return nil
		},
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove a file from the index and mirror",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			if err := e.Remove(args[0]); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("removed %s", args[0])
			return nil
		},
	}
}
