package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mirrordex/mirrordex/internal/output"
)

func newWatchCmd() *cobra.Command {
	var rescan bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the index current by watching the filesystem",
		Long: `Watch subscribes to filesystem events under the project root and applies
debounced changes to the index until interrupted. With --rescan a full
scan runs first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			e, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			if rescan {
				count, err := e.Scan(cmd.Context(), nil)
				if err != nil {
					return err
				}
				out.Successf("indexed %d files", count)
			}

			if err := e.StartWatcher(cmd.Context()); err != nil {
				return err
			}
			out.Successf("watching %s (%d files indexed); press Ctrl-C to stop", e.Root(), e.Len())

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			select {
			case <-sig:
			case <-cmd.Context().Done():
			}

			if err := e.StopWatcher(); err != nil {
				return err
			}
			out.Successf("stopped; %d files indexed", e.Len())
			return nil
		},
	}

	cmd.Flags().BoolVar(&rescan, "rescan", false, "Run a full scan before watching")
	return cmd
}
