// Package cmd provides the CLI commands for mirrordex.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mirrordex/mirrordex/internal/config"
	"github.com/mirrordex/mirrordex/internal/engine"
	"github.com/mirrordex/mirrordex/internal/logging"
	"github.com/mirrordex/mirrordex/pkg/version"
)

var (
	rootFlag  string
	debugMode bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the mirrordex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirrordex",
		Short: "Local code index with a durable on-disk mirror",
		Long: `Mirrordex indexes the text files of a project into memory and mirrors
them to disk, so searches are instant and the index survives restarts.

Run 'mirrordex scan' in a project directory to build the index, then
'mirrordex search' to query it.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("mirrordex version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&rootFlag, "root", "r", ".", "Project root directory")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newUpsertCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setupLogging routes structured logs to the storage directory, keeping
// stdout clean for command output.
func setupLogging(_ *cobra.Command, _ []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if debugMode {
		level = "debug"
	}
	logger, cleanup, err := logging.Setup(logging.Config{
		Level:         level,
		FilePath:      logging.FilePathFor(config.StorageDir(root)),
		WriteToStderr: debugMode,
	})
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// projectRoot resolves the --root flag to an absolute path.
func projectRoot() (string, error) {
	abs, err := filepath.Abs(rootFlag)
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", abs)
	}
	return abs, nil
}

// openEngine loads the configuration and opens the engine for the project
// root. Callers must Close the returned engine.
func openEngine() (*engine.Engine, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return engine.Open(root, cfg, slog.Default())
}
