package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"datagrid/internal/config"
	"datagrid/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg         *config.Config
	logger      *slog.Logger
	stopLogging func()
)

var rootCmd = &cobra.Command{
	Use:   "datagrid",
	Short: "Sortable, searchable, rearrangeable tables backed by SQLite",
	Long: `datagrid keeps named tables in a local SQLite database.

Rows and columns can be reordered, resized, hidden, searched, sorted and
paged from the terminal UI, or by an AI agent through the MCP server.
Import jobs load CSV files, JSON files and SQL or MongoDB queries into grids,
on demand, on a cron schedule or whenever a file changes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		// The terminal UI owns the screen.
		if cmd.Name() == "tui" && cfg.Logging.File == "" {
			cfg.Logging.File = filepath.Join(cfg.Storage.DataDir, "datagrid.log")
		}

		logger, stopLogging, err = logging.Setup(cfg.Logging)
		if err != nil {
			return fmt.Errorf("initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopLogging != nil {
			stopLogging()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(tuiCmd, mcpCmd, gridsCmd, importCmd, jobsCmd, approvalsCmd, configCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}
