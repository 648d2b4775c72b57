package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"datagrid/internal/app"
	"datagrid/internal/service"
	"datagrid/internal/tui"
)

// openApp builds the app for a command. The caller must Shutdown it.
func openApp(emitter service.EventEmitter) (*app.App, error) {
	return app.New(cfg, logger, emitter)
}

func printTable(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	fmt.Println(t)
}

// ── tui ────────────────────────────────────────────────────

var tuiCmd = &cobra.Command{
	Use:   "tui [grid]",
	Short: "Open a grid in the terminal UI",
	Long: `Opens a grid by ID or name.

Keys:
  /        search          ←/→      previous / next page
  [ ]      page size       tab      focus next column
  < >      move column     J K      move row down / up
  + -      column width    s        cycle sort
  h        hide column     H        show all columns
  r        refresh         q        quit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		emitter := &tui.ProgramEmitter{}
		a, err := openApp(emitter)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		a.Startup(cmd.Context())
		return tui.Run(cmd.Context(), a.Grids, args[0], emitter)
	},
}

// ── mcp ────────────────────────────────────────────────────

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve grids to AI agents over MCP on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Shutdown()
		return a.ServeMCP(cmd.Context())
	},
}

// ── grids ──────────────────────────────────────────────────

var gridsCmd = &cobra.Command{
	Use:   "grids",
	Short: "List grids",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		grids, err := a.Grids.ListGrids()
		if err != nil {
			return err
		}
		rows := make([][]string, len(grids))
		for i, g := range grids {
			stats, err := a.Grids.Stats(g.ID)
			if err != nil {
				return err
			}
			updated := g.UpdatedAt
			if stats.LastUpdated.After(updated) {
				updated = stats.LastUpdated
			}
			rows[i] = []string{
				g.ID,
				g.Name,
				strconv.Itoa(len(g.Config.Columns)),
				strconv.Itoa(stats.Rows),
				updated.Local().Format("2006-01-02 15:04"),
			}
		}
		printTable([]string{"ID", "NAME", "COLUMNS", "ROWS", "UPDATED"}, rows)
		return nil
	},
}

var gridsDeleteCmd = &cobra.Command{
	Use:   "delete [grid]",
	Short: "Delete a grid and its rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Shutdown()
		return a.Grids.DeleteGrid(cmd.Context(), args[0])
	},
}

// ── import ─────────────────────────────────────────────────

var (
	importGrid string
	importKey  string
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Load a CSV or JSON file into a grid",
	Long: `Creates a manual import job for the file and runs it once.
Files ending in .json are read as JSON arrays, anything else as CSV.
The grid defaults to the file name without its extension.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		name := importGrid
		if name == "" {
			base := filepath.Base(args[0])
			name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		res, err := a.Imports.ImportFile(cmd.Context(), args[0], name, importKey)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d rows into %s (%d skipped)\n", res.RowsWritten, name, res.RowsSkipped)
		return nil
	},
}

// ── jobs ───────────────────────────────────────────────────

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List import jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		jobs, err := a.Imports.ListJobs()
		if err != nil {
			return err
		}
		rows := make([][]string, len(jobs))
		for i, j := range jobs {
			rows[i] = []string{j.ID, j.Name, j.SourceType, j.TargetGrid, j.TriggerType, j.LastStatus}
		}
		printTable([]string{"ID", "NAME", "SOURCE", "GRID", "TRIGGER", "LAST RUN"}, rows)
		return nil
	},
}

var jobsRunCmd = &cobra.Command{
	Use:   "run [job-id]",
	Short: "Run an import job now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		res, err := a.Imports.RunJob(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Read %d, wrote %d, skipped %d rows in %s\n",
			res.RowsRead, res.RowsWritten, res.RowsSkipped, res.Duration)
		return nil
	},
}

var jobsLogsLimit int

var jobsLogsCmd = &cobra.Command{
	Use:   "logs [job-id]",
	Short: "Show the recent runs of an import job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		logs, err := a.Imports.ListRunLogs(args[0], jobsLogsLimit)
		if err != nil {
			return err
		}
		rows := make([][]string, len(logs))
		for i, l := range logs {
			rows[i] = []string{
				l.StartedAt.Local().Format("2006-01-02 15:04:05"),
				l.Status,
				strconv.Itoa(l.RowsRead),
				strconv.Itoa(l.RowsWritten),
				strconv.Itoa(l.RowsSkipped),
				l.Error,
			}
		}
		printTable([]string{"STARTED", "STATUS", "READ", "WRITTEN", "SKIPPED", "ERROR"}, rows)
		return nil
	},
}

// ── approvals ──────────────────────────────────────────────

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "List MCP actions waiting for approval",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		pending, err := a.PendingApprovals()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("No pending actions")
			return nil
		}
		rows := make([][]string, len(pending))
		for i, p := range pending {
			rows[i] = []string{p.ID, p.Tool, p.Description, p.CreatedAt}
		}
		printTable([]string{"ID", "TOOL", "DESCRIPTION", "REQUESTED"}, rows)
		return nil
	},
}

func resolveCmd(use, short string, approved bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Shutdown()
			return a.ResolveApproval(args[0], approved)
		},
	}
}

// ── config ─────────────────────────────────────────────────

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("# %s\n", configPath)
		return cfg.Write(os.Stdout)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists", configPath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		fmt.Println("Wrote", configPath)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importGrid, "grid", "", "target grid name")
	importCmd.Flags().StringVar(&importKey, "key", "", "field whose values become row keys")
	jobsLogsCmd.Flags().IntVar(&jobsLogsLimit, "limit", 10, "number of runs to show")

	gridsCmd.AddCommand(gridsDeleteCmd)
	jobsCmd.AddCommand(jobsRunCmd, jobsLogsCmd)
	approvalsCmd.AddCommand(
		resolveCmd("approve", "Approve a pending MCP action", true),
		resolveCmd("reject", "Reject a pending MCP action", false),
	)
	configCmd.AddCommand(configInitCmd)
}
