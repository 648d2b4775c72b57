package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"datagrid/internal/domain"
)

// Config holds all datagrid configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Grid    GridConfig    `yaml:"grid"`
	Import  ImportConfig  `yaml:"import"`
	MCP     MCPConfig     `yaml:"mcp"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"` // defaults to <data_dir>/datagrid.db
}

// GridConfig holds the defaults of newly created grids.
type GridConfig struct {
	PageSize int             `yaml:"page_size"`
	Settings domain.Settings `yaml:"settings"`
}

// ImportConfig tunes import job execution.
type ImportConfig struct {
	RunTimeout    string `yaml:"run_timeout"`
	WatchDebounce string `yaml:"watch_debounce"`
	PreviewRows   int    `yaml:"preview_rows"`
}

// MCPConfig configures the MCP server.
type MCPConfig struct {
	RequireApproval bool   `yaml:"require_approval"` // gate run_import_job and delete_grid
	ApprovalTimeout string `yaml:"approval_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	File   string `yaml:"file"`   // empty logs to stderr
	SeqURL string `yaml:"seq_url"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Grid: GridConfig{
			PageSize: domain.DefaultPageSize,
			Settings: domain.DefaultSettings(),
		},
		Import: ImportConfig{
			RunTimeout:    "5m",
			WatchDebounce: "500ms",
			PreviewRows:   10,
		},
		MCP: MCPConfig{
			RequireApproval: true,
			ApprovalTimeout: "2m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "datagrid")
	}
	return ".datagrid"
}

// DefaultPath returns the config file location inside the default data dir.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Write encodes the configuration as YAML to w.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("DATAGRID_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if path := os.Getenv("DATAGRID_DB_PATH"); path != "" {
		c.Storage.DBPath = path
	}
	if url := os.Getenv("DATAGRID_SEQ_URL"); url != "" {
		c.Logging.SeqURL = url
	}
	if level := os.Getenv("DATAGRID_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// DatabasePath returns the SQLite file path.
func (c *Config) DatabasePath() string {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath
	}
	return filepath.Join(c.Storage.DataDir, "datagrid.db")
}

// GetRunTimeout returns the import run timeout as a duration.
func (c *Config) GetRunTimeout() time.Duration {
	return parseDuration(c.Import.RunTimeout, 5*time.Minute)
}

// GetWatchDebounce returns the file watch debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	return parseDuration(c.Import.WatchDebounce, 500*time.Millisecond)
}

// GetApprovalTimeout returns how long destructive MCP calls wait for approval.
func (c *Config) GetApprovalTimeout() time.Duration {
	return parseDuration(c.MCP.ApprovalTimeout, 2*time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for values no component can use.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" && c.Storage.DBPath == "" {
		return fmt.Errorf("storage: data_dir or db_path is required")
	}
	if c.Grid.PageSize <= 0 {
		return fmt.Errorf("grid: page_size must be positive, got %d", c.Grid.PageSize)
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Logging.Format)
	}

	for name, v := range map[string]string{
		"import.run_timeout":    c.Import.RunTimeout,
		"import.watch_debounce": c.Import.WatchDebounce,
		"mcp.approval_timeout":  c.MCP.ApprovalTimeout,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
