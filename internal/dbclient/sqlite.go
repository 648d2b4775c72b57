package dbclient

import (
	"fmt"

	_ "modernc.org/sqlite"
)

// newSQLiteConnector opens an external SQLite file with a busy timeout
// so it can be read while another process writes to it.
func newSQLiteConnector(cfg ConnConfig) (*sqlConnector, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("sqlite: file path is required")
	}
	return newSQLConnector("sqlite", cfg.Host+"?_journal_mode=WAL&_busy_timeout=5000")
}
