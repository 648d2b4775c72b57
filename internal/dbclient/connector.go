package dbclient

import (
	"context"
	"errors"
	"fmt"
)

// ErrWriteQuery is returned when a statement other than a read is executed.
// Grids are populated from query results; connectors never modify the source.
var ErrWriteQuery = errors.New("only read queries are allowed")

// Driver names the database engine behind a connector.
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverMongoDB  Driver = "mongodb"
	DriverSQLite   Driver = "sqlite"
)

// ConnConfig holds what is needed to reach an external database.
type ConnConfig struct {
	Driver   Driver            `json:"driver"`
	Host     string            `json:"host"` // hostname, file path (sqlite) or full URI (mongodb)
	Port     int               `json:"port"`
	Database string            `json:"database"`
	Username string            `json:"username"`
	Password string            `json:"-"`
	SSLMode  string            `json:"sslMode"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// QueryPage is a batch of rows fetched from a query cursor.
type QueryPage struct {
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	TotalFetched int      `json:"totalFetched"`
	HasMore      bool     `json:"hasMore"`
}

// SchemaInfo lists the tables or collections of a database.
type SchemaInfo struct {
	Tables []TableInfo `json:"tables"`
}

// TableInfo describes a table/collection.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// ColumnInfo describes a column/field.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Connector reads tabular data from an external database.
type Connector interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// Execute runs a read query, opens a cursor and returns the first fetchSize rows.
	Execute(ctx context.Context, query string, fetchSize int) (*QueryPage, error)

	// FetchMore continues reading from the open cursor.
	FetchMore(ctx context.Context, fetchSize int) (*QueryPage, error)

	// Introspect returns the tables and their columns.
	Introspect(ctx context.Context) (*SchemaInfo, error)

	// Close closes the connection and any open cursor.
	Close() error
}

// NewConnector creates a Connector for cfg.Driver.
func NewConnector(cfg ConnConfig) (Connector, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return newSQLiteConnector(cfg)
	case DriverMySQL:
		return newSQLConnector("mysql", buildMySQLDSN(cfg))
	case DriverPostgres:
		return newSQLConnector("postgres", buildPostgresDSN(cfg))
	case DriverMongoDB:
		return newMongoConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %q", cfg.Driver)
	}
}
