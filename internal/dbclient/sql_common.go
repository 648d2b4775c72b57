package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"
)

// sqlConnector is the shared implementation for MySQL, Postgres, and SQLite.
type sqlConnector struct {
	driverName string
	db         *sql.DB

	mu         sync.Mutex
	activeRows *sql.Rows
	cancel     context.CancelFunc
	columns    []string
	fetched    int
}

func newSQLConnector(driverName, dsn string) (*sqlConnector, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &sqlConnector{driverName: driverName, db: db}, nil
}

func (c *sqlConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

// isReadQuery detects SELECT, WITH, SHOW, DESCRIBE, EXPLAIN and PRAGMA statements.
func isReadQuery(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "EXPLAIN", "PRAGMA"} {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return false
}

func (c *sqlConnector) Execute(ctx context.Context, query string, fetchSize int) (*QueryPage, error) {
	if !isReadQuery(query) {
		return nil, ErrWriteQuery
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeCursorLocked()
	if fetchSize <= 0 {
		fetchSize = 50
	}

	// The cursor outlives this call, so its context is cancelled on close.
	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Minute)
	rows, err := c.db.QueryContext(qctx, query)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("query: %w", err)
	}

	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		cancel()
		return nil, fmt.Errorf("columns: %w", err)
	}

	c.activeRows = rows
	c.cancel = cancel
	c.columns = cols
	c.fetched = 0

	return c.fetchBatchLocked(fetchSize)
}

func (c *sqlConnector) FetchMore(ctx context.Context, fetchSize int) (*QueryPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeRows == nil {
		return nil, fmt.Errorf("no active cursor: execute a query first")
	}
	if fetchSize <= 0 {
		fetchSize = 50
	}
	return c.fetchBatchLocked(fetchSize)
}

// fetchBatchLocked reads up to fetchSize rows from the active cursor.
// Must be called while holding c.mu.
func (c *sqlConnector) fetchBatchLocked(fetchSize int) (*QueryPage, error) {
	var resultRows [][]any
	numCols := len(c.columns)

	for i := 0; i < fetchSize; i++ {
		if !c.activeRows.Next() {
			break
		}
		values := make([]any, numCols)
		ptrs := make([]any, numCols)
		for j := range values {
			ptrs[j] = &values[j]
		}
		if err := c.activeRows.Scan(ptrs...); err != nil {
			c.closeCursorLocked()
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make([]any, numCols)
		for j, v := range values {
			row[j] = normalizeValue(v)
		}
		resultRows = append(resultRows, row)
	}

	if err := c.activeRows.Err(); err != nil {
		c.closeCursorLocked()
		return nil, fmt.Errorf("iterate: %w", err)
	}

	c.fetched += len(resultRows)
	columns := c.columns

	hasMore := len(resultRows) == fetchSize
	if !hasMore {
		c.closeCursorLocked()
	}

	return &QueryPage{
		Columns:      columns,
		Rows:         resultRows,
		TotalFetched: c.fetched,
		HasMore:      hasMore,
	}, nil
}

// normalizeValue converts driver values to the scalar forms grid records hold:
// strings, float64, bool, time.Time or nil.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case int64:
		return float64(val)
	case int32:
		return float64(val)
	case int:
		return float64(val)
	case float32:
		return float64(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}

func (c *sqlConnector) Introspect(ctx context.Context) (*SchemaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if c.driverName == "sqlite" {
		return c.introspectSQLite(ctx)
	}
	return c.introspectInfoSchema(ctx)
}

// introspectInfoSchema works for MySQL and Postgres via INFORMATION_SCHEMA.
func (c *sqlConnector) introspectInfoSchema(ctx context.Context) (*SchemaInfo, error) {
	tableQuery := `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = DATABASE() ORDER BY TABLE_NAME`
	columnQuery := `SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_NAME = ? ORDER BY ORDINAL_POSITION`
	if c.driverName == "postgres" {
		tableQuery = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() ORDER BY table_name`
		columnQuery = `SELECT column_name, data_type FROM information_schema.columns
			WHERE table_name = $1 ORDER BY ordinal_position`
	}

	tableNames, err := c.queryNames(ctx, tableQuery)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	schema := &SchemaInfo{}
	for _, tbl := range tableNames {
		colRows, err := c.db.QueryContext(ctx, columnQuery, tbl)
		if err != nil {
			schema.Tables = append(schema.Tables, TableInfo{Name: tbl})
			continue
		}

		var cols []ColumnInfo
		for colRows.Next() {
			var ci ColumnInfo
			if err := colRows.Scan(&ci.Name, &ci.Type); err != nil {
				continue
			}
			cols = append(cols, ci)
		}
		colRows.Close()

		schema.Tables = append(schema.Tables, TableInfo{Name: tbl, Columns: cols})
	}

	return schema, nil
}

// introspectSQLite uses sqlite_master + PRAGMA table_info.
func (c *sqlConnector) introspectSQLite(ctx context.Context) (*SchemaInfo, error) {
	tableNames, err := c.queryNames(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	schema := &SchemaInfo{}
	for _, tbl := range tableNames {
		pragmaRows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info('%s')", strings.ReplaceAll(tbl, "'", "''")))
		if err != nil {
			schema.Tables = append(schema.Tables, TableInfo{Name: tbl})
			continue
		}

		var cols []ColumnInfo
		for pragmaRows.Next() {
			var cid int
			var name, colType string
			var notNull, pk int
			var dfltValue sql.NullString
			if err := pragmaRows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
				continue
			}
			cols = append(cols, ColumnInfo{Name: name, Type: colType})
		}
		pragmaRows.Close()

		schema.Tables = append(schema.Tables, TableInfo{Name: tbl, Columns: cols})
	}

	return schema, nil
}

func (c *sqlConnector) queryNames(ctx context.Context, query string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *sqlConnector) Close() error {
	c.mu.Lock()
	c.closeCursorLocked()
	c.mu.Unlock()
	return c.db.Close()
}

func (c *sqlConnector) closeCursorLocked() {
	if c.activeRows != nil {
		c.activeRows.Close()
		c.activeRows = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
