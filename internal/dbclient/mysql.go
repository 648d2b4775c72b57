package dbclient

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// buildMySQLDSN formats user:password@tcp(host:port)/dbname.
func buildMySQLDSN(cfg ConnConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.Username, cfg.Password, cfg.Host, port, cfg.Database,
	)
	if cfg.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}
