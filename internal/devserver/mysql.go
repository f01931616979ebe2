// internal/devserver/mysql.go
package devserver

import (
	"context"
	"database/sql"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/nhath/ezadmin/internal/api"
	"github.com/nhath/ezadmin/internal/resultset"
)

// MySQLEngine serves a MySQL server
type MySQLEngine struct {
	db     *sql.DB
	config *mysql.Config
}

// OpenMySQL connects with a go-sql-driver DSN (user:pass@tcp(host:port)/db)
func OpenMySQL(dsn string) (*MySQLEngine, error) {
	cfg, err := mysql.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
	if err != nil {
		return nil, WrapConnectionError(err)
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, WrapConnectionError(err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, WrapConnectionError(err)
	}

	return &MySQLEngine{db: db, config: cfg}, nil
}

// Kind returns MySQL
func (e *MySQLEngine) Kind() Kind {
	return MySQL
}

// Query runs a statement
func (e *MySQLEngine) Query(ctx context.Context, query string) (resultset.ResultSet, error) {
	return execute(ctx, e.db, query)
}

// Databases lists the user schemas with their data and index size
func (e *MySQLEngine) Databases(ctx context.Context) ([]api.DatabaseRecord, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT s.schema_name,
		       COALESCE(SUM(t.data_length + t.index_length), 0),
		       MIN(t.create_time)
		FROM information_schema.schemata s
		LEFT JOIN information_schema.tables t ON t.table_schema = s.schema_name
		WHERE s.schema_name NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
		GROUP BY s.schema_name
		ORDER BY s.schema_name`)
	if err != nil {
		return nil, WrapQueryError(err)
	}
	defer rows.Close()

	records := []api.DatabaseRecord{}
	for rows.Next() {
		var name string
		var size int64
		var created sql.NullTime
		if err := rows.Scan(&name, &size, &created); err != nil {
			return nil, WrapQueryError(err)
		}
		records = append(records, api.DatabaseRecord{
			Name:      name,
			SizeMB:    bytesToMB(size),
			CreatedOn: formatDate(created.Time),
		})
	}
	return records, rows.Err()
}

// CheckDB runs CHECK TABLE on every base table of the connected schema
func (e *MySQLEngine) CheckDB(ctx context.Context) (resultset.ResultSet, error) {
	rows, err := e.db.QueryContext(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name")
	if err != nil {
		return nil, WrapQueryError(err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, WrapQueryError(err)
		}
		tables = append(tables, name)
	}
	rows.Close()

	rs := resultset.ResultSet{}
	for _, table := range tables {
		check, err := e.db.QueryContext(ctx, "CHECK TABLE `"+strings.ReplaceAll(table, "`", "``")+"`")
		if err != nil {
			return nil, WrapQueryError(err)
		}
		for check.Next() {
			var name, op, msgType, msgText string
			if err := check.Scan(&name, &op, &msgType, &msgText); err != nil {
				check.Close()
				return nil, WrapQueryError(err)
			}
			rs = append(rs, checkRow(e.config.DBName, op, name, msgText))
		}
		check.Close()
	}
	return rs, nil
}

// Backup dumps a schema with mysqldump
func (e *MySQLEngine) Backup(ctx context.Context, database, dest string) error {
	if database == "" {
		database = e.config.DBName
	}
	host, port, err := net.SplitHostPort(e.config.Addr)
	if err != nil {
		host, port = e.config.Addr, "3306"
	}
	return runDump(ctx,
		[]string{"MYSQL_PWD=" + e.config.Passwd},
		"mysqldump",
		"--host", host,
		"--port", port,
		"--user", e.config.User,
		"--result-file", dest,
		database,
	)
}

// Close closes the connection pool
func (e *MySQLEngine) Close() error {
	return e.db.Close()
}
