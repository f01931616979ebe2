// internal/devserver/postgres.go
package devserver

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/nhath/ezadmin/internal/api"
	"github.com/nhath/ezadmin/internal/resultset"
)

// PostgresEngine serves a PostgreSQL cluster
type PostgresEngine struct {
	db     *sql.DB
	config *pgx.ConnConfig
}

// OpenPostgres connects with a postgres:// URL or keyword/value DSN
func OpenPostgres(dsn string) (*PostgresEngine, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, WrapConnectionError(err)
	}

	dbStr := stdlib.RegisterConnConfig(connConfig)
	db, err := sql.Open("pgx", dbStr)
	if err != nil {
		return nil, WrapConnectionError(err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, WrapConnectionError(err)
	}

	return &PostgresEngine{db: db, config: connConfig}, nil
}

// Kind returns Postgres
func (e *PostgresEngine) Kind() Kind {
	return Postgres
}

// Query runs a statement
func (e *PostgresEngine) Query(ctx context.Context, query string) (resultset.ResultSet, error) {
	return execute(ctx, e.db, query)
}

// Databases lists the non-template databases of the cluster
func (e *PostgresEngine) Databases(ctx context.Context) ([]api.DatabaseRecord, error) {
	rows, err := e.db.QueryContext(ctx,
		"SELECT datname, pg_database_size(datname) FROM pg_database WHERE NOT datistemplate ORDER BY datname")
	if err != nil {
		return nil, WrapQueryError(err)
	}
	defer rows.Close()

	records := []api.DatabaseRecord{}
	for rows.Next() {
		var name string
		var size int64
		if err := rows.Scan(&name, &size); err != nil {
			return nil, WrapQueryError(err)
		}
		records = append(records, api.DatabaseRecord{Name: name, SizeMB: bytesToMB(size)})
	}
	return records, rows.Err()
}

// CheckDB reports checksum failures per database and reads every user
// table of the connected database
func (e *PostgresEngine) CheckDB(ctx context.Context) (resultset.ResultSet, error) {
	rs := resultset.ResultSet{}

	rows, err := e.db.QueryContext(ctx,
		"SELECT datname, COALESCE(checksum_failures, 0) FROM pg_stat_database WHERE datname IS NOT NULL ORDER BY datname")
	if err != nil {
		return nil, WrapQueryError(err)
	}
	for rows.Next() {
		var name string
		var failures int64
		if err := rows.Scan(&name, &failures); err != nil {
			rows.Close()
			return nil, WrapQueryError(err)
		}
		result := "ok"
		if failures > 0 {
			result = fmt.Sprintf("%d checksum failures", failures)
		}
		rs = append(rs, checkRow(name, "checksums", "", result))
	}
	rows.Close()

	tables, err := e.tables(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		var count int64
		err := e.db.QueryRowContext(ctx, "SELECT count(*) FROM "+quoteIdent(t[0])+"."+quoteIdent(t[1])).Scan(&count)
		result := fmt.Sprintf("ok (%d rows)", count)
		if err != nil {
			result = err.Error()
		}
		rs = append(rs, checkRow(e.config.Database, "scan", t[0]+"."+t[1], result))
	}
	return rs, nil
}

func (e *PostgresEngine) tables(ctx context.Context) ([][2]string, error) {
	rows, err := e.db.QueryContext(ctx,
		"SELECT schemaname, tablename FROM pg_tables WHERE schemaname NOT IN ('pg_catalog', 'information_schema') ORDER BY 1, 2")
	if err != nil {
		return nil, WrapQueryError(err)
	}
	defer rows.Close()

	var tables [][2]string
	for rows.Next() {
		var t [2]string
		if err := rows.Scan(&t[0], &t[1]); err != nil {
			return nil, WrapQueryError(err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// Backup dumps a database with pg_dump
func (e *PostgresEngine) Backup(ctx context.Context, database, dest string) error {
	if database == "" {
		database = e.config.Database
	}
	return runDump(ctx,
		[]string{"PGPASSWORD=" + e.config.Password},
		"pg_dump",
		"--host", e.config.Host,
		"--port", strconv.Itoa(int(e.config.Port)),
		"--username", e.config.User,
		"--file", dest,
		database,
	)
}

// Close closes the connection pool
func (e *PostgresEngine) Close() error {
	return e.db.Close()
}
