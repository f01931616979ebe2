// internal/devserver/sqlite.go
package devserver

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nhath/ezadmin/internal/api"
	"github.com/nhath/ezadmin/internal/resultset"
)

// MemoryDSN opens a private in-memory database
const MemoryDSN = ":memory:"

// SQLiteEngine serves a SQLite database file, or an in-memory database
type SQLiteEngine struct {
	db     *sql.DB
	opened time.Time
}

// OpenSQLite opens the database at dsn; an empty dsn opens an in-memory one
func OpenSQLite(dsn string) (*SQLiteEngine, error) {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	if dsn == "" {
		dsn = MemoryDSN
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, WrapConnectionError(err)
	}
	// an in-memory database lives in a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, WrapConnectionError(fmt.Errorf("pragma foreign_keys: %w", err))
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 10000"); err != nil {
		db.Close()
		return nil, WrapConnectionError(fmt.Errorf("pragma busy_timeout: %w", err))
	}

	return &SQLiteEngine{db: db, opened: time.Now()}, nil
}

// Kind returns SQLite
func (e *SQLiteEngine) Kind() Kind {
	return SQLite
}

// Query runs a statement
func (e *SQLiteEngine) Query(ctx context.Context, query string) (resultset.ResultSet, error) {
	return execute(ctx, e.db, query)
}

type sqliteSchema struct {
	name string
	file string
}

func (e *SQLiteEngine) schemas(ctx context.Context) ([]sqliteSchema, error) {
	rows, err := e.db.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, WrapQueryError(err)
	}
	defer rows.Close()

	var schemas []sqliteSchema
	for rows.Next() {
		var seq int
		var s sqliteSchema
		if err := rows.Scan(&seq, &s.name, &s.file); err != nil {
			return nil, WrapQueryError(err)
		}
		// the temp schema is per connection
		if s.name == "temp" {
			continue
		}
		schemas = append(schemas, s)
	}
	return schemas, rows.Err()
}

// Databases lists the attached schemas with their size
func (e *SQLiteEngine) Databases(ctx context.Context) ([]api.DatabaseRecord, error) {
	schemas, err := e.schemas(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]api.DatabaseRecord, 0, len(schemas))
	for _, s := range schemas {
		var pages, pageSize int64
		ident := quoteIdent(s.name)
		if err := e.db.QueryRowContext(ctx, "PRAGMA "+ident+".page_count").Scan(&pages); err != nil {
			return nil, WrapQueryError(err)
		}
		if err := e.db.QueryRowContext(ctx, "PRAGMA "+ident+".page_size").Scan(&pageSize); err != nil {
			return nil, WrapQueryError(err)
		}

		created := e.opened
		if s.file != "" {
			if fi, err := os.Stat(s.file); err == nil {
				created = fi.ModTime()
			}
		}

		records = append(records, api.DatabaseRecord{
			Name:      s.name,
			SizeMB:    bytesToMB(pages * pageSize),
			CreatedOn: formatDate(created),
		})
	}
	return records, nil
}

// CheckDB runs integrity_check and foreign_key_check on every schema
func (e *SQLiteEngine) CheckDB(ctx context.Context) (resultset.ResultSet, error) {
	schemas, err := e.schemas(ctx)
	if err != nil {
		return nil, err
	}

	rs := resultset.ResultSet{}
	for _, s := range schemas {
		ident := quoteIdent(s.name)

		rows, err := e.db.QueryContext(ctx, "PRAGMA "+ident+".integrity_check")
		if err != nil {
			return nil, WrapQueryError(err)
		}
		for rows.Next() {
			var result string
			if err := rows.Scan(&result); err != nil {
				rows.Close()
				return nil, WrapQueryError(err)
			}
			rs = append(rs, checkRow(s.name, "integrity_check", "", result))
		}
		rows.Close()

		violations := 0
		fk, err := e.db.QueryContext(ctx, "PRAGMA "+ident+".foreign_key_check")
		if err != nil {
			return nil, WrapQueryError(err)
		}
		for fk.Next() {
			violations++
		}
		fk.Close()

		result := "ok"
		if violations > 0 {
			result = fmt.Sprintf("%d violations", violations)
		}
		rs = append(rs, checkRow(s.name, "foreign_key_check", "", result))
	}
	return rs, nil
}

// Backup copies a schema to dest with VACUUM INTO
func (e *SQLiteEngine) Backup(ctx context.Context, database, dest string) error {
	if database == "" {
		database = "main"
	}
	if _, err := e.db.ExecContext(ctx, "VACUUM "+quoteIdent(database)+" INTO ?", dest); err != nil {
		return WrapQueryError(err)
	}
	return nil
}

// Close closes the database
func (e *SQLiteEngine) Close() error {
	return e.db.Close()
}
