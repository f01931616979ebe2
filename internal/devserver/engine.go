// internal/devserver/engine.go
package devserver

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/nhath/ezadmin/internal/api"
	"github.com/nhath/ezadmin/internal/resultset"
)

// Kind is the database engine behind the server
type Kind string

const (
	SQLite   Kind = "sqlite"
	Postgres Kind = "postgres"
	MySQL    Kind = "mysql"
)

// Engine is the database the server administers
type Engine interface {
	Kind() Kind
	Query(ctx context.Context, query string) (resultset.ResultSet, error)
	CheckDB(ctx context.Context) (resultset.ResultSet, error)
	Databases(ctx context.Context) ([]api.DatabaseRecord, error)
	// Backup writes a copy of database to dest; an empty database means
	// the default one
	Backup(ctx context.Context, database, dest string) error
	Close() error
}

// Open connects an engine of the given kind
func Open(kind Kind, dsn string) (Engine, error) {
	var (
		engine Engine
		err    error
	)
	switch kind {
	case SQLite:
		engine, err = OpenSQLite(dsn)
	case Postgres:
		engine, err = OpenPostgres(dsn)
	case MySQL:
		engine, err = OpenMySQL(dsn)
	default:
		return nil, fmt.Errorf("unknown engine: %s", kind)
	}
	if err != nil {
		return nil, err
	}
	return engine, nil
}

// BackupExt is the file extension of backups written by kind
func BackupExt(kind Kind) string {
	if kind == SQLite {
		return ".db"
	}
	return ".sql"
}

// isSelect reports whether query returns rows
func isSelect(query string) bool {
	trimmed := strings.TrimSpace(strings.ToUpper(query))
	for _, prefix := range []string{"SELECT", "WITH", "EXPLAIN", "DESCRIBE", "SHOW", "PRAGMA", "VALUES"} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// execute runs query on db, returning its rows or the affected row count
func execute(ctx context.Context, db *sql.DB, query string) (resultset.ResultSet, error) {
	if strings.TrimSpace(query) == "" {
		return nil, WrapQueryError(fmt.Errorf("query is empty"))
	}
	if isSelect(query) {
		return executeSelect(ctx, db, query)
	}
	return executeDML(ctx, db, query)
}

func executeSelect(ctx context.Context, db *sql.DB, query string, args ...any) (resultset.ResultSet, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, WrapQueryError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, WrapQueryError(err)
	}

	rs := resultset.ResultSet{}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, WrapQueryError(err)
		}

		for i, v := range values {
			values[i] = jsonValue(v)
		}
		rs = append(rs, resultset.RowOf(columns, values...))
	}

	if err := rows.Err(); err != nil {
		return nil, WrapQueryError(err)
	}
	return rs, nil
}

func executeDML(ctx context.Context, db *sql.DB, query string) (resultset.ResultSet, error) {
	result, err := db.ExecContext(ctx, query)
	if err != nil {
		return nil, WrapQueryError(err)
	}
	affected, _ := result.RowsAffected()
	return resultset.ResultSet{
		resultset.RowOf([]string{"rows_affected"}, affected),
	}, nil
}

// jsonValue converts a scanned column value to its JSON representation
func jsonValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}

// formatDate renders t for the database list; the zero time is empty
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func bytesToMB(n int64) float64 {
	return float64(n) / (1024 * 1024)
}

// checkRow is one line of integrity check output
func checkRow(database, check, object, result string) resultset.Row {
	return resultset.RowOf([]string{"database", "check", "object", "result"}, database, check, object, result)
}

// quoteIdent quotes an ANSI SQL identifier, as understood by SQLite and
// PostgreSQL
func quoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

// runDump runs an external dump tool, reporting its output on failure
func runDump(ctx context.Context, env []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return errors.Wrapf(err, "%s failed", name)
		}
		return errors.Errorf("%s failed: %s", name, msg)
	}
	return nil
}
