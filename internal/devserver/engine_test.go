package devserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsSelect(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT 1", true},
		{"  select * from t", true},
		{"WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"PRAGMA table_info(t)", true},
		{"SHOW TABLES", true},
		{"INSERT INTO t VALUES (1)", false},
		{"CREATE TABLE t (x int)", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isSelect(tt.query), tt.query)
	}
}

func TestJSONValue(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Equal(t, "abc", jsonValue([]byte("abc")))
	assert.Equal(t, "2024-01-02T03:04:05Z", jsonValue(ts))
	assert.Equal(t, int64(7), jsonValue(int64(7)))
	assert.Nil(t, jsonValue(nil))
}

func TestOpenUnknownEngine(t *testing.T) {
	_, err := Open("oracle", "")
	assert.EqualError(t, err, "unknown engine: oracle")
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"main"`, quoteIdent("main"))
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
}

func TestBackupExt(t *testing.T) {
	assert.Equal(t, ".db", BackupExt(SQLite))
	assert.Equal(t, ".sql", BackupExt(Postgres))
	assert.Equal(t, ".sql", BackupExt(MySQL))
}
