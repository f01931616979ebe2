package highlight

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

func TestSQLKeepsText(t *testing.T) {
	for _, q := range []string{
		"SELECT 1 AS x",
		"select * from users where name = 'ann';",
		"UPDATE t SET a = 1\nWHERE id IN (1, 2)",
	} {
		for _, style := range []string{DarkStyle, LightStyle} {
			out := SQL(q, style)
			assert.Equal(t, q, ansi.ReplaceAllString(out, ""), q)
		}
	}
}

func TestSQLColorsKeywords(t *testing.T) {
	out := SQL("SELECT 1", DarkStyle)
	assert.NotEqual(t, "SELECT 1", out)
	assert.Contains(t, out, "\x1b[")
}

func TestSQLEmpty(t *testing.T) {
	assert.Equal(t, "", SQL("", DarkStyle))
}

func TestStyleFor(t *testing.T) {
	assert.Equal(t, DarkStyle, StyleFor(true))
	assert.Equal(t, LightStyle, StyleFor(false))
}
