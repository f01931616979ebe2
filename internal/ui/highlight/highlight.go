// Package highlight renders SQL with terminal colors.
package highlight

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const (
	DarkStyle  = "nord"
	LightStyle = "github"
)

var (
	lexer     = chroma.Coalesce(lexers.Get("sql"))
	formatter = formatters.Get("terminal256")
)

// StyleFor returns the chroma style matching the console theme
func StyleFor(dark bool) string {
	if dark {
		return DarkStyle
	}
	return LightStyle
}

// SQL returns sql with ANSI colors of the named chroma style. The input is
// returned unchanged when it cannot be tokenised.
func SQL(sql, style string) string {
	if sql == "" || lexer == nil || formatter == nil {
		return sql
	}

	it, err := lexer.Tokenise(nil, sql)
	if err != nil {
		return sql
	}

	tokens := it.Tokens()
	if !strings.HasSuffix(sql, "\n") {
		tokens = trimTrailingNewline(tokens)
	}

	var b strings.Builder
	if err := formatter.Format(&b, styles.Get(style), chroma.Literator(tokens...)); err != nil {
		return sql
	}
	return b.String()
}

// trimTrailingNewline drops the newline the lexer appends to its input
func trimTrailingNewline(tokens []chroma.Token) []chroma.Token {
	for len(tokens) > 0 {
		last := &tokens[len(tokens)-1]
		if !strings.HasSuffix(last.Value, "\n") {
			break
		}
		last.Value = strings.TrimSuffix(last.Value, "\n")
		if last.Value != "" {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}
