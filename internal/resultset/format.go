package resultset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// DefaultDelimiter separates values in delimited text output
const DefaultDelimiter = ","

// ExportFilename is the name of the exported results file
const ExportFilename = "query_results.csv"

// Grid is a display-ready view of a result set
type Grid struct {
	Headers []string
	Rows    [][]any
}

// Empty reports whether the grid has no columns
func (g Grid) Empty() bool {
	return len(g.Headers) == 0
}

// ToGrid turns a result set into headers and rows of values in header order.
// Headers come from the first row; an empty result set yields an empty grid.
func ToGrid(rs ResultSet) Grid {
	g := Grid{Headers: rs.Columns(), Rows: [][]any{}}
	for _, row := range rs {
		values := make([]any, len(g.Headers))
		for i, h := range g.Headers {
			values[i], _ = row.Get(h)
		}
		g.Rows = append(g.Rows, values)
	}
	return g
}

// Strings returns the grid rows with every value formatted for display
func (g Grid) Strings() [][]string {
	out := make([][]string, len(g.Rows))
	for i, row := range g.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = FormatValue(v)
		}
		out[i] = cells
	}
	return out
}

// ToDelimitedText renders a header line followed by one line per row.
// Values are joined as-is: embedded delimiters and newlines are not escaped,
// use WriteCSV when quoting is needed.
func ToDelimitedText(rs ResultSet, delimiter string) string {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	g := ToGrid(rs)

	var b strings.Builder
	b.WriteString(strings.Join(g.Headers, delimiter))
	for _, row := range g.Strings() {
		b.WriteByte('\n')
		b.WriteString(strings.Join(row, delimiter))
	}
	return b.String()
}

// WriteCSV writes the result set as RFC 4180 CSV with the given separator
func WriteCSV(w io.Writer, rs ResultSet, comma rune) error {
	g := ToGrid(rs)

	cw := csv.NewWriter(w)
	if comma != 0 {
		cw.Comma = comma
	}
	if err := cw.Write(g.Headers); err != nil {
		return err
	}
	for _, row := range g.Strings() {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ToClipboardText returns the text copied for a query buffer
func ToClipboardText(query string) string {
	return query
}

// RenderTable writes the result set as a plain text table
func RenderTable(w io.Writer, rs ResultSet) {
	g := ToGrid(rs)
	if g.Empty() {
		_, _ = io.WriteString(w, "No results.\n")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader(g.Headers)
	table.AppendBulk(g.Strings())
	table.Render()
}

// FormatValue converts a cell value to its display text
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case json.RawMessage:
		return string(val)
	case []byte:
		return string(val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}
