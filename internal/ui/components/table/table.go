package table

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	bbtable "github.com/evertras/bubble-table/table"

	"github.com/nhath/ezadmin/internal/api"
	"github.com/nhath/ezadmin/internal/config"
	"github.com/nhath/ezadmin/internal/resultset"
)

const maxColumnWidth = 40

// palette holds the colors of the active theme
var palette = struct {
	foreground, faint, header, highlight, number, boolean, text, null string
}{
	foreground: "#D8DEE9",
	faint:      "#4C566A",
	header:     "#8FBCBB",
	highlight:  "#A3BE8C",
	number:     "#B48EAD",
	boolean:    "#D08770",
	text:       "#EBCB8B",
	null:       "#B48EAD",
}

// Init applies a theme to every table built afterwards
func Init(theme config.Theme) {
	palette.foreground = theme.TextPrimary
	palette.faint = theme.TextFaint
	palette.header = theme.Highlight
	palette.highlight = theme.Success
	palette.number = theme.TextSecondary
	palette.boolean = theme.Warning
	palette.text = theme.TextPrimary
	palette.null = theme.TextFaint
}

// New creates a bubble-table with the active theme
func New(cols []bbtable.Column) bbtable.Model {
	return bbtable.New(cols).
		WithBaseStyle(lipgloss.NewStyle().
			Foreground(lipgloss.Color(palette.foreground))).
		HeaderStyle(lipgloss.NewStyle().
			Foreground(lipgloss.Color(palette.header)).
			Bold(true)).
		HighlightStyle(lipgloss.NewStyle().
			Foreground(lipgloss.Color(palette.highlight)).
			Bold(true)).
		Focused(true).
		BorderRounded()
}

// FromGrid builds a table from a result grid, keeping the column order
func FromGrid(g resultset.Grid, pageSize int) bbtable.Model {
	if g.Empty() {
		return New(nil).WithStaticFooter("No results")
	}

	cells := g.Strings()
	widths := calculateColumnWidths(g.Headers, cells)

	cols := make([]bbtable.Column, 0, len(g.Headers))
	for i, h := range g.Headers {
		cols = append(cols, bbtable.NewColumn(columnKey(i), h, widths[i]))
	}

	rows := make([]bbtable.Row, 0, len(cells))
	for r, row := range cells {
		data := bbtable.RowData{}
		for i, val := range row {
			data[columnKey(i)] = bbtable.NewStyledCell(val, valueStyle(g.Rows[r][i]))
		}
		rows = append(rows, bbtable.NewRow(data))
	}

	t := New(cols).WithRows(rows)
	if pageSize > 0 {
		t = t.WithPageSize(pageSize)
	}
	return t.WithStaticFooter(fmt.Sprintf("%s rows", humanize.Comma(int64(len(rows)))))
}

// DatabaseKey is the row data key holding the database name
const DatabaseKey = "name"

// FromDatabases builds the database list table
func FromDatabases(records []api.DatabaseRecord) bbtable.Model {
	headers := []string{"Name", "Size", "Created", "Last backup"}
	keys := []string{DatabaseKey, "size", "created", "last_backup"}

	var cells [][]string
	for _, r := range records {
		cells = append(cells, []string{r.Name, humanize.IBytes(r.SizeBytes()), humanDate(r.CreatedOn), humanDate(r.LastBackup)})
	}
	widths := calculateColumnWidths(headers, cells)

	cols := make([]bbtable.Column, len(headers))
	for i, h := range headers {
		cols[i] = bbtable.NewColumn(keys[i], h, widths[i])
	}

	rows := make([]bbtable.Row, 0, len(cells))
	for _, c := range cells {
		data := bbtable.RowData{}
		for i, v := range c {
			data[keys[i]] = v
		}
		if c[3] == "never" {
			data[keys[3]] = bbtable.NewStyledCell(c[3], lipgloss.NewStyle().Foreground(lipgloss.Color(palette.boolean)))
		}
		rows = append(rows, bbtable.NewRow(data))
	}

	return New(cols).WithRows(rows).WithPageSize(10)
}

// humanDate renders a backend date relative to now
func humanDate(s string) string {
	if strings.TrimSpace(s) == "" {
		return "never"
	}
	t, ok := api.ParseDate(s)
	if !ok {
		return s
	}
	return humanize.Time(t)
}

func columnKey(i int) string {
	return fmt.Sprintf("c%d", i)
}

func calculateColumnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, val := range row {
			if i < len(widths) {
				if n := utf8.RuneCountInString(val); n > widths[i] {
					widths[i] = n
				}
			}
		}
	}
	for i := range widths {
		widths[i] += 2
		if widths[i] > maxColumnWidth {
			widths[i] = maxColumnWidth
		}
	}
	return widths
}

// valueStyle colors a cell by the type of its value
func valueStyle(v any) lipgloss.Style {
	switch v.(type) {
	case nil:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(palette.null)).Italic(true)
	case bool:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(palette.boolean))
	case json.Number, float64, int, int64:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(palette.number))
	case string:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(palette.text))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(palette.foreground))
	}
}
