// Package historylist renders the recent query list with a movable
// selection and per-entry expansion.
package historylist

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Item is a list entry
type Item interface {
	Query() string
	QueryPreview(maxLen int) string
}

// Styles for the list
type Styles struct {
	Item     lipgloss.Style
	Selected lipgloss.Style
	Prompt   lipgloss.Style
	Index    lipgloss.Style
	Empty    lipgloss.Style
}

// DefaultStyles returns default styling
func DefaultStyles() Styles {
	return Styles{
		Item:     lipgloss.NewStyle().PaddingLeft(1),
		Selected: lipgloss.NewStyle().PaddingLeft(1).Background(lipgloss.Color("#434C5E")),
		Prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color("#A3BE8C")).Bold(true),
		Index:    lipgloss.NewStyle().Foreground(lipgloss.Color("#4C566A")),
		Empty:    lipgloss.NewStyle().Foreground(lipgloss.Color("#4C566A")).Italic(true),
	}
}

// Model represents the list state
type Model struct {
	items    []Item
	selected int
	expanded map[int]bool
	focused  bool
	width    int
	height   int
	viewport viewport.Model
	styles   Styles

	highlightFunc func(string) string
}

// New creates a new list model
func New() Model {
	return Model{
		items:    []Item{},
		expanded: make(map[int]bool),
		viewport: viewport.New(40, 5),
		styles:   DefaultStyles(),
	}
}

// SetItems replaces the items and selects the newest one
func (m Model) SetItems(items []Item) Model {
	m.items = items
	m.expanded = make(map[int]bool)
	m.selected = len(items) - 1
	if m.selected < 0 {
		m.selected = 0
	}
	m.updateViewport()
	m.viewport.GotoBottom()
	return m
}

// SetSize sets the component dimensions
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.updateViewport()
	return m
}

// SetStyles sets custom styles
func (m Model) SetStyles(s Styles) Model {
	m.styles = s
	m.updateViewport()
	return m
}

// SetHighlightFunc sets the syntax highlighting applied to queries
func (m Model) SetHighlightFunc(fn func(string) string) Model {
	m.highlightFunc = fn
	m.updateViewport()
	return m
}

// Focus marks the list as receiving keys, which shows the selection
func (m Model) Focus(focused bool) Model {
	m.focused = focused
	m.updateViewport()
	return m
}

// Len returns the number of items
func (m Model) Len() int {
	return len(m.items)
}

// Selected returns the currently selected index
func (m Model) Selected() int {
	return m.selected
}

// ToggleExpanded shows the full query of the selected item, or its preview again
func (m Model) ToggleExpanded() Model {
	if len(m.items) == 0 {
		return m
	}
	m.expanded[m.selected] = !m.expanded[m.selected]
	m.updateViewport()
	return m.ensureVisible()
}

// MoveUp moves selection up
func (m Model) MoveUp() Model {
	if m.selected > 0 {
		m.selected--
		m.updateViewport()
		m = m.ensureVisible()
	}
	return m
}

// MoveDown moves selection down
func (m Model) MoveDown() Model {
	if m.selected < len(m.items)-1 {
		m.selected++
		m.updateViewport()
		m = m.ensureVisible()
	}
	return m
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the list
func (m Model) View() string {
	if len(m.items) == 0 {
		return lipgloss.NewStyle().Width(m.width).Height(m.height).Render(m.styles.Empty.Render("No queries yet"))
	}
	return m.viewport.View()
}

func (m *Model) updateViewport() {
	var sections []string
	for i := range m.items {
		sections = append(sections, m.renderItem(i))
	}
	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) renderItem(i int) string {
	if i < 0 || i >= len(m.items) {
		return ""
	}
	item := m.items[i]

	style := m.styles.Item
	if m.focused && i == m.selected {
		style = m.styles.Selected
	}
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}

	text := item.QueryPreview(m.width - 6)
	if m.expanded[i] {
		text = item.Query()
	} else {
		text = strings.ReplaceAll(text, "\n", " ")
	}
	if m.highlightFunc != nil {
		text = m.highlightFunc(text)
	}

	var content strings.Builder
	content.WriteString(m.styles.Index.Render(strconv.Itoa(i + 1)))
	content.WriteString(m.styles.Prompt.Render(" > "))
	content.WriteString(text)

	return style.Render(content.String())
}

// ensureVisible keeps the selected item in view
func (m Model) ensureVisible() Model {
	if len(m.items) == 0 {
		return m
	}

	top := 0
	for i := 0; i < m.selected; i++ {
		top += lipgloss.Height(m.renderItem(i))
	}
	bottom := top + lipgloss.Height(m.renderItem(m.selected))

	if top < m.viewport.YOffset {
		m.viewport.SetYOffset(top)
	} else if bottom > m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(bottom - m.viewport.Height)
	}
	return m
}
