package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const historyPanelRatio = 3

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.appState != StateReady {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderLogin())
	}

	main := m.renderMain()

	switch {
	case m.showHelpPopup:
		main = m.renderHelpPopup(main)
	case m.showDatabasesPopup:
		main = m.renderDatabasesPopup(main)
	case m.showBackupHistoryPopup:
		main = m.renderBackupHistoryPopup(main)
	}

	return main
}

func (m Model) renderLogin() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("ezadmin"))
	b.WriteString("\n")
	b.WriteString(MetaStyle.Render(m.server.Display()))
	b.WriteString("\n\n")
	b.WriteString(m.usernameInput.View())
	b.WriteString("\n")
	b.WriteString(m.passwordInput.View())
	b.WriteString("\n\n")

	switch {
	case m.appState == StateLoggingIn:
		b.WriteString(m.spinner.View() + " Logging in...")
	case m.errorMsg != "":
		b.WriteString(ErrorStyle.Render(m.errorMsg))
	case m.statusMsg != "":
		b.WriteString(SuccessStyle.Render(m.statusMsg))
	default:
		b.WriteString(MetaStyle.Render("enter to log in • tab to switch field"))
	}

	return LoginBoxStyle.Render(b.String())
}

// layout returns the widths of the history and results panels and the
// height shared by both
func (m Model) layout() (historyWidth, resultsWidth, panelHeight int) {
	historyWidth = m.width / historyPanelRatio
	resultsWidth = m.width - historyWidth

	// editor + its border, status bar, help line, panel borders
	panelHeight = m.height - m.editor.Height() - 1 - 1 - 1 - 2
	if panelHeight < 3 {
		panelHeight = 3
	}
	return historyWidth, resultsWidth, panelHeight
}

// resultsPageSize fits the results table into its panel
func (m Model) resultsPageSize() int {
	_, _, h := m.layout()
	// header, borders and footer take six lines
	if size := h - 6; size > 1 {
		return size
	}
	return 1
}

// resize applies the terminal size to every component
func (m Model) resize() Model {
	m.editor.SetWidth(m.width - 2)
	historyWidth, _, panelHeight := m.layout()
	m.historyList = m.historyList.SetSize(historyWidth-4, panelHeight)
	return m.rebuildTables().applyFocus()
}

func (m Model) renderMain() string {
	historyWidth, resultsWidth, panelHeight := m.layout()

	editor := InputStyle.Width(m.width).Render(m.editor.View())

	historyStyle, resultsStyle := PanelStyle, PanelStyle
	switch m.focus {
	case FocusHistory:
		historyStyle = FocusedPanel
	case FocusResults:
		resultsStyle = FocusedPanel
	}

	historyPanel := historyStyle.
		Width(historyWidth - 2).
		Height(panelHeight).
		Render(LabelStyle.Render("History") + "\n" + m.historyList.View())

	resultsPanel := resultsStyle.
		Width(resultsWidth - 2).
		Height(panelHeight).
		Render(m.resultsTable.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, historyPanel, resultsPanel)

	return lipgloss.JoinVertical(lipgloss.Left,
		editor,
		panels,
		m.renderStatusBar(),
		m.renderHelp(),
	)
}

func (m Model) renderStatusBar() string {
	var parts []string

	if m.loading {
		parts = append(parts, LoadingModeStyle.Render(m.spinner.View()+" RUNNING"))
	} else {
		parts = append(parts, ModeStyle.Render(m.focus.String()))
	}

	parts = append(parts, ConnectionStyle.Render(fmt.Sprintf("%s@%s", m.snap.Username, limitString(m.server.Display(), 40))))

	if !m.snap.Grid.Empty() {
		info := fmt.Sprintf("%s rows", humanize.Comma(int64(len(m.snap.Grid.Rows))))
		if d := formatDuration(m.snap.QueryDuration); d != "" {
			info += " in " + d
		}
		parts = append(parts, MetaStyle.Padding(0, 1).Render(info))
	}

	if o := m.snap.Outcome; o != nil {
		style := SuccessStyle
		icon := "✓"
		if !o.OK {
			style = ErrorStyle
			icon = "✗"
		}
		parts = append(parts, style.Padding(0, 1).Render(fmt.Sprintf("%s %s %s", icon, o.Label(), humanize.Time(o.At))))
	}

	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Background(SuccessColor()).Foreground(BgPrimary()).Padding(0, 1)
		parts = append(parts, statusStyle.Render(limitString(m.statusMsg, 60)))
	}

	if m.errorMsg != "" {
		errorStyle := lipgloss.NewStyle().Background(ErrorColor()).Foreground(TextPrimary()).Padding(0, 1)
		parts = append(parts, errorStyle.Render("⚠ "+limitString(m.errorMsg, 60)))
	}

	content := lipgloss.JoinHorizontal(lipgloss.Left, parts...)
	return StatusBarStyle.Width(m.width).Render(content)
}

func (m Model) renderHelp() string {
	keys := m.config.Keys
	return MetaStyle.Render(joinHints(
		keyHint(keys.Execute, "run"),
		keyHint(keys.SwitchFocus, "panel"),
		keyHint(keys.Backup, "backup"),
		keyHint(keys.CheckDB, "checkdb"),
		keyHint(keys.Databases, "databases"),
		keyHint(keys.Export, "export"),
		keyHint(keys.Help, "help"),
	))
}
