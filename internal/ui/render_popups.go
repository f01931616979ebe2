package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	overlay "github.com/rmhubbert/bubbletea-overlay"
)

func (m Model) popupTitle(title string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(AccentColor()).Render(title)
}

func (m Model) popupWidth(preferred int) int {
	if preferred > m.width-4 {
		return m.width - 4
	}
	return preferred
}

func (m Model) renderHelpPopup(main string) string {
	keys := m.config.Keys
	var content strings.Builder

	content.WriteString(m.popupTitle("Keyboard Shortcuts"))
	content.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().Foreground(HighlightColor()).Width(18)
	section := func(name string, items []struct{ key, desc string }) {
		content.WriteString(LabelStyle.Render(name))
		content.WriteString("\n")
		for _, it := range items {
			content.WriteString(keyStyle.Render(it.key) + it.desc + "\n")
		}
		content.WriteString("\n")
	}

	section("Query", []struct{ key, desc string }{
		{strings.Join(keys.Execute, "/"), "Run query"},
		{strings.Join(keys.SwitchFocus, "/"), "Switch panel"},
		{"enter", "Load selected history entry"},
		{strings.Join(keys.Export, "/"), "Export results"},
		{strings.Join(keys.Copy, "/"), "Copy query"},
	})

	section("Maintenance", []struct{ key, desc string }{
		{strings.Join(keys.Backup, "/"), "Back up all databases"},
		{strings.Join(keys.CheckDB, "/"), "Run integrity check"},
		{strings.Join(keys.Databases, "/"), "Databases (enter backs up)"},
		{strings.Join(keys.BackupHistory, "/"), "Backup history"},
	})

	section("Other", []struct{ key, desc string }{
		{strings.Join(keys.ToggleTheme, "/"), "Toggle theme"},
		{strings.Join(keys.Logout, "/"), "Log out"},
		{strings.Join(keys.Help, "/"), "Show this help"},
		{strings.Join(keys.Exit, "/"), "Quit"},
	})

	content.WriteString(lipgloss.NewStyle().Faint(true).Render("Press Esc or q to close"))

	popupBox := PopupStyle.
		Width(m.popupWidth(50)).
		MaxHeight(m.height - 4).
		Render(content.String())

	return overlay.Composite(popupBox, main, overlay.Center, overlay.Center, 0, 0)
}

func (m Model) renderDatabasesPopup(main string) string {
	var content strings.Builder
	content.WriteString(m.popupTitle("Databases"))
	content.WriteString("\n\n")
	content.WriteString(m.databasesTable.View())
	content.WriteString("\n")
	content.WriteString(lipgloss.NewStyle().Faint(true).Render("enter/b back up • r refresh • esc close"))

	popupBox := PopupStyle.
		Width(m.popupWidth(90)).
		MaxHeight(m.height - 2).
		Render(content.String())

	return overlay.Composite(popupBox, main, overlay.Center, overlay.Center, 0, 0)
}

func (m Model) renderBackupHistoryPopup(main string) string {
	var content strings.Builder
	content.WriteString(m.popupTitle("Backup History"))
	content.WriteString("\n\n")
	if m.snap.BackupHistory.Empty() {
		content.WriteString(MetaStyle.Render("No backups recorded"))
	} else {
		content.WriteString(m.backupHistoryTable.View())
	}
	content.WriteString("\n")
	content.WriteString(lipgloss.NewStyle().Faint(true).Render("r refresh • esc close"))

	popupBox := PopupStyle.
		Width(m.popupWidth(90)).
		MaxHeight(m.height - 2).
		Render(content.String())

	return overlay.Composite(popupBox, main, overlay.Center, overlay.Center, 0, 0)
}
