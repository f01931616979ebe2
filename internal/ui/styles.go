package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhath/ezadmin/internal/config"
)

var (
	textPrimary   lipgloss.Color
	textSecondary lipgloss.Color
	textFaint     lipgloss.Color

	accentColor    lipgloss.Color
	successColor   lipgloss.Color
	errorColor     lipgloss.Color
	highlightColor lipgloss.Color
	warningColor   lipgloss.Color

	bgPrimary   lipgloss.Color
	bgSecondary lipgloss.Color
	cardBg      lipgloss.Color

	// Styles
	StatusBarStyle   lipgloss.Style
	ModeStyle        lipgloss.Style
	LoadingModeStyle lipgloss.Style
	ConnectionStyle  lipgloss.Style
	TitleStyle       lipgloss.Style
	LabelStyle       lipgloss.Style
	MetaStyle        lipgloss.Style
	PanelStyle       lipgloss.Style
	FocusedPanel     lipgloss.Style
	SelectedStyle    lipgloss.Style
	InputStyle       lipgloss.Style
	SuccessStyle     lipgloss.Style
	ErrorStyle       lipgloss.Style
	PopupStyle       lipgloss.Style
	LoginBoxStyle    lipgloss.Style
)

func TextPrimary() lipgloss.Color    { return textPrimary }
func TextSecondary() lipgloss.Color  { return textSecondary }
func TextFaint() lipgloss.Color      { return textFaint }
func AccentColor() lipgloss.Color    { return accentColor }
func SuccessColor() lipgloss.Color   { return successColor }
func ErrorColor() lipgloss.Color     { return errorColor }
func HighlightColor() lipgloss.Color { return highlightColor }
func WarningColor() lipgloss.Color   { return warningColor }
func BgPrimary() lipgloss.Color      { return bgPrimary }
func CardBg() lipgloss.Color         { return cardBg }

// InitStyles initializes the global styles from a theme palette
func InitStyles(theme config.Theme) {
	textPrimary = lipgloss.Color(theme.TextPrimary)
	textSecondary = lipgloss.Color(theme.TextSecondary)
	textFaint = lipgloss.Color(theme.TextFaint)

	accentColor = lipgloss.Color(theme.Accent)
	successColor = lipgloss.Color(theme.Success)
	errorColor = lipgloss.Color(theme.Error)
	highlightColor = lipgloss.Color(theme.Highlight)
	warningColor = lipgloss.Color(theme.Warning)

	bgPrimary = lipgloss.Color(theme.BgPrimary)
	bgSecondary = lipgloss.Color(theme.BgSecondary)
	cardBg = lipgloss.Color(theme.CardBg)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(textPrimary).
		Background(bgSecondary)

	ModeStyle = lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Background(successColor).
		Foreground(bgPrimary)

	LoadingModeStyle = lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Background(warningColor).
		Foreground(bgPrimary)

	ConnectionStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Background(cardBg).
		Foreground(textPrimary)

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor)

	LabelStyle = lipgloss.NewStyle().
		Foreground(textSecondary)

	MetaStyle = lipgloss.NewStyle().
		Foreground(textFaint).
		Italic(true)

	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(textFaint).
		Padding(0, 1)

	FocusedPanel = PanelStyle.
		BorderForeground(highlightColor)

	SelectedStyle = lipgloss.NewStyle().
		Foreground(bgPrimary).
		Background(highlightColor).
		Bold(true)

	InputStyle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(textFaint)

	SuccessStyle = lipgloss.NewStyle().
		Foreground(successColor)

	ErrorStyle = lipgloss.NewStyle().
		Foreground(errorColor).
		Bold(true)

	PopupStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(highlightColor).
		Background(bgPrimary).
		Padding(1, 2)

	LoginBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(1, 3)
}
