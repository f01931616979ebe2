// Package ui is the Bubble Tea front end of the admin console.
package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/nhath/ezadmin/internal/config"
	"github.com/nhath/ezadmin/internal/console"
	"github.com/nhath/ezadmin/internal/history"
	"github.com/nhath/ezadmin/internal/ui/components/historylist"
	eztable "github.com/nhath/ezadmin/internal/ui/components/table"
	"github.com/nhath/ezadmin/internal/ui/highlight"
)

// Model is the root Bubble Tea model
type Model struct {
	appState      AppState
	focus         Focus
	width, height int

	config     *config.Config
	server     *config.Server
	configPath string
	console    *console.Controller

	// Login form
	usernameInput textinput.Model
	passwordInput textinput.Model
	loginField    int

	// Components
	editor             textarea.Model
	spinner            spinner.Model
	historyList        historylist.Model
	resultsTable       table.Model
	databasesTable     table.Model
	backupHistoryTable table.Model

	// Popup state
	popupStack             *PopupStack
	showHelpPopup          bool
	showDatabasesPopup     bool
	showBackupHistoryPopup bool

	// Last console snapshot
	snap console.Snapshot

	// Status
	loading   bool
	statusMsg string
	errorMsg  string
}

// NewModel creates the UI for a controller talking to server. configPath,
// when set, is where remembered credentials are written.
func NewModel(cfg *config.Config, server *config.Server, ctrl *console.Controller, configPath string) Model {
	ti := textinput.New()
	ti.Prompt = "Username: "
	ti.Placeholder = "admin"
	ti.CharLimit = 128
	ti.Width = 30
	ti.SetValue(server.Username)

	pi := textinput.New()
	pi.Prompt = "Password: "
	pi.EchoMode = textinput.EchoPassword
	pi.EchoCharacter = '•'
	pi.CharLimit = 256
	pi.Width = 30
	pi.SetValue(server.Password)

	loginField := 0
	if server.Username != "" {
		loginField = 1
		pi.Focus()
	} else {
		ti.Focus()
	}

	ed := textarea.New()
	ed.Placeholder = "Enter SQL query (Ctrl+R to execute, Tab to switch panel)..."
	ed.CharLimit = 10000
	ed.SetHeight(5)
	ed.SetWidth(80)
	ed.ShowLineNumbers = false
	ed.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ed.BlurredStyle.CursorLine = lipgloss.NewStyle()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		appState:      StateLogin,
		focus:         FocusEditor,
		config:        cfg,
		server:        server,
		configPath:    configPath,
		console:       ctrl,
		usernameInput: ti,
		passwordInput: pi,
		loginField:    loginField,
		editor:        ed,
		spinner:       sp,
		historyList:   historylist.New(),
		popupStack:    NewPopupStack(),
	}

	m = m.applyTheme(ctrl.Dark())
	return m.sync()
}

// Init fetches the backup history and starts the cursor blink
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.fetchBackupHistoryCmd(),
	)
}

// applyTheme restyles every component for the dark or light palette
func (m Model) applyTheme(dark bool) Model {
	theme := m.config.ThemeFor(dark)
	InitStyles(theme)
	eztable.Init(theme)

	m.spinner.Style = lipgloss.NewStyle().Foreground(AccentColor())
	m.editor.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(TextFaint())
	m.editor.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(TextFaint())

	style := highlight.StyleFor(dark)
	m.historyList = m.historyList.
		SetStyles(historylist.Styles{
			Item:     lipgloss.NewStyle().PaddingLeft(1),
			Selected: lipgloss.NewStyle().PaddingLeft(1).Background(CardBg()),
			Prompt:   SuccessStyle.Bold(true),
			Index:    lipgloss.NewStyle().Foreground(TextFaint()),
			Empty:    MetaStyle,
		}).
		SetHighlightFunc(func(s string) string { return highlight.SQL(s, style) })

	return m.rebuildTables()
}

// sync pulls the console state into the view
func (m Model) sync() Model {
	m.snap = m.console.Snapshot()
	m.statusMsg = m.snap.Notice
	m.errorMsg = m.snap.LastError

	items := make([]historylist.Item, len(m.snap.History))
	for i, e := range m.snap.History {
		items[i] = historyItem(e)
	}
	m.historyList = m.historyList.SetItems(items)

	// a rejected session credential logs the console out
	if m.appState == StateReady && m.snap.Phase == console.PhaseUnauthenticated {
		m = m.toLogin()
	}

	return m.rebuildTables()
}

func (m Model) rebuildTables() Model {
	m.resultsTable = eztable.FromGrid(m.snap.Grid, m.resultsPageSize()).Focused(m.focus == FocusResults)
	m.databasesTable = eztable.FromDatabases(m.snap.Databases)
	m.backupHistoryTable = eztable.FromGrid(m.snap.BackupHistory, 10)
	return m
}

// toLogin switches to the login form, keeping the username
func (m Model) toLogin() Model {
	m.appState = StateLogin
	m.loading = false
	m.editor.Reset()
	m.editor.Blur()
	m.passwordInput.Reset()
	m.loginField = 1
	m.usernameInput.Blur()
	m.passwordInput.Focus()
	m.popupStack.CloseAll(&m)
	return m
}

// historyItem adapts a history entry to the list component
type historyItem history.Entry

func (h historyItem) Query() string { return history.Entry(h).Query() }
func (h historyItem) QueryPreview(maxLen int) string {
	return history.Entry(h).QueryPreview(maxLen)
}
