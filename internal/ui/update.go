package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/nhath/ezadmin/internal/console"
	eztable "github.com/nhath/ezadmin/internal/ui/components/table"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m.resize(), nil

	case spinner.TickMsg:
		if !m.loading && m.appState != StateLoggingIn {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case BackupHistoryLoadedMsg:
		return m.sync(), nil

	case LoginResultMsg:
		return m.handleLoginResult(msg)

	case QueryResultMsg:
		m = m.finishLoading()
		if msg.Err == nil {
			m.focus = FocusResults
			m = m.applyFocus()
		}
		return m, nil

	case BackupStartedMsg, CheckDBResultMsg:
		return m.finishLoading(), nil

	case DatabasesLoadedMsg:
		return m.sync(), nil

	case ExportedMsg:
		m = m.sync()
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
		}
		return m, nil

	case ClipboardCopiedMsg:
		m = m.sync()
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
		}
		return m, nil

	case tea.KeyMsg:
		if matchKey(msg, m.config.Keys.Exit) {
			return m, tea.Quit
		}
		switch m.appState {
		case StateLogin:
			return m.handleLoginKeys(msg)
		case StateLoggingIn:
			return m, nil
		default:
			if !m.popupStack.IsEmpty() {
				return m.handlePopupKeys(msg)
			}
			return m.handleReadyKeys(msg)
		}
	}

	return m, nil
}

func (m Model) handleLoginResult(msg LoginResultMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.appState = StateLogin
		m = m.sync()
		if !errors.Is(msg.Err, console.ErrSessionEnded) && m.errorMsg == "" {
			m.errorMsg = msg.Err.Error()
		}
		return m, nil
	}

	m.appState = StateReady
	m.focus = FocusEditor
	m.passwordInput.Reset()
	m = m.applyFocus().sync()

	return m, tea.Batch(textarea.Blink, m.rememberCredentialsCmd(msg.Username, msg.Password))
}

func (m Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		m.loginField = 1 - m.loginField
		return m.focusLoginField(), nil

	case "enter":
		if m.loginField == 0 {
			m.loginField = 1
			return m.focusLoginField(), nil
		}
		m.appState = StateLoggingIn
		m.errorMsg = ""
		m.statusMsg = ""
		return m, tea.Batch(
			m.loginCmd(m.usernameInput.Value(), m.passwordInput.Value()),
			m.spinner.Tick,
		)
	}

	var cmd tea.Cmd
	if m.loginField == 0 {
		m.usernameInput, cmd = m.usernameInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m Model) focusLoginField() Model {
	if m.loginField == 0 {
		m.passwordInput.Blur()
		m.usernameInput.Focus()
	} else {
		m.usernameInput.Blur()
		m.passwordInput.Focus()
	}
	return m
}

func (m Model) handleReadyKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.config.Keys

	switch {
	case matchKey(msg, keys.Execute):
		m.console.EditQuery(m.editor.Value())
		if m.busy() {
			return m, nil
		}
		return m.startLoading(m.runQueryCmd())

	case matchKey(msg, keys.Backup):
		if m.busy() {
			return m, nil
		}
		return m.startLoading(m.runBackupCmd(""))

	case matchKey(msg, keys.CheckDB):
		if m.busy() {
			return m, nil
		}
		return m.startLoading(m.runCheckDBCmd())

	case matchKey(msg, keys.Databases):
		m.openDatabasesPopup()
		return m, m.refreshDatabasesCmd()

	case matchKey(msg, keys.BackupHistory):
		m.openBackupHistoryPopup()
		return m, m.fetchBackupHistoryCmd()

	case matchKey(msg, keys.Export):
		return m, m.exportCmd()

	case matchKey(msg, keys.Copy):
		m.console.EditQuery(m.editor.Value())
		return m, m.copyQueryCmd()

	case matchKey(msg, keys.ToggleTheme):
		return m.applyTheme(m.console.ToggleTheme()), nil

	case matchKey(msg, keys.Logout):
		m.console.Logout()
		m = m.toLogin().sync()
		return m, nil

	case matchKey(msg, keys.Help):
		m.openHelpPopup()
		return m, nil

	case matchKey(msg, keys.SwitchFocus):
		m.focus = m.focus.next()
		return m.applyFocus(), nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case FocusEditor:
		m.editor, cmd = m.editor.Update(msg)
		m.console.EditQuery(m.editor.Value())

	case FocusHistory:
		switch msg.String() {
		case "up", "k":
			m.historyList = m.historyList.MoveUp()
		case "down", "j":
			m.historyList = m.historyList.MoveDown()
		case " ":
			m.historyList = m.historyList.ToggleExpanded()
		case "enter":
			return m.selectHistory(m.historyList.Selected())
		}

	case FocusResults:
		m.resultsTable, cmd = m.resultsTable.Update(msg)
	}

	return m, cmd
}

// selectHistory copies a history entry into the editor
func (m Model) selectHistory(i int) (tea.Model, tea.Cmd) {
	entry, err := m.console.SelectHistory(i)
	if err != nil {
		m.errorMsg = err.Error()
		return m, nil
	}
	m.editor.SetValue(entry.Query())
	m.focus = FocusEditor
	return m.applyFocus(), nil
}

// busy reports whether a query or maintenance call is still running.
// Actions sharing the request guard stay disabled until it completes.
func (m Model) busy() bool {
	return m.loading || m.console.Loading()
}

func (m Model) startLoading(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.loading = true
	m.errorMsg = ""
	m.statusMsg = ""
	return m, tea.Batch(cmd, m.spinner.Tick)
}

// finishLoading leaves the loading state only once the console has no
// request in flight
func (m Model) finishLoading() Model {
	m = m.sync()
	m.loading = m.snap.Loading
	return m
}

func (m Model) applyFocus() Model {
	if m.focus == FocusEditor {
		m.editor.Focus()
	} else {
		m.editor.Blur()
	}
	m.historyList = m.historyList.Focus(m.focus == FocusHistory)
	m.resultsTable = m.resultsTable.Focused(m.focus == FocusResults)
	return m
}

func (m Model) handlePopupKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" || msg.String() == "q" {
		m.closeTopPopup()
		return m, nil
	}

	var cmd tea.Cmd
	switch m.popupStack.TopName() {
	case "databases":
		switch msg.String() {
		case "r":
			return m, m.refreshDatabasesCmd()
		case "enter", "b":
			row := m.databasesTable.HighlightedRow()
			name, _ := row.Data[eztable.DatabaseKey].(string)
			if name == "" || m.busy() {
				return m, nil
			}
			m.closeTopPopup()
			return m.startLoading(m.runBackupCmd(name))
		}
		m.databasesTable, cmd = m.databasesTable.Update(msg)

	case "backup-history":
		if msg.String() == "r" {
			return m, m.fetchBackupHistoryCmd()
		}
		m.backupHistoryTable, cmd = m.backupHistoryTable.Update(msg)
	}
	return m, cmd
}

func (m *Model) openHelpPopup() {
	m.showHelpPopup = true
	m.popupStack.Push("help", func(m *Model) bool {
		if m.showHelpPopup {
			m.showHelpPopup = false
			return true
		}
		return false
	})
}

func (m *Model) openDatabasesPopup() {
	m.showDatabasesPopup = true
	m.popupStack.Push("databases", func(m *Model) bool {
		if m.showDatabasesPopup {
			m.showDatabasesPopup = false
			return true
		}
		return false
	})
}

func (m *Model) openBackupHistoryPopup() {
	m.showBackupHistoryPopup = true
	m.popupStack.Push("backup-history", func(m *Model) bool {
		if m.showBackupHistoryPopup {
			m.showBackupHistoryPopup = false
			return true
		}
		return false
	})
}

func (m *Model) closeTopPopup() bool {
	return m.popupStack.CloseTop(m)
}
