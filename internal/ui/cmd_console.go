package ui

import (
	"context"
	"log"

	tea "github.com/charmbracelet/bubbletea"
)

// fetchBackupHistoryCmd loads the backup history, logged in or not
func (m Model) fetchBackupHistoryCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.console.FetchBackupHistory(context.Background())
		return BackupHistoryLoadedMsg{Err: err}
	}
}

// loginCmd authenticates; the controller loads databases and backup history
// once the login succeeds
func (m Model) loginCmd(username, password string) tea.Cmd {
	return func() tea.Msg {
		conf, err := m.console.Login(context.Background(), username, password)
		return LoginResultMsg{Username: username, Password: password, Confirmation: conf, Err: err}
	}
}

// rememberCredentialsCmd stores the login of the active server in the config file
func (m Model) rememberCredentialsCmd(username, password string) tea.Cmd {
	if m.configPath == "" || m.server == nil {
		return nil
	}
	cfg, path, name := m.config, m.configPath, m.server.Name
	return func() tea.Msg {
		if err := cfg.RememberCredentials(path, name, username, password); err != nil {
			log.Printf("ui: failed to remember credentials: %v", err)
		}
		return nil
	}
}

// runQueryCmd submits the query buffer
func (m Model) runQueryCmd() tea.Cmd {
	return func() tea.Msg {
		rs, err := m.console.RunQuery(context.Background())
		if err != nil {
			return QueryResultMsg{Err: err}
		}
		return QueryResultMsg{Rows: len(rs), Duration: m.console.Snapshot().QueryDuration}
	}
}

// runBackupCmd requests a backup of database, server-wide when empty
func (m Model) runBackupCmd(database string) tea.Cmd {
	return func() tea.Msg {
		started, err := m.console.RunBackup(context.Background(), database)
		return BackupStartedMsg{Started: started, Err: err}
	}
}

// runCheckDBCmd runs the integrity check
func (m Model) runCheckDBCmd() tea.Cmd {
	return func() tea.Msg {
		rs, err := m.console.RunCheckDB(context.Background())
		return CheckDBResultMsg{Rows: len(rs), Err: err}
	}
}

// refreshDatabasesCmd reloads the database list
func (m Model) refreshDatabasesCmd() tea.Cmd {
	return func() tea.Msg {
		records, err := m.console.RefreshDatabases(context.Background())
		return DatabasesLoadedMsg{Count: len(records), Err: err}
	}
}

// exportCmd writes the result set to query_results.csv
func (m Model) exportCmd() tea.Cmd {
	return func() tea.Msg {
		path, err := m.console.Export()
		return ExportedMsg{Path: path, Err: err}
	}
}

// copyQueryCmd puts the query buffer on the clipboard
func (m Model) copyQueryCmd() tea.Cmd {
	return func() tea.Msg {
		return ClipboardCopiedMsg{Err: m.console.CopyQuery()}
	}
}
