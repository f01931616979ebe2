// cmd/ezadmin/main.go
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/nhath/ezadmin/internal/api"
	"github.com/nhath/ezadmin/internal/config"
	"github.com/nhath/ezadmin/internal/console"
	"github.com/nhath/ezadmin/internal/resultset"
	"github.com/nhath/ezadmin/internal/ui"
)

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred cleanup happens before the process ends
func run() int {
	debug := flag.Bool("debug", false, "Enable debug logging to debug.log")
	serverName := flag.String("server", "", "Name of the configured server to use")
	execute := flag.String("e", "", "Run a single query and print the result")
	username := flag.String("user", "", "Login username (batch mode)")
	password := flag.String("password", "", "Login password (batch mode)")
	format := flag.String("format", "table", "Batch output format: table or csv")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\n%s\n", config.EnvUsage())
	}
	flag.Parse()

	if *debug {
		f, err := tea.LogToFile("debug.log", "debug")
		if err != nil {
			fmt.Printf("fatal: could not open debug log: %v", err)
			return 1
		}
		defer f.Close()
		log.SetOutput(f)
	} else if *execute == "" {
		// keep component logs off the terminal the UI draws on
		log.SetOutput(io.Discard)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to locate config: %v\n", err)
		return 1
	}
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	server, err := cfg.ActiveServer(*serverName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	overrides, err := config.ReadOverrides()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	overrides.Apply(cfg, server)

	if err := server.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	client, err := api.NewClient(api.Options{
		BaseURL: server.URL,
		Timeout: server.RequestTimeout(),
		Tunnel:  tunnelConfig(server),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create client: %v\n", err)
		return 1
	}
	defer client.Close()

	ctrl := console.New(client, console.Options{
		HistorySize: cfg.HistorySize,
		DarkMode:    cfg.DarkMode,
		ExportDir:   cfg.Export.Dir,
		Delimiter:   cfg.Export.Delimiter,
		QuoteExport: cfg.Export.Quote,
		Clipboard:   clipboard.WriteAll,
	})
	client.SetTokenSource(ctrl.Session().Token)

	if *execute != "" {
		user := firstNonEmpty(*username, server.Username)
		pass := firstNonEmpty(*password, server.Password)
		return runBatch(ctrl, user, pass, *execute, *format, cfg.Export)
	}

	model := ui.NewModel(cfg, server, ctrl, configPath)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return 1
	}
	return 0
}

// runBatch logs in, runs one query and prints its result
func runBatch(ctrl *console.Controller, username, password, query, format string, export config.Export) int {
	ctx := context.Background()

	if username == "" {
		username = prompt("Username: ")
	}
	if password == "" {
		password = promptPassword("Password: ")
	}

	if _, err := ctrl.Login(ctx, username, password); err != nil {
		fmt.Fprintf(os.Stderr, "Login failed: %v\n", err)
		return 1
	}

	ctrl.EditQuery(query)
	rs, err := ctrl.RunQuery(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		return 1
	}

	if err := writeBatchResult(os.Stdout, rs, format, export); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

// writeBatchResult prints rs as a table, or with -format csv as the same
// delimited text an export produces
func writeBatchResult(w io.Writer, rs resultset.ResultSet, format string, export config.Export) error {
	switch format {
	case "csv":
		if export.Quote {
			comma := ','
			if export.Delimiter != "" {
				comma = []rune(export.Delimiter)[0]
			}
			return resultset.WriteCSV(w, rs, comma)
		}
		_, err := fmt.Fprintln(w, resultset.ToDelimitedText(rs, export.Delimiter))
		return err
	default:
		resultset.RenderTable(w, rs)
		return nil
	}
}

func tunnelConfig(s *config.Server) *api.TunnelConfig {
	if s.SSHHost == "" {
		return nil
	}
	return &api.TunnelConfig{
		Host:     s.SSHHost,
		Port:     s.SSHPort,
		User:     s.SSHUser,
		Password: s.SSHPassword,
		KeyPath:  s.SSHKeyPath,
	}
}

func prompt(label string) string {
	fmt.Fprint(os.Stderr, label)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}

func promptPassword(label string) string {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(label)
	}
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return ""
	}
	return string(b)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
