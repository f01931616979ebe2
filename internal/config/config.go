package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/pkg/errors"
)

const (
	DefaultServerURL   = "http://localhost:5014"
	DefaultTimeout     = 30 * time.Second
	DefaultHistorySize = 5
)

// Config represents the application configuration
type Config struct {
	DefaultServer string   `toml:"default_server"`
	HistorySize   int      `toml:"history_size"`
	DarkMode      bool     `toml:"dark_mode"`
	Servers       []Server `toml:"servers"`
	Export        Export   `toml:"export"`
	Theme         Theme    `toml:"theme_colors"`
	LightTheme    Theme    `toml:"light_theme_colors"`
	Keys          KeyMap   `toml:"keys"`
}

// Export configures where and how results are exported
type Export struct {
	Dir       string `toml:"dir"`
	Delimiter string `toml:"delimiter"`
	// Quote switches from raw delimited text to RFC 4180 CSV
	Quote bool `toml:"quote"`
}

// Theme defines the color palette
type Theme struct {
	TextPrimary   string `toml:"text_primary"`
	TextSecondary string `toml:"text_secondary"`
	TextFaint     string `toml:"text_faint"`
	Accent        string `toml:"accent"`
	Success       string `toml:"success"`
	Error         string `toml:"error"`
	Highlight     string `toml:"highlight"`
	Warning       string `toml:"warning"`
	BgPrimary     string `toml:"bg_primary"`
	BgSecondary   string `toml:"bg_secondary"`
	CardBg        string `toml:"card_bg"`
}

// KeyMap defines key bindings
type KeyMap struct {
	Execute       []string `toml:"execute"`
	Exit          []string `toml:"exit"`
	SwitchFocus   []string `toml:"switch_focus"`
	Backup        []string `toml:"backup"`
	CheckDB       []string `toml:"checkdb"`
	Databases     []string `toml:"databases"`
	BackupHistory []string `toml:"backup_history"`
	Export        []string `toml:"export"`
	Copy          []string `toml:"copy"`
	ToggleTheme   []string `toml:"toggle_theme"`
	Logout        []string `toml:"logout"`
	Help          []string `toml:"help"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		DefaultServer: "local",
		HistorySize:   DefaultHistorySize,
		DarkMode:      true,
		Servers: []Server{
			{Name: "local", URL: DefaultServerURL, Timeout: DefaultTimeout.String()},
		},
		Export: Export{
			Dir:       ".",
			Delimiter: ",",
		},
		Theme: Theme{
			// Nord
			TextPrimary:   "#D8DEE9",
			TextSecondary: "#81A1C1",
			TextFaint:     "#4C566A",
			Accent:        "#88C0D0",
			Success:       "#A3BE8C",
			Error:         "#BF616A",
			Highlight:     "#8FBCBB",
			Warning:       "#D08770",
			BgPrimary:     "#2E3440",
			BgSecondary:   "#3B4252",
			CardBg:        "#434C5E",
		},
		LightTheme: Theme{
			// Nord Snow Storm
			TextPrimary:   "#2E3440",
			TextSecondary: "#5E81AC",
			TextFaint:     "#7B88A1",
			Accent:        "#5E81AC",
			Success:       "#4C7A3D",
			Error:         "#BF616A",
			Highlight:     "#3B6E8F",
			Warning:       "#B0603A",
			BgPrimary:     "#ECEFF4",
			BgSecondary:   "#E5E9F0",
			CardBg:        "#D8DEE9",
		},
		Keys: KeyMap{
			Execute:       []string{"ctrl+r", "f5"},
			Exit:          []string{"ctrl+c"},
			SwitchFocus:   []string{"tab"},
			Backup:        []string{"ctrl+b"},
			CheckDB:       []string{"ctrl+k"},
			Databases:     []string{"ctrl+d"},
			BackupHistory: []string{"ctrl+o"},
			Export:        []string{"ctrl+e"},
			Copy:          []string{"ctrl+y"},
			ToggleTheme:   []string{"ctrl+t"},
			Logout:        []string{"ctrl+l"},
			Help:          []string{"f1"},
		},
	}
}

// ThemeFor returns the palette of the dark or light theme
func (c *Config) ThemeFor(dark bool) Theme {
	if dark {
		return c.Theme
	}
	return c.LightTheme
}

// ConfigPath returns the XDG-compliant config file path
func ConfigPath() (string, error) {
	return xdg.ConfigFile("ezadmin/config.toml")
}

// masterKey is replaced in tests to avoid the OS keyring
var masterKey = GetMasterKey

// Load loads the config from disk or creates default
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the config at path, creating it with defaults on first run
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.SaveTo(path); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}

	// Populate defaults for missing fields (migration)
	if cfg.backfill(DefaultConfig()) {
		if err := cfg.SaveTo(path); err != nil {
			log.Printf("config: failed to persist defaults: %v", err)
		}
	}

	key, err := masterKey()
	if err == nil {
		for i := range cfg.Servers {
			if cfg.Servers[i].EncryptedPassword != "" {
				decrypted, err := Decrypt(cfg.Servers[i].EncryptedPassword, key)
				if err == nil {
					cfg.Servers[i].Password = decrypted
				}
			}
			if cfg.Servers[i].EncryptedSSHPassword != "" {
				decrypted, err := Decrypt(cfg.Servers[i].EncryptedSSHPassword, key)
				if err == nil {
					cfg.Servers[i].SSHPassword = decrypted
				}
			}
		}
	} else {
		log.Printf("config: keyring unavailable, stored passwords ignored: %v", err)
	}

	return &cfg, nil
}

// backfill copies missing sections from defaults and reports whether
// anything changed
func (c *Config) backfill(defaults *Config) bool {
	updated := false

	if c.HistorySize <= 0 {
		c.HistorySize = defaults.HistorySize
		updated = true
	}
	if len(c.Servers) == 0 {
		c.Servers = defaults.Servers
		c.DefaultServer = defaults.DefaultServer
		updated = true
	}
	if c.Export.Delimiter == "" {
		c.Export.Delimiter = defaults.Export.Delimiter
		updated = true
	}
	if c.Export.Dir == "" {
		c.Export.Dir = defaults.Export.Dir
		updated = true
	}
	if c.Theme.TextPrimary == "" {
		c.Theme = defaults.Theme
		updated = true
	}
	if c.LightTheme.TextPrimary == "" {
		c.LightTheme = defaults.LightTheme
		updated = true
	}
	if len(c.Keys.Execute) == 0 {
		c.Keys = defaults.Keys
		updated = true
	}

	return updated
}

// Save writes the config to its XDG path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, encrypting passwords
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	key, err := masterKey()
	if err == nil {
		for i := range c.Servers {
			if c.Servers[i].Password != "" {
				encrypted, err := Encrypt(c.Servers[i].Password, key)
				if err == nil {
					c.Servers[i].EncryptedPassword = encrypted
				}
			}
			if c.Servers[i].SSHPassword != "" {
				encrypted, err := Encrypt(c.Servers[i].SSHPassword, key)
				if err == nil {
					c.Servers[i].EncryptedSSHPassword = encrypted
				}
			}
		}
	}

	return toml.NewEncoder(f).Encode(c)
}
