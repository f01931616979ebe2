package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTestKey(t *testing.T) {
	t.Helper()
	key := []byte(strings.Repeat("k", 32))
	orig := masterKey
	masterKey = func() ([]byte, error) { return key, nil }
	t.Cleanup(func() { masterKey = orig })
}

func TestLoadFromCreatesDefaults(t *testing.T) {
	withTestKey(t)
	path := filepath.Join(t.TempDir(), "ezadmin", "config.toml")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadFromBackfillsMissingSections(t *testing.T) {
	withTestKey(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
dark_mode = false

[[servers]]
name = "prod"
url = "https://db.example.com"
timeout = "5s"
`), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	defaults := DefaultConfig()
	assert.Equal(t, DefaultHistorySize, cfg.HistorySize)
	assert.False(t, cfg.DarkMode)
	assert.Equal(t, defaults.Theme, cfg.Theme)
	assert.Equal(t, defaults.LightTheme, cfg.LightTheme)
	assert.Equal(t, defaults.Keys, cfg.Keys)
	assert.Equal(t, ",", cfg.Export.Delimiter)

	s, err := cfg.ActiveServer("")
	require.NoError(t, err)
	assert.Equal(t, "prod", s.Name)
	assert.Equal(t, 5*time.Second, s.RequestTimeout())

	var onDisk Config
	_, err = toml.DecodeFile(path, &onDisk)
	require.NoError(t, err)
	assert.Equal(t, defaults.Keys, onDisk.Keys)
}

func TestPasswordsEncryptedOnDisk(t *testing.T) {
	withTestKey(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Servers[0].Password = "hunter2"
	cfg.Servers[0].SSHPassword = "tunnel-pass"
	require.NoError(t, cfg.SaveTo(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")
	assert.NotContains(t, string(raw), "tunnel-pass")

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", loaded.Servers[0].Password)
	assert.Equal(t, "tunnel-pass", loaded.Servers[0].SSHPassword)
}

func TestEncryptDecrypt(t *testing.T) {
	key := []byte(strings.Repeat("x", 32))

	sealed, err := Encrypt("secret", key)
	require.NoError(t, err)

	plain, err := Decrypt(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, "secret", plain)

	_, err = Decrypt(sealed, []byte(strings.Repeat("y", 32)))
	assert.Error(t, err)
	_, err = Decrypt("abcd", key)
	assert.Error(t, err)
	_, err = Decrypt("not hex", key)
	assert.Error(t, err)
}

func TestThemeFor(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg.Theme, cfg.ThemeFor(true))
	assert.Equal(t, cfg.LightTheme, cfg.ThemeFor(false))
}

func TestServers(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.AddServer(Server{Name: "prod", URL: "https://user:pw@db.example.com/"}))
	assert.Error(t, cfg.AddServer(Server{Name: "prod", URL: "https://other"}))
	assert.Error(t, cfg.AddServer(Server{Name: "bad", URL: "ftp://db"}))
	assert.Equal(t, []string{"local", "prod"}, cfg.ListServers())

	s, err := cfg.ActiveServer("prod")
	require.NoError(t, err)
	assert.Equal(t, "https://db.example.com", s.Display())

	s.SSHHost = "bastion"
	assert.Equal(t, "https://db.example.com via ssh://bastion", s.Display())

	_, err = cfg.ActiveServer("missing")
	assert.Error(t, err)

	def, err := cfg.ActiveServer("")
	require.NoError(t, err)
	assert.Equal(t, "local", def.Name)
}

func TestRequestTimeout(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", DefaultTimeout},
		{"10s", 10 * time.Second},
		{"1m", time.Minute},
		{"garbage", DefaultTimeout},
		{"-5s", DefaultTimeout},
	}
	for _, tt := range tests {
		s := Server{Timeout: tt.in}
		assert.Equal(t, tt.want, s.RequestTimeout(), tt.in)
	}
}

func TestRememberCredentials(t *testing.T) {
	withTestKey(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	require.NoError(t, cfg.RememberCredentials(path, "local", "admin", "pw"))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "admin", loaded.Servers[0].Username)
	assert.Empty(t, loaded.Servers[0].Password)

	loaded.Servers[0].RememberPassword = true
	require.NoError(t, loaded.RememberCredentials(path, "local", "admin", "pw"))

	again, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "pw", again.Servers[0].Password)

	assert.Error(t, cfg.RememberCredentials(path, "missing", "a", "b"))
}

func TestOverrides(t *testing.T) {
	t.Setenv("EZADMIN_SERVER_URL", "http://10.0.0.5:5014")
	t.Setenv("EZADMIN_USERNAME", "ops")
	t.Setenv("EZADMIN_TIMEOUT", "3s")
	t.Setenv("EZADMIN_HISTORY_SIZE", "10")
	t.Setenv("EZADMIN_EXPORT_DIR", "/tmp/exports")

	o, err := ReadOverrides()
	require.NoError(t, err)

	cfg := DefaultConfig()
	s := &cfg.Servers[0]
	o.Apply(cfg, s)

	assert.Equal(t, "http://10.0.0.5:5014", s.URL)
	assert.Equal(t, "ops", s.Username)
	assert.Empty(t, s.Password)
	assert.Equal(t, 3*time.Second, s.RequestTimeout())
	assert.Equal(t, 10, cfg.HistorySize)
	assert.Equal(t, "/tmp/exports", cfg.Export.Dir)

	assert.Contains(t, EnvUsage(), "EZADMIN_SERVER_URL")
}
