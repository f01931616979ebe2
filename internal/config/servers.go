package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Server is a backend the console can log in to
type Server struct {
	Name     string `toml:"name"`
	URL      string `toml:"url"`
	Username string `toml:"username,omitempty"`
	// Timeout bounds every request, e.g. "30s"
	Timeout string `toml:"timeout,omitempty"`
	// RememberPassword stores the password after a successful login
	RememberPassword bool `toml:"remember_password,omitempty"`

	// Password is kept in memory for usage
	Password string `toml:"-"`
	// EncryptedPassword is the one persisted in the config file
	EncryptedPassword string `toml:"password,omitempty"`

	// SSH Tunnel Configuration
	SSHHost     string `toml:"ssh_host,omitempty"`
	SSHPort     int    `toml:"ssh_port,omitempty"`
	SSHUser     string `toml:"ssh_user,omitempty"`
	SSHPassword string `toml:"-"`
	SSHKeyPath  string `toml:"ssh_key_path,omitempty"`

	EncryptedSSHPassword string `toml:"ssh_password,omitempty"`
}

// RequestTimeout parses Timeout, falling back to DefaultTimeout
func (s *Server) RequestTimeout() time.Duration {
	if s.Timeout == "" {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Validate checks that the server URL is usable
func (s *Server) Validate() error {
	u, err := url.Parse(s.URL)
	if err != nil {
		return errors.Wrapf(err, "server %q", s.Name)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server %q: url must start with http:// or https://", s.Name)
	}
	if u.Host == "" {
		return fmt.Errorf("server %q: url has no host", s.Name)
	}
	return nil
}

// Display returns the server URL without credentials, for the status bar
func (s *Server) Display() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return s.URL
	}
	u.User = nil
	out := strings.TrimSuffix(u.String(), "/")
	if s.SSHHost != "" {
		out += " via ssh://" + s.SSHHost
	}
	return out
}

// GetServer retrieves a server by name
func (c *Config) GetServer(name string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].Name == name {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server not found: %s", name)
}

// ActiveServer returns the named server, the default one when name is
// empty, or the first configured server
func (c *Config) ActiveServer(name string) (*Server, error) {
	if name != "" {
		return c.GetServer(name)
	}
	if c.DefaultServer != "" {
		if s, err := c.GetServer(c.DefaultServer); err == nil {
			return s, nil
		}
	}
	if len(c.Servers) == 0 {
		return nil, errors.New("no servers configured")
	}
	return &c.Servers[0], nil
}

// AddServer adds a new server to the config
func (c *Config) AddServer(s Server) error {
	for _, existing := range c.Servers {
		if existing.Name == s.Name {
			return fmt.Errorf("server already exists: %s", s.Name)
		}
	}
	if err := s.Validate(); err != nil {
		return err
	}
	c.Servers = append(c.Servers, s)
	return nil
}

// ListServers returns all server names
func (c *Config) ListServers() []string {
	names := make([]string, len(c.Servers))
	for i, s := range c.Servers {
		names[i] = s.Name
	}
	return names
}

// RememberCredentials records the username, and the password when the
// server opts in, then writes the config to path
func (c *Config) RememberCredentials(path, name, username, password string) error {
	s, err := c.GetServer(name)
	if err != nil {
		return err
	}
	s.Username = username
	if s.RememberPassword {
		s.Password = password
	}
	return c.SaveTo(path)
}
