package config

import (
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
)

// Overrides are settings taken from the environment
type Overrides struct {
	ServerURL   string `env:"EZADMIN_SERVER_URL" env-description:"backend base URL"`
	Username    string `env:"EZADMIN_USERNAME" env-description:"login username"`
	Password    string `env:"EZADMIN_PASSWORD" env-description:"login password"`
	Timeout     string `env:"EZADMIN_TIMEOUT" env-description:"request timeout, e.g. 30s"`
	HistorySize int    `env:"EZADMIN_HISTORY_SIZE" env-description:"number of queries kept in history"`
	ExportDir   string `env:"EZADMIN_EXPORT_DIR" env-description:"directory of query_results.csv"`
}

// ReadOverrides reads the EZADMIN_* environment variables
func ReadOverrides() (Overrides, error) {
	var o Overrides
	if err := cleanenv.ReadEnv(&o); err != nil {
		return Overrides{}, errors.Wrap(err, "failed to read environment")
	}
	return o, nil
}

// Apply copies every set override onto the config and the active server
func (o Overrides) Apply(c *Config, s *Server) {
	if o.ServerURL != "" {
		s.URL = o.ServerURL
	}
	if o.Username != "" {
		s.Username = o.Username
	}
	if o.Password != "" {
		s.Password = o.Password
	}
	if o.Timeout != "" {
		s.Timeout = o.Timeout
	}
	if o.HistorySize > 0 {
		c.HistorySize = o.HistorySize
	}
	if o.ExportDir != "" {
		c.Export.Dir = o.ExportDir
	}
}

// EnvUsage describes the supported environment variables
func EnvUsage() string {
	var o Overrides
	usage, err := cleanenv.GetDescription(&o, nil)
	if err != nil {
		return ""
	}
	return usage
}
