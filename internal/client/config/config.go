package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the finkeeper CLI.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	DBPath              string
	CacheTTL            time.Duration
	LogLevel            string
	LogFormat           string
	// MetricsAddr enables a Prometheus listener when non-empty.
	MetricsAddr    string
	KeyringService string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.DBPath = defaultDBPath()
	c.CacheTTL = 24 * time.Hour
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.MetricsAddr = ""
	c.KeyringService = "finkeeper"
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "finkeeper.db"
	}
	return filepath.Join(dir, "finkeeper", "finkeeper.db")
}

// LoadConfig builds a Config from defaults and the optional file named by
// -c/-config in args. Command-line flags are applied later by the CLI.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
