package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/finkeeper/internal/filex"
	"github.com/dmitrijs2005/finkeeper/internal/flagx"
	"github.com/dmitrijs2005/finkeeper/internal/timex"
	"gopkg.in/yaml.v3"
)

const maxConfigSize = 1 << 20

// fileConfig is the on-disk shape. Durations use timex.Duration so both
// "3s" and integer nanoseconds are accepted.
type fileConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr" yaml:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	DBPath              string         `json:"db_path" yaml:"db_path"`
	CacheTTL            timex.Duration `json:"cache_ttl" yaml:"cache_ttl"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`
	LogFormat           string         `json:"log_format" yaml:"log_format"`
	MetricsAddr         string         `json:"metrics_addr" yaml:"metrics_addr"`
	KeyringService      string         `json:"keyring_service" yaml:"keyring_service"`
}

// parseFile overlays cfg with the non-empty values of the config file.
// Files ending in .yaml or .yml are read as YAML, anything else as JSON.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := filex.ReadLimited(path, maxConfigSize)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc fileConfig) apply(cfg *Config) {
	setString(&cfg.ServerEndpointAddr, fc.ServerEndpointAddr)
	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)
	setString(&cfg.KeyringService, fc.KeyringService)
	if fc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.CacheTTL.Duration > 0 {
		cfg.CacheTTL = fc.CacheTTL.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
