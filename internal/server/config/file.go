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

// fileConfig is the on-disk shape. Token lifetimes use timex.Duration, so
// both "15m" and integer nanoseconds are accepted.
type fileConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	HTTPAddr                     string         `json:"http_addr" yaml:"http_addr"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity" yaml:"access_token_validity"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity" yaml:"refresh_token_validity"`
	S3RootUser                   string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                     string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
	LogFormat                    string         `json:"log_format" yaml:"log_format"`
}

// parseFile loads the file named by -c/-config, if any. Files ending in
// .yaml or .yml are read as YAML, anything else as JSON. Only non-empty
// values replace the current ones.
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

	for dst, v := range map[*string]string{
		&cfg.EndpointAddrGRPC: fc.EndpointAddrGRPC,
		&cfg.HTTPAddr:         fc.HTTPAddr,
		&cfg.DatabaseDSN:      fc.DatabaseDSN,
		&cfg.SecretKey:        fc.SecretKey,
		&cfg.S3RootUser:       fc.S3RootUser,
		&cfg.S3RootPassword:   fc.S3RootPassword,
		&cfg.S3Bucket:         fc.S3Bucket,
		&cfg.S3Region:         fc.S3Region,
		&cfg.S3BaseEndpoint:   fc.S3BaseEndpoint,
		&cfg.LogLevel:         fc.LogLevel,
		&cfg.LogFormat:        fc.LogFormat,
	} {
		if v != "" {
			*dst = v
		}
	}
	if fc.AccessTokenValidityDuration.Duration > 0 {
		cfg.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.RefreshTokenValidityDuration.Duration > 0 {
		cfg.RefreshTokenValidityDuration = fc.RefreshTokenValidityDuration.Duration
	}
	return nil
}
