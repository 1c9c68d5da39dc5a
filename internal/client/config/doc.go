// Package config loads runtime configuration for the finkeeper CLI.
//
// Sources, lowest precedence first:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. An optional JSON or YAML file selected with -c or -config.
//  3. Persistent flags of the CLI root command.
//
// Durations accept strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "db_path": "/home/me/.config/finkeeper/finkeeper.db",
//	  "cache_ttl": "24h",
//	  "log_level": "info",
//	  "log_format": "text",
//	  "metrics_addr": "127.0.0.1:9464",
//	  "keyring_service": "finkeeper"
//	}
package config
