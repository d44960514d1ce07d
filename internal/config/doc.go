// Package config loads and saves the modelserve YAML configuration file.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/modelserve/config.yaml or $HOME/.config/modelserve/config.yaml
//   - macOS: $HOME/.config/modelserve/config.yaml
//   - Windows: %LOCALAPPDATA%\modelserve\config.yaml
//
// # File Format
//
//	version: 1
//	host: 0.0.0.0
//	port: 8001
//	artifact:
//	  path: /models/gemma-3n-E4B-it-int4.task
//	  expected_size: 4405655031
//	reclaim_port: true
//	advertise: false
//	shutdown_timeout: 10s
//
// Durations use Go syntax ("30s", "5m"). Missing keys keep their defaults.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv, err := server.New(cfg.ServerConfig())
package config
