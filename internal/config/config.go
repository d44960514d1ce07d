package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/plantmeet/modelserve/internal/logging"
	"github.com/plantmeet/modelserve/internal/server"
)

const (
	appName    = "modelserve"
	configFile = "config.yaml"

	// Version is the config file schema version
	Version = 1
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// Config is the on-disk server configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	Artifact ArtifactConfig `yaml:"artifact"`

	// ReclaimPort terminates stale processes listening on Port at startup.
	ReclaimPort bool `yaml:"reclaim_port"`
	// Advertise publishes the server over mDNS.
	Advertise bool `yaml:"advertise"`

	ChunkSize         int           `yaml:"chunk_size,omitempty"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout,omitempty"`
	WriteTimeout      time.Duration `yaml:"write_timeout,omitempty"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout,omitempty"`

	LogLevel string `yaml:"log_level,omitempty"`
}

// ArtifactConfig identifies the served file.
type ArtifactConfig struct {
	Path string `yaml:"path"`
	// Name overrides the URL name; the file's base name by default.
	Name string `yaml:"name,omitempty"`
	// ExpectedSize is checked before startup; 0 disables the check.
	ExpectedSize int64 `yaml:"expected_size,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version:           Version,
		Host:              "0.0.0.0",
		Port:              server.DefaultPort,
		ReclaimPort:       true,
		ChunkSize:         server.DefaultChunkSize,
		ReadHeaderTimeout: 30 * time.Second,
		ShutdownTimeout:   server.DefaultShutdownTimeout,
		LogLevel:          "info",
	}
}

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/modelserve or $HOME/.config/modelserve
//   - macOS: $HOME/.config/modelserve (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\modelserve
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		// Linux and other Unix-like systems: Use XDG_CONFIG_HOME or $HOME/.config
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the configuration at path, or the default location when path is
// empty. A missing file yields Default(); values absent from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Debug("No config file, using defaults")
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.Version != Version {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, Version)
	}

	return cfg, nil
}

// Validate checks values a server cannot start with. The artifact path is
// not required here because it may still come from the command line.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Artifact.ExpectedSize < 0 {
		return fmt.Errorf("artifact.expected_size must not be negative")
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative")
	}
	for name, d := range map[string]time.Duration{
		"read_header_timeout": c.ReadHeaderTimeout,
		"write_timeout":       c.WriteTimeout,
		"shutdown_timeout":    c.ShutdownTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// ServerConfig converts the file configuration into a server.Config.
func (c *Config) ServerConfig() *server.Config {
	return &server.Config{
		Host:              c.Host,
		Port:              c.Port,
		ArtifactPath:      c.Artifact.Path,
		ArtifactName:      c.Artifact.Name,
		ExpectedSize:      c.Artifact.ExpectedSize,
		ReclaimPort:       c.ReclaimPort,
		ChunkSize:         c.ChunkSize,
		ReadHeaderTimeout: c.ReadHeaderTimeout,
		WriteTimeout:      c.WriteTimeout,
		ShutdownTimeout:   c.ShutdownTimeout,
		Advertise:         c.Advertise,
		LogLevel:          c.LogLevel,
	}
}

// Save writes the configuration to path, or the default location when path
// is empty. Performs an atomic write to prevent corruption on crash.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# modelserve configuration
#
# Command line flags override the values below.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	logging.Info("Config saved", zap.String("path", path))
	return nil
}
