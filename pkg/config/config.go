// Package config provides configuration management for the ida CLI tool
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Davincible/rabinida/pkg/ida"
	"github.com/Davincible/rabinida/pkg/sharestore"
)

// EnvConfigPath overrides the configuration file location.
const EnvConfigPath = "IDA_CONFIG"

// Config represents the main configuration structure
type Config struct {
	Version  string          `json:"version"`
	Defaults DefaultSettings `json:"defaults"`
	Store    StoreConfig     `json:"store"`
	UI       UIConfig        `json:"ui"`
}

// DefaultSettings holds the dispersal parameters used when flags are not set
type DefaultSettings struct {
	Shares    int `json:"shares"`    // Default: 5
	Threshold int `json:"threshold"` // Default: 3
	Workers   int `json:"workers"`   // Default: 0 (GOMAXPROCS)
}

// StoreConfig contains share store settings
type StoreConfig struct {
	Path    string               `json:"path"`    // Default: ~/.ida/store
	Encrypt bool                 `json:"encrypt"` // Prompt for a passphrase and encrypt files
	KDF     sharestore.KDFParams `json:"kdf"`
}

// UIConfig contains user interface settings
type UIConfig struct {
	UseColor  bool   `json:"use_color"` // Enable colored output
	Verbosity string `json:"verbosity"` // quiet, normal, verbose
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0.0",
		Defaults: DefaultSettings{
			Shares:    5,
			Threshold: 3,
			Workers:   0,
		},
		Store: StoreConfig{
			Path:    "~/.ida/store",
			Encrypt: false,
			KDF:     sharestore.DefaultKDFParams,
		},
		UI: UIConfig{
			UseColor:  true,
			Verbosity: "normal",
		},
	}
}

// Validate checks the configuration for values the tool cannot use.
func (c *Config) Validate() error {
	codec := ida.Config{
		Shares:    c.Defaults.Shares,
		Threshold: c.Defaults.Threshold,
		Workers:   c.Defaults.Workers,
	}
	if err := codec.Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store: path cannot be empty")
	}

	switch c.UI.Verbosity {
	case "", "quiet", "normal", "verbose":
	default:
		return fmt.Errorf("ui: unknown verbosity '%s'", c.UI.Verbosity)
	}

	return nil
}

// LogLevel maps UI.Verbosity to the level of the process logger.
func (c *Config) LogLevel() slog.Level {
	switch c.UI.Verbosity {
	case "quiet":
		return slog.LevelError
	case "verbose":
		return slog.LevelDebug
	default:
		return slog.LevelWarn
	}
}

// Manager manages configuration loading and saving
type Manager struct {
	config     *Config
	configPath string
}

// NewManager loads the configuration at path, or at DefaultPath when path is
// empty. A missing file yields the defaults without writing anything.
func NewManager(path string) (*Manager, error) {
	m, err := NewDefaultManager(path)
	if err != nil {
		return nil, err
	}
	if err := m.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return m, nil
}

// NewDefaultManager returns a manager holding the defaults for path, or for
// DefaultPath when path is empty, without reading the file.
func NewDefaultManager(path string) (*Manager, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Manager{config: DefaultConfig(), configPath: path}, nil
}

// Load loads the configuration from disk
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.config = config
	return nil
}

// Save saves the configuration to disk
func (m *Manager) Save() error {
	if err := m.config.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Config returns the current configuration
func (m *Manager) Config() *Config {
	return m.config
}

// SetConfig updates the configuration
func (m *Manager) SetConfig(config *Config) {
	m.config = config
}

// Path returns the configuration file path
func (m *Manager) Path() string {
	return m.configPath
}

// CodecConfig returns the default dispersal parameters.
func (m *Manager) CodecConfig() ida.Config {
	return ida.Config{
		Shares:    m.config.Defaults.Shares,
		Threshold: m.config.Defaults.Threshold,
		Workers:   m.config.Defaults.Workers,
	}
}

// ApplyDefaults fills zero fields of cfg from the configuration
func (m *Manager) ApplyDefaults(cfg *ida.Config) {
	if cfg.Shares == 0 {
		cfg.Shares = m.config.Defaults.Shares
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = m.config.Defaults.Threshold
	}
	if cfg.Workers == 0 {
		cfg.Workers = m.config.Defaults.Workers
	}
}

// StorePath returns the store directory with a leading ~ expanded.
func (m *Manager) StorePath() (string, error) {
	return expandHome(m.config.Store.Path)
}

// DefaultPath returns the configuration file path
func DefaultPath() (string, error) {
	if customPath := os.Getenv(EnvConfigPath); customPath != "" {
		return customPath, nil
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ida", "config.json"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "ida", "config.json"), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~")), nil
}
