// Package config provides configuration management for the rdev listener.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/alexeynau/rdev/internal/logging"
)

// Config represents the application configuration
type Config struct {
	// Listener controls which hooks a session installs
	Listener ListenerConfig `json:"listener"`

	// Log controls the logger
	Log LogConfig `json:"log"`

	// Feed is the WebSocket event feed
	Feed FeedConfig `json:"feed"`

	// Forward is the UDP event forwarder
	Forward ForwardConfig `json:"forward"`

	// StopHotkey ends the session when pressed (e.g. "Ctrl+Alt+Shift+Esc")
	StopHotkey string `json:"stop_hotkey,omitempty"`

	// StartOnLogin registers the listener to start with the user session
	StartOnLogin bool `json:"start_on_login"`
}

// ListenerConfig contains hook settings
type ListenerConfig struct {
	// KeyboardOnly skips the mouse hook
	KeyboardOnly bool `json:"keyboard_only"`

	// IgnoreInjected drops input the OS flags as synthesized
	IgnoreInjected bool `json:"ignore_injected"`
}

// LogConfig contains logger settings
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level"`

	// Format is one of console, json, text
	Format string `json:"format"`
}

// FeedConfig contains WebSocket feed settings
type FeedConfig struct {
	Enabled bool `json:"enabled"`

	// Port is the HTTP port serving /ws (default: 18090)
	Port int `json:"port"`

	// Token is an optional bearer token clients must present
	Token string `json:"token,omitempty"`

	// OpenFirewall adds an inbound firewall rule for Port on Windows
	OpenFirewall bool `json:"open_firewall,omitempty"`
}

// ForwardConfig contains UDP forwarder settings
type ForwardConfig struct {
	Enabled bool `json:"enabled"`

	// Port is the UDP port subscribers register with (default: 18091)
	Port int `json:"port"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Feed: FeedConfig{
			Port: 18090,
		},
		Forward: ForwardConfig{
			Port: 18091,
		},
		StopHotkey: "Ctrl+Alt+Shift+Esc",
	}
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log level: %w", err)
	}
	switch c.Log.Format {
	case "", "console", "json", "text":
	default:
		return fmt.Errorf("config: unsupported log format %q", c.Log.Format)
	}
	if c.Feed.Enabled && !validPort(c.Feed.Port) {
		return fmt.Errorf("config: feed port %d out of range", c.Feed.Port)
	}
	if c.Forward.Enabled && !validPort(c.Forward.Port) {
		return fmt.Errorf("config: forward port %d out of range", c.Forward.Port)
	}
	if c.Feed.Enabled && c.Forward.Enabled && c.Feed.Port == c.Forward.Port {
		return errors.New("config: feed and forward ports must differ")
	}
	return nil
}

func validPort(p int) bool {
	return p > 0 && p < 65536
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()

	// forceKeyboardOnly pins Listener.KeyboardOnly on for this process
	// without touching the stored value.
	forceKeyboardOnly bool
}

// NewManager creates a configuration manager for the per-user config file
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(configPath), nil
}

// NewManagerAt creates a configuration manager for an explicit file
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// Path returns the configuration file path
func (m *Manager) Path() string {
	return m.configPath
}

// getConfigPath returns the path to the configuration file
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "rdev")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "rdev")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "rdev")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load reads the configuration from disk. A missing file keeps the
// current configuration.
func (m *Manager) Load() error {
	m.mu.Lock()

	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		return err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("config: parse %s: %w", m.configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.config = cfg
	onChanged := m.onChanged
	m.mu.Unlock()

	if onChanged != nil {
		onChanged()
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns a copy of the effective configuration
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.effective()
}

func (m *Manager) effective() Config {
	cfg := *m.config
	if m.forceKeyboardOnly {
		cfg.Listener.KeyboardOnly = true
	}
	return cfg
}

// ForceKeyboardOnly keeps Listener.KeyboardOnly on regardless of the file
// contents, reloads and Set. The stored value is left as it was so Save
// does not persist the override.
func (m *Manager) ForceKeyboardOnly() {
	m.mu.Lock()
	m.forceKeyboardOnly = true
	m.mu.Unlock()
}

// KeyboardOnlyForced reports whether ForceKeyboardOnly was called.
func (m *Manager) KeyboardOnlyForced() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.forceKeyboardOnly
}

// Set updates the configuration
func (m *Manager) Set(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.forceKeyboardOnly {
		config.Listener.KeyboardOnly = m.config.Listener.KeyboardOnly
	}
	m.config = &config
	onChanged := m.onChanged
	m.mu.Unlock()

	if onChanged != nil {
		onChanged()
	}
	return nil
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}
