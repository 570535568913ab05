// Package config loads the consolepane settings file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/alantheprice/consolepane/pkg/console"
	"github.com/alantheprice/consolepane/pkg/logging"
)

const (
	ConfigVersion  = "1.0"
	ConfigDirName  = ".consolepane"
	ConfigFileName = "config.json"
	LogFileName    = "consolepane.log"
)

// LogConfig controls the rotating log file.
type LogConfig struct {
	File       string `json:"file,omitempty"`
	Level      string `json:"level"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress,omitempty"`
	JSON       bool   `json:"json,omitempty"`
}

// Config represents the settings file
type Config struct {
	Version     string `json:"version"`
	Prompt      string `json:"prompt"`
	Terminator  string `json:"terminator"`
	Mode        string `json:"mode"`
	HistorySize int    `json:"history_size"`
	Strict      bool   `json:"strict,omitempty"`

	// Keys overrides default bindings, e.g. {"shift+enter": "submit"}.
	// Binding a stroke to "none" removes it.
	Keys map[string]string `json:"keys,omitempty"`

	Log LogConfig `json:"log"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Version:     ConfigVersion,
		Prompt:      "> ",
		Terminator:  console.DefaultTerminator,
		Mode:        console.ModeAuto.String(),
		HistorySize: console.DefaultHistorySize,
		Keys:        make(map[string]string),
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// GetConfigDir returns ~/.consolepane, creating it if needed.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ConfigDirName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the default settings file path.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// Load reads path, or the default location when path is empty. A missing
// file yields the defaults; fields absent from the file keep their default
// values.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return nil, err
		}
	}

	config := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Keys == nil {
		config.Keys = make(map[string]string)
	}
	if config.Version == "" {
		config.Version = ConfigVersion
	}
	if config.HistorySize == 0 {
		config.HistorySize = console.DefaultHistorySize
	}

	return config, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	c.Version = ConfigVersion

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// KeyBindings applies the overrides in Keys to the default bindings.
// Strokes are applied in sorted order so errors are deterministic.
func (c *Config) KeyBindings() (console.KeyBindingConfig, error) {
	bindings := console.DefaultKeyBindings()

	strokes := make([]string, 0, len(c.Keys))
	for stroke := range c.Keys {
		strokes = append(strokes, stroke)
	}
	sort.Strings(strokes)

	for _, stroke := range strokes {
		ks, err := console.ParseKeyStroke(stroke)
		if err != nil {
			return console.KeyBindingConfig{}, fmt.Errorf("invalid key binding: %w", err)
		}
		action, err := console.ParseAction(c.Keys[stroke])
		if err != nil {
			return console.KeyBindingConfig{}, fmt.Errorf("invalid key binding for %q: %w", stroke, err)
		}
		bindings.Bind(ks, action)
	}
	return bindings, nil
}

// LoggerOptions converts the log section for logging.New.
func (c *Config) LoggerOptions() (logging.Options, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.Options{}, err
	}
	return logging.Options{
		Filename:   c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
		Level:      level,
		JSON:       c.Log.JSON,
	}, nil
}

// ControllerOptions builds console options from the settings. Host, bus,
// logger and OnSubmit are left for the caller.
func (c *Config) ControllerOptions() (console.Options, error) {
	if err := c.Validate(); err != nil {
		return console.Options{}, err
	}
	mode, _ := console.ParseInputMode(c.Mode)
	keys, _ := c.KeyBindings()
	return console.Options{
		Prompt:      c.Prompt,
		Terminator:  c.Terminator,
		Keys:        keys,
		Mode:        mode,
		HistorySize: c.HistorySize,
		Strict:      c.Strict,
	}, nil
}
