// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration management for kbchat.
//
// Configuration is loaded from ~/.kbchat/config.toml (TOML, with a JSON
// fallback for older installs), then overridden by environment
// variables. All fields have working defaults; a missing file is not an
// error.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG TYPES
// =============================================================================

// Config is the top-level application configuration.
type Config struct {
	Backend BackendConfig `toml:"backend" json:"backend"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Storage StorageConfig `toml:"storage" json:"storage"`
}

// BackendConfig configures the knowledge-base backend connection.
type BackendConfig struct {
	// BaseURL of the chat backend.
	BaseURL string `toml:"base_url" json:"base_url"`

	// AgentID selects the retrieval agent; empty uses the backend default.
	AgentID string `toml:"agent_id" json:"agent_id"`

	// TimeoutSecs applies to non-streaming requests.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	// WordWrap is the markdown render width for the ask command.
	WordWrap int `toml:"word_wrap" json:"word_wrap"`

	// AltScreen runs the TUI on the alternate screen buffer.
	AltScreen bool `toml:"alt_screen" json:"alt_screen"`

	// ShowSources toggles the per-answer sources panel.
	ShowSources bool `toml:"show_sources" json:"show_sources"`
}

// StorageConfig configures thread persistence.
type StorageConfig struct {
	// Dir overrides the thread directory (default ~/.kbchat/threads).
	Dir string `toml:"dir" json:"dir"`

	// MaxThreads limits stored threads (0 = unlimited).
	MaxThreads int `toml:"max_threads" json:"max_threads"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:     "http://localhost:8000",
			TimeoutSecs: 30,
		},
		UI: UIConfig{
			WordWrap:    80,
			AltScreen:   true,
			ShowSources: true,
		},
		Storage: StorageConfig{
			MaxThreads: 100,
		},
	}
}

// =============================================================================
// LOADING
// =============================================================================

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(homeDir, ".kbchat", "config.toml")
}

// Load reads configuration from the default path.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom reads configuration from an explicit path. A missing file
// yields the defaults. Environment overrides apply last.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, err
	default:
		if decodeErr := decode(path, data, cfg); decodeErr != nil {
			return nil, decodeErr
		}
	}

	applyEnv(cfg)
	cfg.fillDefaults()
	return cfg, nil
}

// decode parses TOML, falling back to JSON for legacy config files.
func decode(path string, data []byte, cfg *Config) error {
	if strings.HasSuffix(path, ".json") {
		return json.Unmarshal(data, cfg)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr == nil {
			return nil
		}
		return err
	}
	return nil
}

// applyEnv applies KBCHAT_* environment overrides.
func applyEnv(cfg *Config) {
	if v := os.Getenv("KBCHAT_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("KBCHAT_AGENT_ID"); v != "" {
		cfg.Backend.AgentID = v
	}
	if v := os.Getenv("KBCHAT_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Backend.TimeoutSecs = n
		}
	}
	if v := os.Getenv("KBCHAT_THREADS_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
}

// fillDefaults restores zero-valued fields a sparse file left unset.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = def.Backend.BaseURL
	}
	if c.Backend.TimeoutSecs <= 0 {
		c.Backend.TimeoutSecs = def.Backend.TimeoutSecs
	}
	if c.UI.WordWrap <= 0 {
		c.UI.WordWrap = def.UI.WordWrap
	}
	if c.Storage.MaxThreads < 0 {
		c.Storage.MaxThreads = 0
	}
}

// Save writes the configuration as TOML to the given path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

// =============================================================================
// GLOBAL ACCESS
// =============================================================================

var (
	globalMu  sync.RWMutex
	globalCfg *Config
)

// Global returns the process-wide configuration, loading it on first
// use.
func Global() *Config {
	globalMu.RLock()
	if globalCfg != nil {
		defer globalMu.RUnlock()
		return globalCfg
	}
	globalMu.RUnlock()

	cfg, err := Load()
	if err != nil {
		cfg = Default()
	}
	SetGlobal(cfg)
	return cfg
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	globalCfg = cfg
	globalMu.Unlock()
}
