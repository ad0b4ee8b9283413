package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rapidmidiex/modeshift/pitch"
	"github.com/rapidmidiex/modeshift/scale"
	"github.com/rapidmidiex/modeshift/transform"
)

// KeyConfig is a scale and root as typed by the user
type KeyConfig struct {
	Scale string `json:"scale"`
	Root  string `json:"root"`
}

// RelayConfig stores websocket relay defaults
type RelayConfig struct {
	Upstream string `json:"upstream,omitempty"`
	Listen   string `json:"listen,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	// ScaleTable is a path to a scale CSV. Empty means the built-in table.
	ScaleTable string      `json:"scaleTable,omitempty"`
	From       KeyConfig   `json:"from"`
	To         KeyConfig   `json:"to"`
	NoteOff    bool        `json:"noteOff,omitempty"`
	SoundFont  string      `json:"soundFont,omitempty"`
	Relay      RelayConfig `json:"relay,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		From: KeyConfig{Scale: "Ionian", Root: "C"},
		To:   KeyConfig{Scale: "Aeolian", Root: "A"},
		Relay: RelayConfig{
			Upstream: "wss://rmx.fly.dev/ws",
			Listen:   "localhost:8080",
		},
	}
}

// Dir returns the config directory path
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "modeshift"), nil
}

// Path returns the full path to config.json
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Missing fields keep their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

func (c *Config) SaveTo(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Table loads the configured scale table
func (c *Config) Table() (scale.Table, error) {
	if c.ScaleTable == "" {
		return scale.Default(), nil
	}
	return scale.LoadFile(c.ScaleTable)
}

// Key parses a KeyConfig for the transformer
func (k KeyConfig) Key() (transform.Key, error) {
	root, err := pitch.ParseRoot(k.Root)
	if err != nil {
		return transform.Key{}, err
	}
	return transform.Key{Scale: k.Scale, Root: root}, nil
}

// Remapper builds the configured remapper
func (c *Config) Remapper() (*transform.Remapper, error) {
	table, err := c.Table()
	if err != nil {
		return nil, err
	}
	from, err := c.From.Key()
	if err != nil {
		return nil, err
	}
	to, err := c.To.Key()
	if err != nil {
		return nil, err
	}
	return transform.New(table, from, to, transform.WithNoteOff(c.NoteOff))
}
