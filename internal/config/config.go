// Package config loads tada settings: defaults, then ~/.tada/config.toml,
// then TADA_* environment variables. CLI flags are applied last by the
// caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Makepad-fr/tada/internal/logging"
)

const (
	// DefaultBaseURL is the hosted data API the app was built against.
	DefaultBaseURL    = "https://testapi.qureal.com"
	DefaultCollection = "todo"
	DefaultTheme      = "classic"

	fileName = "config.toml"
	envHome  = "TADA_HOME"
)

// Config holds settings that shape how tada talks to the API and renders.
type Config struct {
	BaseURL    string `toml:"base_url"`
	Collection string `toml:"collection"`
	Sort       string `toml:"sort"`
	LogLevel   string `toml:"log_level"`
	Theme      string `toml:"theme"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		BaseURL:    DefaultBaseURL,
		Collection: DefaultCollection,
		Theme:      DefaultTheme,
	}
}

// Home is the tada directory: $TADA_HOME, else ~/.tada.
func Home(getenv func(string) string) (string, error) {
	if dir := strings.TrimSpace(getenv(envHome)); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".tada"), nil
}

// Path is the config file inside dir.
func Path(dir string) string { return filepath.Join(dir, fileName) }

// Load reads the config file under dir (if any) over the defaults, then
// applies environment overrides.
func Load(dir string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	p := Path(dir)
	if _, err := toml.DecodeFile(p, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading config file %s: %w", p, err)
	}

	applyEnv(cfg, getenv)
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.BaseURL, "TADA_BASE_URL")
	set(&cfg.Collection, "TADA_COLLECTION")
	set(&cfg.Sort, "TADA_SORT")
	set(&cfg.LogLevel, "TADA_LOG_LEVEL")
	set(&cfg.Theme, "TADA_THEME")
}

// Validate checks that the settings can be used to reach the API.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url: want an http(s) URL, got %q", c.BaseURL)
	}
	if strings.TrimSpace(c.Collection) == "" {
		return fmt.Errorf("collection: must not be empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Set assigns one setting by its file key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "base_url":
		c.BaseURL = value
	case "collection":
		c.Collection = value
	case "sort":
		c.Sort = value
	case "log_level":
		c.LogLevel = value
	case "theme":
		c.Theme = value
	default:
		return fmt.Errorf("unknown key %q (want one of: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}

// Keys lists the settable keys in file order.
func Keys() []string {
	return []string{"base_url", "collection", "sort", "log_level", "theme"}
}

// Encode renders the config as TOML.
func (c *Config) Encode() (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return buf.String(), nil
}

// Save writes the config file under dir.
func (c *Config) Save(dir string) error {
	s, err := c.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(Path(dir), []byte(s), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
