// Package config reads and writes the user config file, ~/.gigdesk/config.json.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const EnvConfigDir = "GIGDESK_CONFIG_DIR"

type Config struct {
	// APIBaseURL is the backend root, e.g. https://api.example.com/v1.
	APIBaseURL string `json:"apiBaseURL,omitempty"`
	// UserID scopes every request (/users/{userId}/...).
	UserID   string `json:"userId,omitempty"`
	Format   string `json:"format,omitempty"`
	LogLevel string `json:"logLevel,omitempty"`

	// TUI holds optional user preferences for the interactive TUI.
	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// Profile is the appearance profile id ("default", "mono").
	Profile string `json:"profile,omitempty"`
	// Domain is the workspace the TUI opens on ("events", "wallet", "mentoring").
	Domain string `json:"domain,omitempty"`
}

func Dir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.gigdesk).
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gigdesk"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load returns an empty config when the file does not exist yet.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

// Save writes cfg atomically, keeping the previous file as config.json.bak.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, "config.json.bak.*.tmp", path+".bak", prev, 0o644)
	}
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

var (
	Formats   = []string{"json", "edn", "table"}
	LogLevels = []string{"debug", "info", "warn", "error"}
	Domains   = []string{"events", "wallet", "mentoring"}
	Profiles  = []string{"default", "mono"}
)

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{"apiBaseURL", "userId", "format", "logLevel", "tui.profile", "tui.domain"}
}

type UnknownKeyError struct{ Key string }

func (e UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown config key %q (known: %s)", e.Key, strings.Join(Keys(), ", "))
}

func oneOf(key, v string, allowed []string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s", key, strings.Join(allowed, ", "))
}

// Set validates and assigns one key. An empty value clears it.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	if value != "" {
		var err error
		switch key {
		case "apiBaseURL":
			u, perr := url.Parse(value)
			if perr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				err = fmt.Errorf("apiBaseURL must be an http(s) url")
			}
		case "format":
			err = oneOf(key, value, Formats)
		case "logLevel":
			err = oneOf(key, value, LogLevels)
		case "tui.profile":
			err = oneOf(key, value, Profiles)
		case "tui.domain":
			err = oneOf(key, value, Domains)
		}
		if err != nil {
			return err
		}
	}
	switch key {
	case "apiBaseURL":
		c.APIBaseURL = value
	case "userId":
		c.UserID = value
	case "format":
		c.Format = value
	case "logLevel":
		c.LogLevel = value
	case "tui.profile":
		c.tui().Profile = value
	case "tui.domain":
		c.tui().Domain = value
	default:
		return UnknownKeyError{Key: key}
	}
	if c.TUI != nil && *c.TUI == (TUIConfig{}) {
		c.TUI = nil
	}
	return nil
}

func (c *Config) tui() *TUIConfig {
	if c.TUI == nil {
		c.TUI = &TUIConfig{}
	}
	return c.TUI
}

// Values flattens the config to the dotted keys Set accepts. Unset keys are
// omitted.
func (c *Config) Values() map[string]string {
	out := map[string]string{}
	add := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	add("apiBaseURL", c.APIBaseURL)
	add("userId", c.UserID)
	add("format", c.Format)
	add("logLevel", c.LogLevel)
	if c.TUI != nil {
		add("tui.profile", c.TUI.Profile)
		add("tui.domain", c.TUI.Domain)
	}
	return out
}

// SortedKeys returns the keys of m in order.
func SortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
