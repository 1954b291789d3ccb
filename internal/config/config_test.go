package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "" || cfg.TUI != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestSave_RoundTripAndBackup(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)

	if err := Save(&Config{UserID: "u1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Save(&Config{UserID: "u2", TUI: &TUIConfig{Domain: "wallet"}}); err != nil {
		t.Fatalf("Save 2: %v", err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UserID != "u2" || cfg.TUI == nil || cfg.TUI.Domain != "wallet" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	b, err := os.ReadFile(filepath.Join(dir, "config.json.bak"))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	var prev Config
	if err := json.Unmarshal(b, &prev); err != nil {
		t.Fatalf("parse backup: %v", err)
	}
	if prev.UserID != "u1" {
		t.Fatalf("expected backup of previous config, got %+v", prev)
	}
}

func TestSave_ConcurrentWritersDoNotCorrupt(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())

	const n = 32
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := Save(&Config{UserID: "u", Format: "json"}); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent Save: %v", err)
	}
	if _, err := Load(); err != nil {
		t.Fatalf("config corrupted: %v", err)
	}
}

func TestSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{"apiBaseURL", "https://api.example.com/v1", false},
		{"apiBaseURL", "ftp://example.com", true},
		{"apiBaseURL", "not a url", true},
		{"userId", "42", false},
		{"format", "table", false},
		{"format", "xml", true},
		{"logLevel", "debug", false},
		{"logLevel", "loud", true},
		{"tui.profile", "mono", false},
		{"tui.domain", "wallet", false},
		{"tui.domain", "orders", true},
	}
	for _, tt := range tests {
		var cfg Config
		err := cfg.Set(tt.key, tt.value)
		if (err != nil) != tt.wantErr {
			t.Fatalf("Set(%q, %q): err=%v wantErr=%v", tt.key, tt.value, err, tt.wantErr)
		}
		if !tt.wantErr && cfg.Values()[tt.key] != tt.value {
			t.Fatalf("Set(%q, %q): values=%v", tt.key, tt.value, cfg.Values())
		}
	}

	var cfg Config
	var uk UnknownKeyError
	if err := cfg.Set("color", "red"); !errors.As(err, &uk) || uk.Key != "color" {
		t.Fatalf("expected UnknownKeyError, got %v", err)
	}
}

func TestSet_EmptyValueClears(t *testing.T) {
	t.Parallel()
	cfg := Config{UserID: "u1", TUI: &TUIConfig{Profile: "mono"}}
	if err := cfg.Set("userId", " "); err != nil {
		t.Fatalf("clear userId: %v", err)
	}
	if err := cfg.Set("tui.profile", ""); err != nil {
		t.Fatalf("clear profile: %v", err)
	}
	if cfg.UserID != "" || cfg.TUI != nil {
		t.Fatalf("expected cleared config, got %+v", cfg)
	}
	if len(cfg.Values()) != 0 {
		t.Fatalf("expected no values, got %v", cfg.Values())
	}
}
