package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("unexpected addr %q", cfg.Addr)
	}
	if cfg.BroadcastInterval.Duration != 30*time.Second {
		t.Errorf("unexpected broadcast interval %v", cfg.BroadcastInterval.Duration)
	}
	if cfg.KeystrokeLogCap != 5000 {
		t.Errorf("unexpected keystroke log cap %d", cfg.KeystrokeLogCap)
	}
	if cfg.IdleTimeout.Duration != 0 {
		t.Errorf("idle timeout should default to disabled, got %v", cfg.IdleTimeout.Duration)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
addr = ":9090"
allowed_origin = "https://typeflow.example"
broadcast_interval = "5s"
idle_timeout = "10m"
keystroke_log_cap = 100
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.AllowedOrigin != "https://typeflow.example" {
		t.Errorf("allowed_origin = %q", cfg.AllowedOrigin)
	}
	if cfg.BroadcastInterval.Duration != 5*time.Second {
		t.Errorf("broadcast_interval = %v", cfg.BroadcastInterval.Duration)
	}
	if cfg.IdleTimeout.Duration != 10*time.Minute {
		t.Errorf("idle_timeout = %v", cfg.IdleTimeout.Duration)
	}
	if cfg.KeystrokeLogCap != 100 {
		t.Errorf("keystroke_log_cap = %d", cfg.KeystrokeLogCap)
	}
}

func TestLoadPartialFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`addr = ":3000"`), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Addr != ":3000" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.BroadcastInterval.Duration != 30*time.Second {
		t.Errorf("expected default broadcast interval, got %v", cfg.BroadcastInterval.Duration)
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`broadcast_interval = "not-a-duration"`), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid duration")
	}
}
