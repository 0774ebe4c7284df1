// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, overrides and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "0.0.0.0:9090"

database:
  path: "./test.db"

uploads:
  dir: "./test-uploads"

session:
  ttl: "12h"

keepalive:
  enabled: true
  url: "https://example.com"
  interval: "30s"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != "0.0.0.0:9090" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, "0.0.0.0:9090")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Uploads.Dir != "./test-uploads" {
		t.Errorf("Uploads.Dir = %q, want %q", cfg.Uploads.Dir, "./test-uploads")
	}
	if cfg.Session.TTL != 12*time.Hour {
		t.Errorf("Session.TTL = %v, want %v", cfg.Session.TTL, 12*time.Hour)
	}
	if !cfg.KeepAlive.Enabled {
		t.Error("KeepAlive.Enabled = false, want true")
	}
	if cfg.KeepAlive.Interval != 30*time.Second {
		t.Errorf("KeepAlive.Interval = %v, want %v", cfg.KeepAlive.Interval, 30*time.Second)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, ":8080")
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("Session.TTL = %v, want %v", cfg.Session.TTL, 24*time.Hour)
	}
	if cfg.KeepAlive.Enabled {
		t.Error("KeepAlive.Enabled = true, want false by default")
	}
	if cfg.KeepAlive.Interval != 25*time.Second {
		t.Errorf("KeepAlive.Interval = %v, want %v", cfg.KeepAlive.Interval, 25*time.Second)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_SITE_DB_PATH", "/tmp/expanded.db")

	path := writeConfig(t, `
database:
  path: "${TEST_SITE_DB_PATH}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/expanded.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/expanded.db")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("ADMIN_USER", "principal")
	t.Setenv("ADMIN_PASS", "secret")
	t.Setenv("ENABLE_KEEP_ALIVE", "1")
	t.Setenv("KEEP_ALIVE_URL", "https://example.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":3000" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, ":3000")
	}
	if cfg.Admin.Username != "principal" {
		t.Errorf("Admin.Username = %q, want %q", cfg.Admin.Username, "principal")
	}
	if cfg.Admin.Password != "secret" {
		t.Errorf("Admin.Password = %q, want %q", cfg.Admin.Password, "secret")
	}
	if !cfg.KeepAlive.Enabled {
		t.Error("KeepAlive.Enabled = false, want true")
	}
	if cfg.KeepAlive.URL != "https://example.com" {
		t.Errorf("KeepAlive.URL = %q", cfg.KeepAlive.URL)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
session:
  ttl: "one day"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "session ttl") {
		t.Errorf("error %q should mention session ttl", err)
	}
}

func TestLoad_KeepAliveRequiresURL(t *testing.T) {
	path := writeConfig(t, `
keepalive:
  enabled: true
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error")
	}
	if !strings.Contains(err.Error(), "keepalive.url") {
		t.Errorf("error %q should mention keepalive.url", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}
