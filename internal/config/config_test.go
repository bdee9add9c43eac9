package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithFile(""), WithEnvMap(map[string]string{}), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Site.Dir != "site" {
		t.Errorf("expected default site dir, got %s", cfg.Site.Dir)
	}
	if cfg.Widget.MountID != "doc-status" {
		t.Errorf("unexpected mount id: %s", cfg.Widget.MountID)
	}
	if cfg.Widget.ManifestName != "repo-versions.json" {
		t.Errorf("unexpected manifest name: %s", cfg.Widget.ManifestName)
	}
	if cfg.Widget.FetchTimeout != 5*time.Second {
		t.Errorf("unexpected fetch timeout: %s", cfg.Widget.FetchTimeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("unexpected log level: %s", cfg.Log.Level)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docstatus.yaml")
	content := `
server:
  addr: ":9000"
  request_timeout: 45s
site:
  dir: public
  url: https://docs.example.com/
widget:
  mount_id: versions
  intro: "Synced **weekly**."
  fetch_timeout: 2s
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	env := map[string]string{
		"DOCSTATUS_SITE_DIR": "build/site",
		"LOG_LEVEL":          "warn",
	}
	cfg, err := Load(WithFile(path), WithEnvMap(env), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("expected file addr, got %s", cfg.Server.Addr)
	}
	if cfg.Server.RequestTimeout != 45*time.Second {
		t.Errorf("expected file request timeout, got %s", cfg.Server.RequestTimeout)
	}
	if cfg.Server.IdleTimeout != 60*time.Second {
		t.Errorf("expected default idle timeout to survive file merge, got %s", cfg.Server.IdleTimeout)
	}
	if cfg.Site.Dir != "build/site" {
		t.Errorf("expected env to override site dir, got %s", cfg.Site.Dir)
	}
	if cfg.Site.URL != "https://docs.example.com/" {
		t.Errorf("unexpected site url: %s", cfg.Site.URL)
	}
	if cfg.Widget.MountID != "versions" || cfg.Widget.Intro != "Synced **weekly**." {
		t.Errorf("unexpected widget config: %+v", cfg.Widget)
	}
	if cfg.Widget.ManifestName != "repo-versions.json" {
		t.Errorf("expected default manifest name, got %s", cfg.Widget.ManifestName)
	}
	if cfg.Widget.FetchTimeout != 2*time.Second {
		t.Errorf("unexpected fetch timeout: %s", cfg.Widget.FetchTimeout)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected env log level, got %s", cfg.Log.Level)
	}
}

func TestLoadPortPrecedence(t *testing.T) {
	cfg, err := Load(WithFile(""), WithEnvMap(map[string]string{"PORT": "7070"}), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("expected PORT to set addr, got %s", cfg.Server.Addr)
	}

	cfg, err = Load(WithFile(""), WithEnvMap(map[string]string{"PORT": "7070", "DOCSTATUS_ADDR": "127.0.0.1:9999"}), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9999" {
		t.Errorf("expected DOCSTATUS_ADDR to win, got %s", cfg.Server.Addr)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(WithFile(filepath.Join(t.TempDir(), "nope.yaml")), WithoutSystemEnv())
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadValidation(t *testing.T) {
	env := map[string]string{
		"DOCSTATUS_SITE_URL":      "not a url",
		"DOCSTATUS_FETCH_TIMEOUT": "-1s",
	}
	_, err := Load(WithFile(""), WithEnvMap(env), WithoutSystemEnv())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := vErr.Fields()
	if len(fields) != 2 || fields[0] != "Site.URL" || fields[1] != "Widget.FetchTimeout" {
		t.Errorf("unexpected invalid fields: %v", fields)
	}
}
