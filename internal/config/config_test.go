package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadRequiresAPIURL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NFSE_API_URL", "")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "NFSE_API_URL") {
		t.Fatalf("expected missing NFSE_API_URL error, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("NFSE_API_URL", "https://nfse.example.com/")
	for _, k := range []string{"NFSE_HTTP_TIMEOUT", "NFSE_SEARCH_DEBOUNCE_MS", "NFSE_TIMEZONE", "NFSE_EXPORT_DIR", "NFSE_QUEUE_BACKEND", "NFSE_RABBITMQ_MAX_RETRIES", "INCOMING_DIR"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "https://nfse.example.com" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 60*time.Second || cfg.Debounce != time.Second {
		t.Fatalf("unexpected durations: %s %s", cfg.HTTPTimeout, cfg.Debounce)
	}
	if cfg.RabbitMQMaxRetries != 0 {
		t.Fatalf("exports must not be retried by default")
	}
	if cfg.UseRabbitMQ() {
		t.Fatalf("queue should be disabled by default")
	}
	if !filepath.IsAbs(cfg.ExportDir) || filepath.Base(cfg.ExportDir) != "exports" {
		t.Fatalf("unexpected export dir: %s", cfg.ExportDir)
	}
	if cfg.Location != time.Local {
		t.Fatalf("expected local time zone by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NFSE_API_URL", "http://localhost:3000")
	t.Setenv("NFSE_TIMEZONE", "America/Sao_Paulo")
	t.Setenv("NFSE_SEARCH_DEBOUNCE_MS", "250")
	t.Setenv("NFSE_EXPORT_DIR", "/var/lib/nfse/exports")
	t.Setenv("NFSE_QUEUE_BACKEND", "RabbitMQ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Location.String() != "America/Sao_Paulo" {
		t.Fatalf("unexpected location: %s", cfg.Location)
	}
	if cfg.Debounce != 250*time.Millisecond {
		t.Fatalf("unexpected debounce: %s", cfg.Debounce)
	}
	if cfg.ExportDir != "/var/lib/nfse/exports" {
		t.Fatalf("absolute dir should be kept: %s", cfg.ExportDir)
	}
	if !cfg.UseRabbitMQ() {
		t.Fatalf("backend should be case insensitive")
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NFSE_API_URL", "http://localhost:3000")
	t.Setenv("NFSE_HTTP_TIMEOUT", "sessenta")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid timeout")
	}
}
