package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Ingest.DefaultStation != "UNKNOWN" {
		t.Errorf("default station = %q, want UNKNOWN", cfg.Ingest.DefaultStation)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9090
database:
  path: /tmp/test.db
ingest:
  drop_dir: /tmp/drop
  default_station: KEXP
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Ingest.DropDir != "/tmp/drop" {
		t.Errorf("drop dir = %q", cfg.Ingest.DropDir)
	}
	if cfg.Ingest.DefaultStation != "KEXP" {
		t.Errorf("default station = %q", cfg.Ingest.DefaultStation)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want default", cfg.Server.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SPINLOG_PORT", "7001")
	t.Setenv("SPINLOG_LOG_LEVEL", "warn")
	t.Setenv("SPINLOG_DEFAULT_STATION", "WFMU")
	t.Setenv("SPINLOG_WEBHOOK_URL", "http://hooks.local/spinlog")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("port = %d, want 7001", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Ingest.DefaultStation != "WFMU" {
		t.Errorf("default station = %q, want WFMU", cfg.Ingest.DefaultStation)
	}
	if cfg.Notify.WebhookURL != "http://hooks.local/spinlog" {
		t.Errorf("webhook url = %q", cfg.Notify.WebhookURL)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	t.Setenv("SPINLOG_PORT", "99999")
	if _, err := Load(""); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

func TestValidateRejectsBadLevel(t *testing.T) {
	t.Setenv("SPINLOG_LOG_LEVEL", "loud")
	if _, err := Load(""); err == nil {
		t.Error("expected error for unknown log level")
	}
}
