package config

import (
	"os"
	"path/filepath"
	"testing"
)

func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to create temp config: %v", err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml", SectionPop3d)
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}

	expected := Default()
	if cfg.Hostname != expected.Hostname {
		t.Errorf("expected hostname %q, got %q", expected.Hostname, cfg.Hostname)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("", SectionSmtpd)
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Hostname != Default().Hostname {
		t.Errorf("Load(\"\") should return defaults, got hostname %q", cfg.Hostname)
	}
}

func TestLoadValidTOML(t *testing.T) {
	content := `
[server]
hostname = "mail.example.com"

[pop3d]
log_level = "debug"

[pop3d.limits]
max_connections = 50

[pop3d.timeouts]
connection = "15m"
command = "2m"
idle = "45m"

[pop3d.metrics]
enabled = true
address = ":9101"
path = "/metrics"

[smtpd]
log_level = "warn"
`

	path := createTempConfig(t, content)

	pop3Cfg, err := Load(path, SectionPop3d)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if pop3Cfg.Hostname != "mail.example.com" {
		t.Errorf("hostname = %q, want 'mail.example.com'", pop3Cfg.Hostname)
	}
	if pop3Cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want 'debug'", pop3Cfg.LogLevel)
	}
	if pop3Cfg.Limits.MaxConnections != 50 {
		t.Errorf("limits.max_connections = %d, want 50", pop3Cfg.Limits.MaxConnections)
	}
	if pop3Cfg.Timeouts.Connection != "15m" {
		t.Errorf("timeouts.connection = %q, want '15m'", pop3Cfg.Timeouts.Connection)
	}
	if !pop3Cfg.Metrics.Enabled {
		t.Errorf("metrics.enabled = false, want true")
	}

	smtpCfg, err := Load(path, SectionSmtpd)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if smtpCfg.Hostname != "mail.example.com" {
		t.Errorf("smtpd hostname = %q, want shared server hostname 'mail.example.com'", smtpCfg.Hostname)
	}
	if smtpCfg.LogLevel != "warn" {
		t.Errorf("smtpd log_level = %q, want 'warn'", smtpCfg.LogLevel)
	}
	if smtpCfg.Limits.MaxConnections != Default().Limits.MaxConnections {
		t.Errorf("smtpd limits.max_connections = %d, want default %d", smtpCfg.Limits.MaxConnections, Default().Limits.MaxConnections)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := createTempConfig(t, "this is not valid toml [[[")
	if _, err := Load(path, SectionPop3d); err == nil {
		t.Fatal("expected error for invalid TOML, got nil")
	}
}
