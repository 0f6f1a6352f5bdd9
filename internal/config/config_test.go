package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Monitor.FailedLoginThreshold != 5 {
		t.Fatalf("threshold: %d", cfg.Monitor.FailedLoginThreshold)
	}
	if cfg.Monitor.BruteForceWindow != 60*time.Second {
		t.Fatalf("window: %s", cfg.Monitor.BruteForceWindow)
	}
	if cfg.Notify.Service != DefaultNotifyService {
		t.Fatalf("notify service: %s", cfg.Notify.Service)
	}
	if cfg.Email.SMTPPort != 587 {
		t.Fatalf("smtp port: %d", cfg.Email.SMTPPort)
	}
	if cfg.Events.StoreLimit != 500 {
		t.Fatalf("store limit: %d", cfg.Events.StoreLimit)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	content := `
log_level: debug
monitor:
  failed_login_threshold: 10
  brute_force_window: 120s
email:
  recipient: ops@example.com
  smtp_host: mail.example.com
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level: %s", cfg.LogLevel)
	}
	if cfg.Monitor.FailedLoginThreshold != 10 {
		t.Fatalf("threshold: %d", cfg.Monitor.FailedLoginThreshold)
	}
	if cfg.Monitor.BruteForceWindow != 120*time.Second {
		t.Fatalf("window: %s", cfg.Monitor.BruteForceWindow)
	}
	// Untouched sections keep their defaults.
	if cfg.Monitor.ScanInterval != 60*time.Second {
		t.Fatalf("scan interval: %s", cfg.Monitor.ScanInterval)
	}
	if !cfg.Email.Enabled() {
		t.Fatalf("email should be enabled with host and recipient")
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.json")
	content := `{"monitor":{"failed_login_threshold":3}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Monitor.FailedLoginThreshold != 3 {
		t.Fatalf("threshold: %d", cfg.Monitor.FailedLoginThreshold)
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.Monitor.ScanInterval = 5 * time.Second },
		func(c *Config) { c.Monitor.FailedLoginThreshold = 1 },
		func(c *Config) { c.Monitor.FailedLoginThreshold = 101 },
		func(c *Config) { c.Monitor.BruteForceWindow = 2 * time.Hour },
		func(c *Config) { c.Email.SMTPPort = 70000 },
		func(c *Config) { c.Ingest.Kafka.Enabled = true },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := Validate(cfg); err == nil {
			t.Fatalf("case %d passed validation", i)
		}
	}
}

func TestEmailEnabledRequiresHostAndRecipient(t *testing.T) {
	var c EmailConfig
	if c.Enabled() {
		t.Fatalf("empty config enabled")
	}
	c.SMTPHost = "mail.example.com"
	if c.Enabled() {
		t.Fatalf("host alone enabled")
	}
	c.Recipient = "ops@example.com"
	if !c.Enabled() {
		t.Fatalf("host and recipient should enable email")
	}
}

func TestManagerReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	if m.Get().LogLevel != "info" {
		t.Fatalf("initial level: %s", m.Get().LogLevel)
	}
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if _, err := m.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if m.Get().LogLevel != "debug" {
		t.Fatalf("reloaded level: %s", m.Get().LogLevel)
	}
}
