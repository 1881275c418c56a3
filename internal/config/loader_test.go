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

	path := filepath.Join(t.TempDir(), "yatbl.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123456:ABC-DEF")

	path := writeConfig(t, `
token: ${BOT_TOKEN}
mode: webhook
webhook:
  url: https://bot.example.com/
  port: 8443
  secret_token: ${WEBHOOK_SECRET:-fallback}
  drain_timeout: 10s
  metrics: true
sessions:
  path: /var/lib/yatbl/sessions.db
schedule:
  - name: morning
    cron: "0 9 * * *"
    chat_id: -100123
    text: good morning
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Token != "123456:ABC-DEF" {
		t.Errorf("Token = %q, want expanded env value", cfg.Token)
	}
	if cfg.Mode != "webhook" || cfg.Webhook.URL != "https://bot.example.com/" {
		t.Errorf("webhook config = %+v", cfg.Webhook)
	}
	if cfg.Webhook.Port != 8443 || !cfg.Webhook.Metrics {
		t.Errorf("webhook port/metrics = %d/%v", cfg.Webhook.Port, cfg.Webhook.Metrics)
	}
	if cfg.Webhook.SecretToken != "fallback" {
		t.Errorf("SecretToken = %q, want default fallback", cfg.Webhook.SecretToken)
	}
	if cfg.Webhook.DrainTimeout != 10*time.Second {
		t.Errorf("DrainTimeout = %v, want 10s", cfg.Webhook.DrainTimeout)
	}
	if cfg.Sessions.Path != "/var/lib/yatbl/sessions.db" {
		t.Errorf("Sessions.Path = %q", cfg.Sessions.Path)
	}
	if len(cfg.Schedule) != 1 || cfg.Schedule[0].ChatID != -100123 {
		t.Errorf("Schedule = %+v", cfg.Schedule)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "token: t\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "polling" {
		t.Errorf("Mode = %q, want polling", cfg.Mode)
	}
	if cfg.Polling.Timeout != 30 {
		t.Errorf("Polling.Timeout = %d, want 30", cfg.Polling.Timeout)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want info/text", cfg.Log)
	}
}

func TestLoadUnresolvedVariable(t *testing.T) {
	path := writeConfig(t, "token: ${DEFINITELY_NOT_SET_1234}\n")

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "DEFINITELY_NOT_SET_1234") {
		t.Fatalf("got %v, want unresolved variable error naming it", err)
	}
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	t.Setenv("YATBL_TEST_LEVEL", "warn")

	path := writeConfig(t, "token: t\nlog:\n  level: ${YATBL_TEST_LEVEL:-info}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Level = %q, want warn (env wins over default)", cfg.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load of missing file succeeded")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "token: [unclosed\n")

	if _, err := Load(path); err == nil {
		t.Fatal("Load of invalid YAML succeeded")
	}
}
