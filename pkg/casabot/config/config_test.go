package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if !cfg.Router.AutoDispatch {
		t.Error("auto-dispatch should default on")
	}
	if cfg.Webhook.Timeout != 15*time.Second {
		t.Errorf("webhook timeout = %v", cfg.Webhook.Timeout)
	}
	if !cfg.WhatsApp.Enabled || cfg.Discord.Enabled {
		t.Error("whatsapp on, discord off by default")
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
log_level: debug
llm:
  default:
    provider: local
    base_url: http://localhost:11434/v1
    model: llama3
  intent:
    model: llama3-small
webhook:
  base_url: http://ha.local:8123
  secret: hunter2
discord:
  enabled: true
  token: tok123
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.LLM.Default.Provider != "local" || cfg.LLM.Default.Model != "llama3" {
		t.Errorf("default llm = %+v", cfg.LLM.Default)
	}
	if cfg.LLM.Intent.Model != "llama3-small" {
		t.Errorf("intent model = %q", cfg.LLM.Intent.Model)
	}
	if cfg.Webhook.BaseURL != "http://ha.local:8123" || cfg.Webhook.Secret != "hunter2" {
		t.Errorf("webhook = %+v", cfg.Webhook)
	}
	if !cfg.Discord.Enabled || cfg.Discord.Token != "tok123" {
		t.Errorf("discord = %+v", cfg.Discord)
	}
	// Untouched sections keep their defaults.
	if cfg.Gateway.Addr != ":8765" {
		t.Errorf("gateway addr = %q", cfg.Gateway.Addr)
	}
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_HA_URL", "http://ha.internal:8123")

	cfg, err := Parse([]byte(`
webhook:
  base_url: ${TEST_HA_URL}
  secret: ${TEST_UNSET_SECRET:-fallback}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Webhook.BaseURL != "http://ha.internal:8123" {
		t.Errorf("base_url = %q, want expanded env var", cfg.Webhook.BaseURL)
	}
	if cfg.Webhook.Secret != "fallback" {
		t.Errorf("secret = %q, want default for unset var", cfg.Webhook.Secret)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("CASABOT_API_KEY", "env-key")
	t.Setenv("CASABOT_WEBHOOK_URL", "http://env.example")

	cfg, err := Parse([]byte(`
llm:
  default:
    api_key: file-key
webhook:
  base_url: http://file.example
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.LLM.Default.APIKey != "env-key" {
		t.Errorf("api key = %q, want env override", cfg.LLM.Default.APIKey)
	}
	if cfg.Webhook.BaseURL != "http://env.example" {
		t.Errorf("webhook url = %q, want env override", cfg.Webhook.BaseURL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}
