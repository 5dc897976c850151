package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("HONEYPOT_API_KEY", "")
	t.Setenv("OPENAI_TOKEN", "")
	t.Setenv("CALLBACK_URL", "")
}

func TestLoadAppliesDefaults(t *testing.T) {
	writeConfig(t, `
server:
  api_key: hp-secret
openai:
  base_url: https://api.example.com/v1
  token: file-token
  model: test-model
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Listen != ":8080" {
		t.Errorf("listen default: %q", cfg.Server.Listen)
	}
	if cfg.OpenAI.TimeoutSeconds != 20 {
		t.Errorf("openai timeout default: %d", cfg.OpenAI.TimeoutSeconds)
	}
	if cfg.Callback.TimeoutSeconds != 10 {
		t.Errorf("callback timeout default: %d", cfg.Callback.TimeoutSeconds)
	}
	if cfg.Honeypot.ConfidenceThreshold != 0.8 {
		t.Errorf("threshold default: %v", cfg.Honeypot.ConfidenceThreshold)
	}
	if cfg.Honeypot.MinTurns != 3 {
		t.Errorf("min turns default: %d", cfg.Honeypot.MinTurns)
	}
	if cfg.Honeypot.FallbackReply == "" {
		t.Error("fallback reply default missing")
	}
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	writeConfig(t, `
server:
  api_key: file-secret
openai:
  base_url: https://api.example.com/v1
  token: file-token
  model: test-model
`)
	t.Setenv("HONEYPOT_API_KEY", "env-secret")
	t.Setenv("OPENAI_TOKEN", "env-token")
	t.Setenv("CALLBACK_URL", "https://reports.example.com/v1/intel")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.APIKey != "env-secret" {
		t.Errorf("api key: %q", cfg.Server.APIKey)
	}
	if cfg.OpenAI.Token != "env-token" {
		t.Errorf("token: %q", cfg.OpenAI.Token)
	}
	if cfg.Callback.URL != "https://reports.example.com/v1/intel" {
		t.Errorf("callback url: %q", cfg.Callback.URL)
	}
}

func TestLoadRejectsIncompleteConfig(t *testing.T) {
	writeConfig(t, `
openai:
  base_url: https://api.example.com/v1
`)

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected read error")
	}
}
