package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"JWT_SECRET", "GEMINI_API", "PORT", "CLIENT_URL",
		"LAUNCHGPT_SESSION_SECRET", "LAUNCHGPT_LLM_API_KEY", "LAUNCHGPT_SERVER_PORT", "LAUNCHGPT_LLM_TIMEOUT"} {
		t.Setenv(k, "")
	}
}

func TestLoadFileWithDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
session:
  secret: file-secret
llm:
  api_key: file-key
  timeout: 30s
server:
  allowed_origins: ["http://a.example", "http://localhost:5173/"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.Secret != "file-secret" || cfg.LLM.APIKey != "file-key" {
		t.Fatalf("file values not loaded: %+v", cfg)
	}
	if cfg.LLM.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.LLM.Timeout)
	}
	if cfg.Session.TTL != 24*time.Hour || cfg.Session.CookieName != "token" {
		t.Fatalf("session defaults not applied: %+v", cfg.Session)
	}
	if cfg.LLM.MaxRetries != 2 || cfg.LLM.Model != "gemini-2.0-flash" {
		t.Fatalf("llm defaults not applied: %+v", cfg.LLM)
	}
	if cfg.History.Limit != 50 || cfg.History.CacheTTL != 10*time.Minute {
		t.Fatalf("history defaults not applied: %+v", cfg.History)
	}
	want := []string{"http://localhost:5173", "http://a.example"}
	if got := cfg.Server.Origins(); !reflect.DeepEqual(got, want) {
		t.Fatalf("origins = %v, want %v", got, want)
	}
}

func TestLoadLegacyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("GEMINI_API", "env-key")
	t.Setenv("PORT", "9090")
	t.Setenv("LAUNCHGPT_LLM_TIMEOUT", "5s")

	cfg, err := Load(writeConfig(t, "session:\n  secret: file-secret\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.Secret != "env-secret" {
		t.Fatalf("secret = %q, env should win", cfg.Session.Secret)
	}
	if cfg.LLM.APIKey != "env-key" || cfg.Server.Port != "9090" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.LLM.Timeout != 5*time.Second {
		t.Fatalf("prefixed override not applied: %v", cfg.LLM.Timeout)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	clearEnv(t)
	if _, err := Load(writeConfig(t, "llm:\n  api_key: k\n")); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if _, err := Load(writeConfig(t, "session:\n  secret: s\n")); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestBrokerAndAddressLists(t *testing.T) {
	k := KafkaConfig{Brokers: " a:9092, ,b:9092"}
	if got := k.BrokerList(); !reflect.DeepEqual(got, []string{"a:9092", "b:9092"}) {
		t.Fatalf("brokers = %v", got)
	}
	e := ElasticsearchConfig{Addresses: "http://es:9200"}
	if got := e.AddressList(); len(got) != 1 {
		t.Fatalf("addresses = %v", got)
	}
}
