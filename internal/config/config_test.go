package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "9095" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if cfg.Provider.Name != "yahoo" {
		t.Fatalf("provider = %q", cfg.Provider.Name)
	}
	if cfg.TTL.History != 6*time.Hour || cfg.TTL.Daily != 30*time.Minute {
		t.Fatalf("ttls = %v / %v", cfg.TTL.History, cfg.TTL.Daily)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "8080"
provider:
  name: alpaca
alpaca:
  api_key: k
  api_secret: s
cache:
  history_ttl: 2h
  daily_ttl: 10m
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "8080" || cfg.Provider.Name != "alpaca" {
		t.Fatalf("yaml not applied: %+v", cfg)
	}
	if cfg.TTL.History != 2*time.Hour || cfg.TTL.Daily != 10*time.Minute {
		t.Fatalf("ttls = %v / %v", cfg.TTL.History, cfg.TTL.Daily)
	}
	// unset ttl keeps its default
	if cfg.TTL.Fundamentals != 6*time.Hour {
		t.Fatalf("fundamentals ttl = %v", cfg.TTL.Fundamentals)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"8080\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "7000" {
		t.Fatalf("port = %q, env must win over file", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("cache:\n  history_ttl: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("want error for unparseable duration")
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	cfg.Provider.Name = "alpaca"
	if err := cfg.Validate(); err == nil {
		t.Fatal("alpaca without credentials must fail validation")
	}

	cfg.Provider.Name = "bloomberg"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown provider must fail validation")
	}

	cfg.Provider.Name = "yahoo"
	cfg.Telegram.BotToken = "t"
	if err := cfg.Validate(); err == nil {
		t.Fatal("bot token without webhook url must fail validation")
	}
	cfg.Telegram.WebhookURL = "https://example.com/hook"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}
