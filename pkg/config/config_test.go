package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "upstream:\n  api_key: test-key\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddress != ":8080" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Catalog.Freshness != 5*time.Minute {
		t.Errorf("Freshness = %v", cfg.Catalog.Freshness)
	}
	if cfg.Sessions.IdleTimeout != 90*time.Second {
		t.Errorf("IdleTimeout = %v", cfg.Sessions.IdleTimeout)
	}
	if cfg.Upstream.APIKey != "test-key" {
		t.Errorf("APIKey = %q", cfg.Upstream.APIKey)
	}
}

func TestLoad_FileValuesWin(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: ":9090"
catalog:
  freshness: 1m
sessions:
  heartbeat_interval: 5s
  idle_timeout: 20s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddress != ":9090" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Catalog.Freshness != time.Minute {
		t.Errorf("Freshness = %v", cfg.Catalog.Freshness)
	}
	if cfg.Sessions.HeartbeatInterval != 5*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.Sessions.HeartbeatInterval)
	}
}

func TestLoad_EnvOverridesAPIKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")
	path := writeConfig(t, "upstream:\n  api_key: file-key\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Upstream.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env override", cfg.Upstream.APIKey)
	}
}

func TestLoad_RejectsIdleTimeoutBelowHeartbeat(t *testing.T) {
	path := writeConfig(t, `
sessions:
  heartbeat_interval: 60s
  idle_timeout: 30s
`)

	if _, err := Load(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad_RejectsBadBaseURL(t *testing.T) {
	path := writeConfig(t, "upstream:\n  base_url: \"not a url\"\n")

	if _, err := Load(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
