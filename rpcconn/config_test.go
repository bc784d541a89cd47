package rpcconn

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("ETHRPC_TEST_URL", "wss://override.example/ws")

	in := "url: ${ETHRPC_TEST_URL}\ntimeout: ${ETHRPC_TEST_MISSING:-5s}\n"
	got := substituteEnvVars(in)
	want := "url: wss://override.example/ws\ntimeout: 5s\n"
	if got != want {
		t.Errorf("substituteEnvVars() = %q, want %q", got, want)
	}
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("url: wss://node.example/ws\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("ConnectTimeout = %v, want 5s", cfg.ConnectTimeout)
	}
	if cfg.StaleTimeout != 60*time.Second {
		t.Errorf("StaleTimeout = %v, want 60s", cfg.StaleTimeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadConfigRequiresURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for missing url")
	}
}
