package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadSyncConfigDefaults(t *testing.T) {
	cfg, err := LoadSyncConfig()
	if err != nil {
		t.Fatalf("LoadSyncConfig: %v", err)
	}
	if cfg.PushInterval != 2*time.Second {
		t.Errorf("push interval = %v, want 2s", cfg.PushInterval)
	}
	if cfg.PullInterval != 15*time.Second {
		t.Errorf("pull interval = %v, want 15s", cfg.PullInterval)
	}
	if cfg.ReorderRetries != 3 {
		t.Errorf("reorder retries = %d, want 3", cfg.ReorderRetries)
	}
}

func TestLoadSyncConfigOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.yaml")
	data := "push_interval: 500ms\npull_interval: 1m\nreorder_retries: 5\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write override: %v", err)
	}
	t.Setenv("SYNC_CONFIG_PATH", path)

	cfg, err := LoadSyncConfig()
	if err != nil {
		t.Fatalf("LoadSyncConfig: %v", err)
	}
	if cfg.PushInterval != 500*time.Millisecond {
		t.Errorf("push interval = %v, want 500ms", cfg.PushInterval)
	}
	if cfg.PullInterval != time.Minute {
		t.Errorf("pull interval = %v, want 1m", cfg.PullInterval)
	}
	if cfg.ReorderRetries != 5 {
		t.Errorf("reorder retries = %d, want 5", cfg.ReorderRetries)
	}
}

func TestLoadSyncConfigBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.yaml")
	if err := os.WriteFile(path, []byte("push_interval: soon\n"), 0o600); err != nil {
		t.Fatalf("write override: %v", err)
	}
	t.Setenv("SYNC_CONFIG_PATH", path)

	if _, err := LoadSyncConfig(); err == nil {
		t.Fatal("expected an error for an unparseable duration")
	}
}
