package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"promptdeck/internal/sync"
)

//go:embed sync.yaml
var syncConfigFile []byte

// LoadSyncConfig returns the reconciler tuning. The embedded defaults apply
// unless SYNC_CONFIG_PATH points at an override file.
func LoadSyncConfig() (sync.Config, error) {
	data := syncConfigFile
	if path := os.Getenv("SYNC_CONFIG_PATH"); path != "" {
		override, err := os.ReadFile(path)
		if err != nil {
			return sync.Config{}, fmt.Errorf("read sync config %s: %w", path, err)
		}
		data = override
	}

	var raw struct {
		PushInterval   string `yaml:"push_interval"`
		PullInterval   string `yaml:"pull_interval"`
		ReorderRetries int    `yaml:"reorder_retries"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return sync.Config{}, fmt.Errorf("parse sync config: %w", err)
	}

	cfg := sync.DefaultConfig()
	if raw.PushInterval != "" {
		d, err := time.ParseDuration(raw.PushInterval)
		if err != nil {
			return sync.Config{}, fmt.Errorf("parse push_interval: %w", err)
		}
		cfg.PushInterval = d
	}
	if raw.PullInterval != "" {
		d, err := time.ParseDuration(raw.PullInterval)
		if err != nil {
			return sync.Config{}, fmt.Errorf("parse pull_interval: %w", err)
		}
		cfg.PullInterval = d
	}
	if raw.ReorderRetries > 0 {
		cfg.ReorderRetries = raw.ReorderRetries
	}
	return cfg, nil
}
