package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" || cfg.Server.Mode != "debug" {
		t.Errorf("server defaults = %q/%q", cfg.Server.Host, cfg.Server.Mode)
	}
	if cfg.Database.Port != 5432 || cfg.Database.SSLMode != "disable" {
		t.Errorf("database defaults = %d/%q", cfg.Database.Port, cfg.Database.SSLMode)
	}
	if cfg.Scheduler.CycleInterval != "15s" || cfg.Scheduler.RecoveryInterval != "10s" {
		t.Errorf("scheduler intervals = %q/%q", cfg.Scheduler.CycleInterval, cfg.Scheduler.RecoveryInterval)
	}
	if !cfg.Scheduler.Enabled {
		t.Error("scheduler not enabled by default")
	}
	if cfg.Scheduler.FallbackSearchMaxPages != 200 {
		t.Errorf("fallback search pages = %d, want 200", cfg.Scheduler.FallbackSearchMaxPages)
	}
	if len(cfg.AI.TranscriptionModels) != 3 || cfg.AI.TranscriptionModels[0] != "whisper-1" {
		t.Errorf("transcription models = %v", cfg.AI.TranscriptionModels)
	}
	if cfg.Auth.SessionTTL != "168h" {
		t.Errorf("session ttl = %q", cfg.Auth.SessionTTL)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `server:
  host: 0.0.0.0
  port: 9000
  mode: release
scheduler:
  cycle_interval: 30s
  collection_batch_size: 10
ai:
  transcription_models:
    - large
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 || cfg.Server.Mode != "release" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Scheduler.CycleInterval != "30s" {
		t.Errorf("cycle interval = %q", cfg.Scheduler.CycleInterval)
	}
	if cfg.Scheduler.CollectionBatchSize != 10 {
		t.Errorf("collection batch = %d", cfg.Scheduler.CollectionBatchSize)
	}
	if len(cfg.AI.TranscriptionModels) != 1 || cfg.AI.TranscriptionModels[0] != "large" {
		t.Errorf("transcription models = %v", cfg.AI.TranscriptionModels)
	}
}
