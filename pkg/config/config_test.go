package config

import (
	"os"
	"testing"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.QueueCapacity != 1_000_000 {
		t.Errorf("expected default QueueCapacity 1000000, got %d", cfg.QueueCapacity)
	}
	if cfg.SnapshotDepth != 10 {
		t.Errorf("expected default SnapshotDepth 10, got %d", cfg.SnapshotDepth)
	}
	if cfg.SnapshotFlushMS != 10 {
		t.Errorf("expected default SnapshotFlushMS 10, got %d", cfg.SnapshotFlushMS)
	}
	if cfg.MbpLogPath != "final_mbp.json" {
		t.Errorf("expected default MbpLogPath final_mbp.json, got %q", cfg.MbpLogPath)
	}
}

func TestLoadFromEnv_OverridesFromEnvironment(t *testing.T) {
	os.Setenv("SNAPSHOT_DEPTH", "25")
	os.Setenv("STORAGE_MODE", "console")
	t.Cleanup(func() {
		os.Unsetenv("SNAPSHOT_DEPTH")
		os.Unsetenv("STORAGE_MODE")
	})

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.SnapshotDepth != 25 {
		t.Errorf("expected SnapshotDepth 25, got %d", cfg.SnapshotDepth)
	}
	if cfg.StorageMode != "console" {
		t.Errorf("expected StorageMode console, got %q", cfg.StorageMode)
	}
}

func TestConfig_Validate_RejectsUnknownStorageMode(t *testing.T) {
	cfg := &Config{
		InputPath: "x", Symbol: "X", QueueCapacity: 1, SnapshotBatch: 1,
		SnapshotFlushMS: 1, SnapshotDepth: 1, StorageMode: "mysql", ServerAddr: "127.0.0.1:8080",
		DatabaseURL: "postgres://x/orderbook_snapshots",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown storage mode")
	}
}

func TestConfig_Validate_WarnsButAllowsMismatchedDatabaseName(t *testing.T) {
	cfg := &Config{
		InputPath: "x", Symbol: "X", QueueCapacity: 1, SnapshotBatch: 1,
		SnapshotFlushMS: 1, SnapshotDepth: 1, StorageMode: "postgres", ServerAddr: "127.0.0.1:8080",
		DatabaseURL: "postgres://x/some_other_db",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestLoadTCPReplayFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadTCPReplayFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.BindAddr != "127.0.0.1:9090" {
		t.Errorf("expected default bind addr, got %q", cfg.BindAddr)
	}
	if cfg.BatchSize != 1000 {
		t.Errorf("expected default batch size 1000, got %d", cfg.BatchSize)
	}
	if !cfg.Preencode {
		t.Errorf("expected preencode to default true")
	}
}
