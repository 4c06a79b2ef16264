package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.HTTPPort != 3000 {
		t.Errorf("HTTPPort = %d, want 3000", cfg.HTTPPort)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}
	if cfg.SyncInterval != 30*time.Second {
		t.Errorf("SyncInterval = %v, want 30s", cfg.SyncInterval)
	}
	if cfg.SyncBatchSize != 10 {
		t.Errorf("SyncBatchSize = %d, want 10", cfg.SyncBatchSize)
	}
	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("GeminiModel = %q", cfg.GeminiModel)
	}
}

func TestNewEnvOverrides(t *testing.T) {
	t.Setenv("MEETSYNC_HTTP_PORT", "8081")
	t.Setenv("MEETSYNC_REDIS_ADDR", "localhost:6380")
	t.Setenv("MEETSYNC_CACHE_TTL", "90s")
	t.Setenv("MEETSYNC_SYNC_BATCH_SIZE", "25")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.HTTPPort != 8081 {
		t.Errorf("HTTPPort = %d, want 8081", cfg.HTTPPort)
	}
	if cfg.RedisAddr != "localhost:6380" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Errorf("CacheTTL = %v, want 90s", cfg.CacheTTL)
	}
	if cfg.SyncBatchSize != 25 {
		t.Errorf("SyncBatchSize = %d, want 25", cfg.SyncBatchSize)
	}
}

func TestResolveDefaultsRejectsBadEnvironment(t *testing.T) {
	cfg := &Config{Environment: "staging"}
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatal("expected error for unsupported environment")
	}
}

func TestResolveDefaultsNormalizesZeroValues(t *testing.T) {
	cfg := &Config{Environment: EnvTesting}
	if err := cfg.ResolveDefaults(); err != nil {
		t.Fatalf("ResolveDefaults: %v", err)
	}
	if cfg.SyncBatchSize != 10 || cfg.SyncInterval != 30*time.Second || cfg.CacheTTL != 5*time.Minute {
		t.Errorf("zero values not normalized: %+v", cfg)
	}
}
