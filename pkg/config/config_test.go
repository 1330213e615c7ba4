package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.BucketCount != 50 {
		t.Errorf("expected default bucket count 50, got %d", cfg.Engine.BucketCount)
	}
	if cfg.Engine.MaxResults != 5 {
		t.Errorf("expected default max results 5, got %d", cfg.Engine.MaxResults)
	}
	if cfg.RequestQueue.Window != 1440 {
		t.Errorf("expected default window 1440, got %d", cfg.RequestQueue.Window)
	}
	if cfg.Redis.Enabled || cfg.Kafka.Enabled || cfg.Postgres.Enabled {
		t.Errorf("external dependencies must be disabled by default")
	}
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
engine:
  stopWords: [and, in, on]
  bucketCount: 16
  defaultPolicy: par
requestQueue:
  window: 10
redis:
  enabled: true
  cacheTTL: 5s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("SP_ENGINE_MAX_RESULTS", "3")
	t.Setenv("SP_REDIS_ADDR", "cache:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if want := []string{"and", "in", "on"}; !reflect.DeepEqual(cfg.Engine.StopWords, want) {
		t.Errorf("stop words = %v, want %v", cfg.Engine.StopWords, want)
	}
	if cfg.Engine.BucketCount != 16 {
		t.Errorf("bucket count = %d, want 16", cfg.Engine.BucketCount)
	}
	if cfg.Engine.MaxResults != 3 {
		t.Errorf("max results = %d, want 3 from env", cfg.Engine.MaxResults)
	}
	if cfg.Engine.DefaultPolicy != "par" {
		t.Errorf("default policy = %q, want par", cfg.Engine.DefaultPolicy)
	}
	if cfg.RequestQueue.Window != 10 {
		t.Errorf("window = %d, want 10", cfg.RequestQueue.Window)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "cache:6379" || cfg.Redis.CacheTTL != 5*time.Second {
		t.Errorf("unexpected redis config %+v", cfg.Redis)
	}
}

func TestLoadStopWordsFromEnv(t *testing.T) {
	t.Setenv("SP_ENGINE_STOP_WORDS", "и в на")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if want := []string{"и", "в", "на"}; !reflect.DeepEqual(cfg.Engine.StopWords, want) {
		t.Errorf("stop words = %v, want %v", cfg.Engine.StopWords, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero buckets", func(c *Config) { c.Engine.BucketCount = 0 }},
		{"zero max results", func(c *Config) { c.Engine.MaxResults = 0 }},
		{"unknown policy", func(c *Config) { c.Engine.DefaultPolicy = "turbo" }},
		{"zero window", func(c *Config) { c.RequestQueue.Window = 0 }},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadDevelopmentConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Engine.DefaultPolicy != "seq" {
		t.Errorf("unexpected server/engine config %+v %+v", cfg.Server, cfg.Engine)
	}
	if cfg.Kafka.Topics.DocumentIngest != "document-ingest" {
		t.Errorf("ingest topic = %q", cfg.Kafka.Topics.DocumentIngest)
	}
	if cfg.Postgres.SnapshotInterval != time.Minute {
		t.Errorf("snapshot interval = %v, want 1m", cfg.Postgres.SnapshotInterval)
	}
}
