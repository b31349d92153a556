package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.WatchNodeID != "double_your_btc_result" {
		t.Errorf("WatchNodeID = %q", cfg.WatchNodeID)
	}
	if cfg.AutoRollDelayMin != 5*time.Second || cfg.AutoRollDelayMax != 10*time.Second {
		t.Errorf("auto-roll delay = [%v, %v]", cfg.AutoRollDelayMin, cfg.AutoRollDelayMax)
	}
	if cfg.MultiplyDelayMin != 3*time.Second || cfg.MultiplyDelayMax != 7*time.Second {
		t.Errorf("multiply delay = [%v, %v]", cfg.MultiplyDelayMin, cfg.MultiplyDelayMax)
	}
	if cfg.KafkaEnabled() {
		t.Error("kafka should be disabled without brokers")
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Errorf("no foreign origins should be allowed by default, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
port: "9090"
redis_url: redis://localhost:6379/0
kafka:
  brokers: [kafka-1:9092, kafka-2:9092]
  results_topic: results
autoroll:
  delay_min_ms: 100
  delay_max_ms: 200
cors:
  allowed_origins: [https://faucet.example]
log:
  format: text
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("env should override file, Port = %q", cfg.Port)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if !cfg.KafkaEnabled() || len(cfg.KafkaBrokers) != 2 {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.AutoRollDelayMin != 100*time.Millisecond || cfg.AutoRollDelayMax != 200*time.Millisecond {
		t.Errorf("auto-roll delay = [%v, %v]", cfg.AutoRollDelayMin, cfg.AutoRollDelayMax)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "https://faucet.example" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.LogFormat != "text" || cfg.Level() != slog.LevelDebug {
		t.Errorf("log = %s/%v", cfg.LogFormat, cfg.Level())
	}
}

func TestLoad_EmptyWatchNodeInFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`watch_node_id: ""`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WatchNodeID != "" {
		t.Errorf("WatchNodeID = %q, want empty", cfg.WatchNodeID)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("AUTOROLL_DELAY_MIN", "soon")
	t.Setenv("MULTIPLY_DELAY_MIN", "9000")
	t.Setenv("MULTIPLY_DELAY_MAX", "4000")
	t.Setenv("LOG_FORMAT", "xml")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("KAFKA_BROKERS", " a:9092 , ,b:9092")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AutoRollDelayMin != 5*time.Second {
		t.Errorf("AutoRollDelayMin = %v", cfg.AutoRollDelayMin)
	}
	if cfg.MultiplyDelayMin != 4*time.Second || cfg.MultiplyDelayMax != 9*time.Second {
		t.Errorf("inverted range not swapped: [%v, %v]", cfg.MultiplyDelayMin, cfg.MultiplyDelayMax)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q", cfg.LogFormat)
	}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("Level = %v", cfg.Level())
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
