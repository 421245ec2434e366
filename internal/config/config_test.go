package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "port: \"8080\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("unexpected port: %q", cfg.Port)
	}
	if cfg.UploadsDir != "uploads" {
		t.Fatalf("expected uploads dir default, got %q", cfg.UploadsDir)
	}
}

func TestLoadRequiresPort(t *testing.T) {
	path := writeConfig(t, "logLevel: debug\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected missing port to fail")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "port: \"8080\"\nredisAddr: \"file:6379\"\n")
	t.Setenv("REDIS_ADDR", "env:6379")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RedisAddr != "env:6379" {
		t.Fatalf("expected env override, got %q", cfg.RedisAddr)
	}
}

func TestLoadLogLevelEnvOverride(t *testing.T) {
	path := writeConfig(t, "port: \"8080\"\nlogLevel: info\n")
	t.Setenv("LOG_LEVEL", "debug")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected env override, got %q", cfg.LogLevel)
	}
}

func TestLoadAllowedOriginsEnvOverride(t *testing.T) {
	path := writeConfig(t, "port: \"8080\"\nallowedOrigins:\n  - \"https://file.example\"\n")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 ||
		cfg.AllowedOrigins[0] != "https://a.example" ||
		cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("expected env override, got %v", cfg.AllowedOrigins)
	}
}

func TestLoadMinioRequiresBucket(t *testing.T) {
	path := writeConfig(t, "port: \"8080\"\nminioEndpoint: \"minio:9000\"\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected missing bucket to fail")
	}
}

func TestParseSessionTTL(t *testing.T) {
	ttl, err := ParseSessionTTL("")
	if err != nil || ttl != 24*time.Hour {
		t.Fatalf("default ttl: %v %v", ttl, err)
	}
	ttl, err = ParseSessionTTL("30m")
	if err != nil || ttl != 30*time.Minute {
		t.Fatalf("parsed ttl: %v %v", ttl, err)
	}
	if _, err := ParseSessionTTL("-5m"); err == nil {
		t.Fatalf("expected negative ttl to fail")
	}
	if _, err := ParseSessionTTL("bogus"); err == nil {
		t.Fatalf("expected invalid ttl to fail")
	}
}
