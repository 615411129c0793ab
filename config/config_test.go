package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"ENDPOINT", "ADDR", "REQUEST_TIMEOUT_SECONDS", "VALIDATION_TIMEOUT_SECONDS",
		"TICK_SECONDS", "SESSION_KEY", "SECURE", "MAX_UPLOAD_MB"} {
		t.Setenv(envPrefix+key, "")
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Endpoint != "" {
		t.Errorf("Expected no endpoint, got %q", cfg.Endpoint)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Expected addr :8080, got %q", cfg.Addr)
	}
	if cfg.RequestTimeout != 10*time.Minute {
		t.Errorf("Expected request timeout 10m, got %v", cfg.RequestTimeout)
	}
	if cfg.ValidationTimeout != 5*time.Second {
		t.Errorf("Expected validation timeout 5s, got %v", cfg.ValidationTimeout)
	}
	if cfg.TickInterval != 10*time.Second {
		t.Errorf("Expected tick interval 10s, got %v", cfg.TickInterval)
	}
	if cfg.Secure {
		t.Error("Expected Secure to default to false")
	}
	if cfg.MaxUploadBytes() != 100*1024*1024 {
		t.Errorf("Expected 100 MB upload limit, got %d", cfg.MaxUploadBytes())
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("VIDEOENHANCE_ENDPOINT", "https://enhance.example.com/process")
	t.Setenv("VIDEOENHANCE_ADDR", "127.0.0.1:9000")
	t.Setenv("VIDEOENHANCE_REQUEST_TIMEOUT_SECONDS", "30")
	t.Setenv("VIDEOENHANCE_TICK_SECONDS", "not a number")
	t.Setenv("VIDEOENHANCE_SESSION_KEY", "secret")
	t.Setenv("VIDEOENHANCE_SECURE", "Yes")
	t.Setenv("VIDEOENHANCE_MAX_UPLOAD_MB", "25")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Endpoint != "https://enhance.example.com/process" {
		t.Errorf("Unexpected endpoint %q", cfg.Endpoint)
	}
	if cfg.Addr != "127.0.0.1:9000" {
		t.Errorf("Unexpected addr %q", cfg.Addr)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("Expected 30s, got %v", cfg.RequestTimeout)
	}
	if cfg.TickInterval != 10*time.Second {
		t.Errorf("Expected invalid value to fall back to 10s, got %v", cfg.TickInterval)
	}
	if string(cfg.SessionKey) != "secret" {
		t.Errorf("Unexpected session key %q", cfg.SessionKey)
	}
	if !cfg.Secure {
		t.Error("Expected Secure to be true")
	}
	if cfg.MaxUploadMB != 25 {
		t.Errorf("Expected 25 MB, got %d", cfg.MaxUploadMB)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	t.Setenv("VIDEOENHANCE_ADDR", ":7000")
	// unset so the file can provide it; t.Setenv restores the original afterwards
	t.Setenv("VIDEOENHANCE_ENDPOINT", "")
	os.Unsetenv("VIDEOENHANCE_ENDPOINT")

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "VIDEOENHANCE_ENDPOINT=http://localhost:5000/enhance\nVIDEOENHANCE_ADDR=:6000\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("VIDEOENHANCE_ENDPOINT") })

	if cfg.Endpoint != "http://localhost:5000/enhance" {
		t.Errorf("Expected endpoint from env file, got %q", cfg.Endpoint)
	}
	if cfg.Addr != ":7000" {
		t.Errorf("Expected environment to win over the file, got %q", cfg.Addr)
	}
}

func TestLoad_InvalidUploadLimit(t *testing.T) {
	t.Setenv("VIDEOENHANCE_MAX_UPLOAD_MB", "-1")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("Expected error for negative upload limit, got nil")
	}
}
