// Package config reads VIDEOENHANCE_* settings from the environment and optional .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "VIDEOENHANCE_"

// DefaultEnvFiles are loaded by Load when they exist, earlier files win
var DefaultEnvFiles = []string{".env", ".env.local"}

// Config is the application configuration
type Config struct {
	Endpoint          string
	Addr              string
	RequestTimeout    time.Duration
	ValidationTimeout time.Duration
	TickInterval      time.Duration
	SessionKey        []byte
	Secure            bool
	MaxUploadMB       int
}

// Load reads the environment after merging in whichever env files exist. Variables
// already set in the environment are never overridden by a file.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Endpoint:          getEnv("ENDPOINT", ""),
		Addr:              getEnv("ADDR", ":8080"),
		RequestTimeout:    time.Second * time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 600)),
		ValidationTimeout: time.Second * time.Duration(getEnvInt("VALIDATION_TIMEOUT_SECONDS", 5)),
		TickInterval:      time.Second * time.Duration(getEnvInt("TICK_SECONDS", 10)),
		SessionKey:        []byte(getEnv("SESSION_KEY", "")),
		Secure:            getEnvBool("SECURE"),
		MaxUploadMB:       getEnvInt("MAX_UPLOAD_MB", 100),
	}

	if cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("%sMAX_UPLOAD_MB must be positive, got %d", envPrefix, cfg.MaxUploadMB)
	}
	return cfg, nil
}

// MaxUploadBytes is the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string) bool {
	if value, exists := os.LookupEnv(envPrefix + key); exists {
		lower := strings.ToLower(value)
		if lower == "on" || lower == "1" || lower == "true" || lower == "yes" {
			return true
		}
	}
	return false
}
