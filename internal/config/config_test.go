package config

import (
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"SERVER_PORT":             "8080",
		"SERVER_HOST":             "0.0.0.0",
		"SERVER_BASE_URL":         "http://localhost:8080",
		"SERVER_READ_TIMEOUT":     "10s",
		"SERVER_WRITE_TIMEOUT":    "10s",
		"SERVER_IDLE_TIMEOUT":     "120s",
		"SERVER_SHUTDOWN_TIMEOUT": "30s",

		"DB_HOST":      "localhost",
		"DB_PORT":      "5432",
		"DB_USER":      "testuser",
		"DB_PASSWORD":  "testpass",
		"DB_NAME":      "testdb",
		"DB_SSLMODE":   "disable",
		"DB_MAX_CONNS": "25",
		"DB_MIN_CONNS": "5",

		"REDIS_ADDR": "localhost:6379",
		"REDIS_DB":   "0",

		"APP_ENV":   "test",
		"LOG_LEVEL": "debug",
	}
}

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for key, value := range env {
		t.Setenv(key, value)
	}
}

func TestLoad_Success(t *testing.T) {
	setEnv(t, baseEnv())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
	}
	if cfg.Server.BaseURL != "http://localhost:8080" {
		t.Errorf("Server.BaseURL = %s, want http://localhost:8080", cfg.Server.BaseURL)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 10s", cfg.Server.ReadTimeout)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %s, want localhost", cfg.Database.Host)
	}
	if cfg.Database.MaxConns != 25 {
		t.Errorf("Database.MaxConns = %d, want 25", cfg.Database.MaxConns)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %s, want localhost:6379", cfg.Redis.Addr)
	}
	if cfg.App.Environment != "test" {
		t.Errorf("App.Environment = %s, want test", cfg.App.Environment)
	}
}

func TestLoad_ShortenerDefaults(t *testing.T) {
	setEnv(t, baseEnv())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Shortener.CodeLength != 6 {
		t.Errorf("Shortener.CodeLength = %d, want 6", cfg.Shortener.CodeLength)
	}
	if cfg.Shortener.MaxGenerationRetries != 5 {
		t.Errorf("Shortener.MaxGenerationRetries = %d, want 5", cfg.Shortener.MaxGenerationRetries)
	}
	if !cfg.Shortener.AllowAnonymous {
		t.Error("Shortener.AllowAnonymous = false, want true by default")
	}
	if cfg.Shortener.CacheTTL != time.Hour {
		t.Errorf("Shortener.CacheTTL = %v, want 1h", cfg.Shortener.CacheTTL)
	}
	if cfg.Cleanup.Interval != 24*time.Hour {
		t.Errorf("Cleanup.Interval = %v, want 24h", cfg.Cleanup.Interval)
	}
	if cfg.Cleanup.UnusedThresholdDays != 90 {
		t.Errorf("Cleanup.UnusedThresholdDays = %d, want 90", cfg.Cleanup.UnusedThresholdDays)
	}
}

func TestLoad_ShortenerOverrides(t *testing.T) {
	env := baseEnv()
	env["CODE_LENGTH"] = "8"
	env["CODE_ALPHABET"] = "abc123"
	env["MAX_GENERATION_RETRIES"] = "3"
	env["ALLOW_ANONYMOUS"] = "false"
	env["CACHE_TTL"] = "30m"
	env["CLEANUP_INTERVAL"] = "1h"
	env["UNUSED_LINKS_THRESHOLD_DAYS"] = "30"
	setEnv(t, env)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Shortener.CodeLength != 8 {
		t.Errorf("Shortener.CodeLength = %d, want 8", cfg.Shortener.CodeLength)
	}
	if cfg.Shortener.CodeAlphabet != "abc123" {
		t.Errorf("Shortener.CodeAlphabet = %s, want abc123", cfg.Shortener.CodeAlphabet)
	}
	if cfg.Shortener.MaxGenerationRetries != 3 {
		t.Errorf("Shortener.MaxGenerationRetries = %d, want 3", cfg.Shortener.MaxGenerationRetries)
	}
	if cfg.Shortener.AllowAnonymous {
		t.Error("Shortener.AllowAnonymous = true, want false")
	}
	if cfg.Shortener.CacheTTL != 30*time.Minute {
		t.Errorf("Shortener.CacheTTL = %v, want 30m", cfg.Shortener.CacheTTL)
	}
	if cfg.Cleanup.Interval != time.Hour {
		t.Errorf("Cleanup.Interval = %v, want 1h", cfg.Cleanup.Interval)
	}
	if cfg.Cleanup.UnusedThresholdDays != 30 {
		t.Errorf("Cleanup.UnusedThresholdDays = %d, want 30", cfg.Cleanup.UnusedThresholdDays)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	env := baseEnv()
	delete(env, "SERVER_PORT")
	setEnv(t, env)

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for missing SERVER_PORT, got nil")
	}
}

func TestServerConfig_Validate(t *testing.T) {
	valid := ServerConfig{
		Port:            "8080",
		Host:            "0.0.0.0",
		BaseURL:         "http://localhost:8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}

	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr bool
	}{
		{"valid", func(c *ServerConfig) {}, false},
		{"empty port", func(c *ServerConfig) { c.Port = "" }, true},
		{"empty host", func(c *ServerConfig) { c.Host = "" }, true},
		{"empty base URL", func(c *ServerConfig) { c.BaseURL = "" }, true},
		{"zero read timeout", func(c *ServerConfig) { c.ReadTimeout = 0 }, true},
		{"negative write timeout", func(c *ServerConfig) { c.WriteTimeout = -time.Second }, true},
		{"zero shutdown timeout", func(c *ServerConfig) { c.ShutdownTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseConfig_Validate(t *testing.T) {
	valid := DatabaseConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "user",
		Password: "pass",
		Name:     "db",
		SSLMode:  "disable",
		MaxConns: 25,
		MinConns: 5,
	}

	tests := []struct {
		name    string
		mutate  func(*DatabaseConfig)
		wantErr bool
	}{
		{"valid", func(c *DatabaseConfig) {}, false},
		{"empty host", func(c *DatabaseConfig) { c.Host = "" }, true},
		{"invalid ssl mode", func(c *DatabaseConfig) { c.SSLMode = "maybe" }, true},
		{"min greater than max", func(c *DatabaseConfig) { c.MinConns = 50 }, true},
		{"zero max conns", func(c *DatabaseConfig) { c.MaxConns = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestShortenerConfig_Validate(t *testing.T) {
	valid := ShortenerConfig{
		CodeLength:           6,
		MaxGenerationRetries: 5,
		CacheTTL:             time.Hour,
	}

	tests := []struct {
		name    string
		mutate  func(*ShortenerConfig)
		wantErr bool
	}{
		{"valid", func(c *ShortenerConfig) {}, false},
		{"zero code length", func(c *ShortenerConfig) { c.CodeLength = 0 }, true},
		{"code length too large", func(c *ShortenerConfig) { c.CodeLength = 65 }, true},
		{"zero retries", func(c *ShortenerConfig) { c.MaxGenerationRetries = 0 }, true},
		{"zero cache TTL", func(c *ShortenerConfig) { c.CacheTTL = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCleanupConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CleanupConfig
		wantErr bool
	}{
		{"valid", CleanupConfig{Interval: 24 * time.Hour, UnusedThresholdDays: 90}, false},
		{"zero interval", CleanupConfig{Interval: 0, UnusedThresholdDays: 90}, true},
		{"zero threshold", CleanupConfig{Interval: time.Hour, UnusedThresholdDays: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
