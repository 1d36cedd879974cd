package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// clearEnv unsets every variable Config reads, restoring them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONSENTD_ADDR", "CONSENTD_PUBLIC_URL", "CONSENTD_LOG_LEVEL", "CONSENTD_LOG_FORMAT",
		"CONSENTD_CACHE", "CONSENTD_CACHE_SIZE", "CONSENTD_CACHE_TTL", "REDIS_ADDR",
		"CONSENTD_AUTH_ISSUER", "CONSENTD_AUTH_JWKS_URL", "CONSENTD_AUTH_AUDIENCES",
		"CONSENTD_AUTH_SCOPES", "CONSENTD_AUTH_ANY_SCOPE", "CONSENTD_AUTH_REALM",
		"CONSENTD_MAX_BODY_BYTES", "CONSENTD_SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := loadConfig("", nil)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	want := &Config{
		Addr:            ":8080",
		PublicURL:       "http://localhost:8080/rpc",
		LogLevel:        "info",
		LogFormat:       "text",
		Cache:           "memory",
		CacheSize:       1024,
		CacheTTL:        10 * time.Minute,
		RedisAddr:       "localhost:6379",
		MaxBodyBytes:    1 << 20,
		ShutdownTimeout: 10 * time.Second,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.AuthEnabled() {
		t.Fatalf("auth should be disabled by default")
	}
}

func TestLoadConfig_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONSENTD_CACHE", "none")
	t.Setenv("CONSENTD_CACHE_TTL", "90s")
	t.Setenv("CONSENTD_AUTH_ISSUER", "https://issuer.example")
	t.Setenv("CONSENTD_AUTH_SCOPES", "consent:read;consent:write")

	cfg, err := loadConfig("", nil)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Cache != "none" || cfg.CacheTTL != 90*time.Second {
		t.Fatalf("unexpected cache settings %q %v", cfg.Cache, cfg.CacheTTL)
	}
	if diff := cmp.Diff([]string{"consent:read", "consent:write"}, cfg.AuthScopes); diff != "" {
		t.Fatalf("scopes mismatch (-want +got):\n%s", diff)
	}
	// Audiences fall back to the public URL.
	if diff := cmp.Diff([]string{"http://localhost:8080/rpc"}, cfg.AuthAudiences); diff != "" {
		t.Fatalf("audiences mismatch (-want +got):\n%s", diff)
	}
	if !cfg.AuthEnabled() {
		t.Fatalf("auth should be enabled")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"log level", map[string]string{"CONSENTD_LOG_LEVEL": "loud"}, "CONSENTD_LOG_LEVEL must be one of [debug info warn error]"},
		{"cache kind", map[string]string{"CONSENTD_CACHE": "disk"}, "CONSENTD_CACHE must be one of"},
		{"public url", map[string]string{"CONSENTD_PUBLIC_URL": "ftp://x/rpc"}, "CONSENTD_PUBLIC_URL must be an http(s) URL"},
		{"jwks without issuer", map[string]string{"CONSENTD_AUTH_JWKS_URL": "https://issuer.example/jwks"}, "CONSENTD_AUTH_ISSUER is required when a JWKS URL is set"},
		{"scopes without issuer", map[string]string{"CONSENTD_AUTH_SCOPES": "a"}, "CONSENTD_AUTH_ISSUER is required when scopes are set"},
		{"cache size", map[string]string{"CONSENTD_CACHE_SIZE": "0"}, "CONSENTD_CACHE_SIZE"},
		{"malformed duration", map[string]string{"CONSENTD_CACHE_TTL": "soon"}, "decode environment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig("", nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("want error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfig_FlagsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONSENTD_CACHE", "redis")
	t.Setenv("CONSENTD_ADDR", ":9000")

	cmd := newServeCmd()
	if err := cmd.Flags().Parse([]string{"--cache=none", "--auth-issuer=https://issuer.example", "--auth-audience=a,b"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := loadConfig("", cmd.Flags())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Cache != "none" {
		t.Fatalf("flag should override env, got cache %q", cfg.Cache)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("unset flag should keep env value, got %q", cfg.Addr)
	}
	if diff := cmp.Diff([]string{"a", "b"}, cfg.AuthAudiences); diff != "" {
		t.Fatalf("audiences mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "consentd.env")
	if err := os.WriteFile(path, []byte("CONSENTD_CACHE_TTL=1m\nCONSENTD_LOG_FORMAT=json\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := loadConfig(path, nil)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.CacheTTL != time.Minute || cfg.LogFormat != "json" {
		t.Fatalf("env file not applied: %+v", cfg)
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"), nil); err != nil {
		t.Fatalf("missing env file should be ignored, got %v", err)
	}
}
