package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func parseConfig(t *testing.T) AppConfig {
	t.Helper()
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("env.Parse() error = %v", err)
	}
	cfg.Sanitize()
	return cfg
}

func TestAppConfig_Defaults(t *testing.T) {
	cfg := parseConfig(t)

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q, want :8080", cfg.HTTP.Addr)
	}
	if cfg.Auth.Mode != AuthModeLocal {
		t.Errorf("Auth.Mode = %q, want local", cfg.Auth.Mode)
	}
	if cfg.Auth.FixtureFallback != "any-failure" {
		t.Errorf("Auth.FixtureFallback = %q, want any-failure", cfg.Auth.FixtureFallback)
	}
	if cfg.Auth.SessionTTL != 8*time.Hour {
		t.Errorf("Auth.SessionTTL = %v, want 8h", cfg.Auth.SessionTTL)
	}
	if cfg.Postgres.Name != "buswatch" {
		t.Errorf("Postgres.Name = %q, want buswatch", cfg.Postgres.Name)
	}
	if !cfg.Postgres.RunMigrationsOnStart {
		t.Error("Postgres.RunMigrationsOnStart should default to true")
	}
	if cfg.Redis.URI != "localhost:6379" {
		t.Errorf("Redis.URI = %q, want localhost:6379", cfg.Redis.URI)
	}
	if cfg.IsDev {
		t.Error("IsDev should default to false")
	}
}

func TestAppConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("AUTH_MODE", "remote")
	t.Setenv("IDP_DISCOVERY_URL", "https://idp.district.example/.well-known/openid-configuration")
	t.Setenv("AUTH_FIXTURE_FALLBACK", "unavailable")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("REDIS_URI", "redis.internal:6379")

	cfg := parseConfig(t)

	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("HTTP.Addr = %q, want :9090", cfg.HTTP.Addr)
	}
	if cfg.Auth.Mode != AuthModeRemote {
		t.Errorf("Auth.Mode = %q, want remote", cfg.Auth.Mode)
	}
	if cfg.Auth.Remote.DiscoveryURL == "" {
		t.Error("Auth.Remote.DiscoveryURL should be set")
	}
	if cfg.Auth.FixtureFallback != "unavailable" {
		t.Errorf("Auth.FixtureFallback = %q, want unavailable", cfg.Auth.FixtureFallback)
	}
	if cfg.Auth.SessionTTL != 30*time.Minute {
		t.Errorf("Auth.SessionTTL = %v, want 30m", cfg.Auth.SessionTTL)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Errorf("Postgres.Host = %q, want db.internal", cfg.Postgres.Host)
	}
	if cfg.Redis.URI != "redis.internal:6379" {
		t.Errorf("Redis.URI = %q, want redis.internal:6379", cfg.Redis.URI)
	}
}

func TestAppConfig_InvalidAuthMode(t *testing.T) {
	t.Setenv("AUTH_MODE", "ldap")

	var cfg AppConfig
	if err := env.Parse(&cfg); err == nil {
		t.Fatal("expected error for invalid AUTH_MODE")
	}
}

func TestAuthConfig_SanitizeNormalizesFallback(t *testing.T) {
	a := AuthConfig{FixtureFallback: "  Any-Failure  "}
	a.Sanitize()
	if a.FixtureFallback != "any-failure" {
		t.Errorf("FixtureFallback = %q, want any-failure", a.FixtureFallback)
	}

	a = AuthConfig{FixtureFallback: "", SessionTTL: -time.Hour}
	a.Sanitize()
	if a.FixtureFallback != "any-failure" {
		t.Errorf("empty FixtureFallback should default to any-failure, got %q", a.FixtureFallback)
	}
	if a.SessionTTL != 8*time.Hour {
		t.Errorf("non-positive SessionTTL should reset to 8h, got %v", a.SessionTTL)
	}
}

func TestHTTPConfig_SanitizeClampsCompression(t *testing.T) {
	tests := []struct {
		name      string
		level     int
		wantLevel int
	}{
		{"below range", 0, 1},
		{"above range", 12, 9},
		{"in range", 6, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := HTTPConfig{CompressionLevel: tt.level, CompressionMinSize: -5}
			h.Sanitize()
			if h.CompressionLevel != tt.wantLevel {
				t.Errorf("CompressionLevel = %d, want %d", h.CompressionLevel, tt.wantLevel)
			}
			if h.CompressionMinSize != 0 {
				t.Errorf("negative CompressionMinSize should clamp to 0, got %d", h.CompressionMinSize)
			}
		})
	}
}

func TestObservabilityMetrics_DisabledWithoutAddress(t *testing.T) {
	m := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "   "}
	m.Sanitize()
	if m.IsEnabled() {
		t.Error("metrics should be disabled when statsd address is blank")
	}
}

func TestAppConfig_DevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")

	cfg := parseConfig(t)
	if !cfg.IsDev {
		t.Error("IsDev should be true when NODE_ENV=development")
	}
}
