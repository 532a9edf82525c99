package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeRemote verifies credentials against the district identity
	// service over OIDC.
	AuthModeRemote AuthMode = "remote"
	// AuthModeLocal verifies credentials against password hashes stored in
	// the application database.
	AuthModeLocal AuthMode = "local"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "remote", "local":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: remote, local)", v)
	}
}

// RemoteAuthConfig contains OIDC configuration for the district identity
// service (used when Mode=remote).
type RemoteAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"buswatch"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"buswatch"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	RevokeURL    string `env:"REVOKE_URL"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which credential verifier backs the primary sign-in path.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"local"`

	// Remote configuration (used when Mode=remote).
	Remote RemoteAuthConfig `envPrefix:"IDP_"`

	// FixtureFallback controls when sign-in falls back to the built-in demo
	// directory: "off", "unavailable", or "any-failure".
	FixtureFallback string `env:"AUTH_FIXTURE_FALLBACK" envDefault:"any-failure"`

	// SessionTTL is how long issued sessions stay valid.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"8h"`
}

// Sanitize applies guardrails to authentication configuration values.
func (a *AuthConfig) Sanitize() {
	a.FixtureFallback = strings.ToLower(strings.TrimSpace(a.FixtureFallback))
	if a.FixtureFallback == "" {
		a.FixtureFallback = "any-failure"
	}
	if a.SessionTTL <= 0 {
		a.SessionTTL = 8 * time.Hour
	}
}
