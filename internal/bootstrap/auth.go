package bootstrap

import (
	"log/slog"

	"github.com/buswatch/buswatch-api/config"
	"github.com/buswatch/buswatch-api/internal/adapters/fixtureauth"
	"github.com/buswatch/buswatch-api/internal/adapters/idp"
	"github.com/buswatch/buswatch-api/internal/adapters/pgcreds"
	"github.com/buswatch/buswatch-api/internal/adapters/pgprofile"
	"github.com/buswatch/buswatch-api/internal/adapters/redisstore"
	"github.com/buswatch/buswatch-api/internal/data"
	"github.com/buswatch/buswatch-api/internal/ports"
	"github.com/buswatch/buswatch-api/internal/service"
	"github.com/redis/go-redis/v9"
)

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Auth        config.AuthConfig
	Users       *data.UserRepo
	RedisClient redis.UniversalClient
	// FixtureSchoolID scopes the demo driver and school-admin fixtures to a
	// school. Empty leaves them unscoped.
	FixtureSchoolID string
	Logger          *slog.Logger
}

// BuildAuthService creates an auth service based on the configured auth mode.
// Returns nil if auth cannot be built from the given configuration.
func BuildAuthService(cfg AuthConfig) *service.AuthService {
	if cfg.RedisClient == nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("auth service disabled: redis client not configured", "mode", cfg.Auth.Mode)
		}
		return nil
	}
	if cfg.Users == nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("auth service disabled: user repository not configured", "mode", cfg.Auth.Mode)
		}
		return nil
	}

	provider := buildIdentityProvider(cfg)
	if provider == nil {
		return nil
	}

	profiles, err := pgprofile.NewStore(cfg.Users)
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("failed to create profile store, auth disabled", "error", err)
		}
		return nil
	}

	var policy service.FallbackPolicy
	if err := policy.UnmarshalText([]byte(cfg.Auth.FixtureFallback)); err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("invalid fixture fallback policy, using default",
				"value", cfg.Auth.FixtureFallback, "default", service.FallbackAnyFailure)
		}
		policy = service.FallbackAnyFailure
	}

	var fallback ports.FallbackDirectory
	if policy != service.FallbackOff {
		fallback = fixtureauth.NewDemoDirectory(cfg.FixtureSchoolID)
	}

	return service.NewAuthService(service.AuthServiceOptions{
		Provider:   provider,
		Profiles:   profiles,
		Sessions:   redisstore.NewSessionStore(cfg.RedisClient),
		Fallback:   fallback,
		Policy:     policy,
		SessionTTL: cfg.Auth.SessionTTL,
		Logger:     cfg.Logger,
	})
}

//nolint:ireturn // the provider is injected behind the IdentityProvider port.
func buildIdentityProvider(cfg AuthConfig) ports.IdentityProvider {
	switch cfg.Auth.Mode {
	case config.AuthModeRemote:
		remote := cfg.Auth.Remote
		if remote.DiscoveryURL == "" || remote.ClientID == "" || remote.ClientSecret == "" {
			if cfg.Logger != nil {
				cfg.Logger.Warn("AuthModeRemote selected but required config missing; auth disabled",
					"discovery_url_empty", remote.DiscoveryURL == "",
					"client_id_empty", remote.ClientID == "",
					"client_secret_empty", remote.ClientSecret == "",
				)
			}
			return nil
		}

		prov, err := idp.NewProvider(idp.ProviderConfig{
			ClientID:     remote.ClientID,
			ClientSecret: remote.ClientSecret,
			Scope:        remote.Scope,
			DiscoveryURL: remote.DiscoveryURL,
			RevokeURL:    remote.RevokeURL,
		})
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("failed to create remote identity provider, auth disabled", "error", err)
			}
			return nil
		}
		return prov

	case config.AuthModeLocal:
		prov, err := pgcreds.NewProvider(cfg.Users)
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("failed to create local credential provider, auth disabled", "error", err)
			}
			return nil
		}
		return prov

	default:
		if cfg.Logger != nil {
			cfg.Logger.Warn("unknown auth mode, auth disabled", "mode", cfg.Auth.Mode)
		}
		return nil
	}
}
