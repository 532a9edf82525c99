package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/buswatch/buswatch-api/config"
	"github.com/buswatch/buswatch-api/internal/adapters/pgcreds"
	"github.com/buswatch/buswatch-api/internal/data"
	"github.com/buswatch/buswatch-api/internal/observability/statsd"
	"github.com/buswatch/buswatch-api/internal/service"
	"github.com/redis/go-redis/v9"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Audit   *service.AuditService
	Reports *service.ReportService
	Users   *service.UserService
	Schools *service.SchoolService
	Auth    *service.AuthService
	Metrics *statsd.Client
}

// BuildServicesConfig contains dependencies for service construction.
type BuildServicesConfig struct {
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Config      *config.AppConfig
	// FixtureSchoolID scopes the demo fallback accounts to a school.
	FixtureSchoolID string
	Logger          *slog.Logger
}

// BuildServices wires repositories and services from the open connections.
func BuildServices(cfg BuildServicesConfig) (ServiceContainer, error) {
	if cfg.DB == nil {
		return ServiceContainer{}, fmt.Errorf("database connection is required")
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := statsd.NewClient(statsd.Config{
		Enabled: appCfg.Observability.Metrics.IsEnabled(),
		Address: appCfg.Observability.Metrics.StatsdAddress,
		Prefix:  appCfg.Observability.Metrics.StatsdPrefix,
		Logger:  logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create metrics client: %w", err)
	}

	auditRepo := data.NewAuditRepo(cfg.DB)
	reportRepo := data.NewReportRepo(cfg.DB)
	userRepo := data.NewUserRepo(cfg.DB)
	schoolRepo := data.NewSchoolRepo(cfg.DB)

	auditSvc := service.NewAuditService(service.AuditServiceOptions{Repo: auditRepo})

	container := ServiceContainer{
		Audit: auditSvc,
		Reports: service.NewReportService(service.ReportServiceOptions{
			Reports: reportRepo,
			Audit:   auditSvc,
			Logger:  logger,
		}),
		Users: service.NewUserService(service.UserServiceOptions{
			Users:  userRepo,
			Hasher: pgcreds.HashPassword,
			Audit:  auditSvc,
			Logger: logger,
		}),
		Schools: service.NewSchoolService(service.SchoolServiceOptions{
			Schools: schoolRepo,
			Audit:   auditSvc,
			Logger:  logger,
		}),
		Metrics: metrics,
	}

	container.Auth = BuildAuthService(AuthConfig{
		Auth:            appCfg.Auth,
		Users:           userRepo,
		RedisClient:     cfg.RedisClient,
		FixtureSchoolID: cfg.FixtureSchoolID,
		Logger:          logger,
	})

	return container, nil
}
