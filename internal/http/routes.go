package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth         AuthServiceInterface
	Reports      *service.ReportService
	Users        *service.UserService
	Schools      *service.SchoolService
	Audit        *service.AuditService
	CookieDomain string
	Logger       *slog.Logger // Logger for auth and HTTP errors (optional)
}

// NewRouter creates and configures a new HTTP router with browser middleware.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	reportHandlers := &ReportHandlers{Svc: services.Reports}
	userHandlers := &UserHandlers{Svc: services.Users}
	schoolHandlers := &SchoolHandlers{Svc: services.Schools}
	auditHandlers := &AuditHandlers{Svc: services.Audit}
	var authHandlers *AuthHandlers
	if services.Auth != nil {
		authHandlers = &AuthHandlers{Svc: services.Auth, CookieDomain: services.CookieDomain, Logger: services.Logger}
	}

	if authHandlers != nil {
		registerAuthRoutes(mux, authHandlers)
	}
	registerReportRoutes(mux, reportHandlers, services.Auth)
	registerUserRoutes(mux, userHandlers, services.Auth)
	registerSchoolRoutes(mux, schoolHandlers, services.Auth)
	registerAuditRoutes(mux, auditHandlers, services.Auth)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return BrowserDetection()(mux)
}

// guardFor returns a nil-safe middleware factory: routes are left open when no
// auth service is wired (tests exercising handlers directly).
func guardFor(auth AuthSessionReader) func(roles ...domainauth.Role) func(http.Handler) http.Handler {
	return func(roles ...domainauth.Role) func(http.Handler) http.Handler {
		if auth == nil {
			return func(h http.Handler) http.Handler { return h }
		}
		return RequireRoles(auth, roles...)
	}
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/status", h.Status)
}

func registerReportRoutes(mux *http.ServeMux, h *ReportHandlers, auth AuthServiceInterface) {
	guard := guardFor(auth)
	anyAuthenticated := guard()
	driverOnly := guard(domainauth.RoleDriver)
	triage := guard(domainauth.RoleSchoolAdmin, domainauth.RoleSuperAdmin)
	superOnly := guard(domainauth.RoleSuperAdmin)

	mux.Handle("POST /api/reports", driverOnly(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/reports", anyAuthenticated(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/reports/{id}", anyAuthenticated(http.HandlerFunc(h.GetByID)))
	mux.Handle("PUT /api/reports/{id}/status", triage(http.HandlerFunc(h.UpdateStatus)))
	mux.Handle("POST /api/reports/{id}/comments", triage(http.HandlerFunc(h.AddComment)))
	mux.Handle("DELETE /api/reports/{id}", superOnly(http.HandlerFunc(h.Delete)))
}

func registerUserRoutes(mux *http.ServeMux, h *UserHandlers, auth AuthServiceInterface) {
	superOnly := guardFor(auth)(domainauth.RoleSuperAdmin)

	registerCRUD(mux, crudRoutes{
		Base:       "/api/users",
		Create:     h.Create,
		List:       h.List,
		GetByID:    h.GetByID,
		Update:     h.Update,
		Delete:     h.Delete,
		Middleware: superOnly,
	})
	mux.Handle("POST /api/users/{id}/reset-password", superOnly(http.HandlerFunc(h.ResetPassword)))
}

func registerSchoolRoutes(mux *http.ServeMux, h *SchoolHandlers, auth AuthServiceInterface) {
	guard := guardFor(auth)
	anyAuthenticated := guard()
	superOnly := guard(domainauth.RoleSuperAdmin)

	mux.Handle("POST /api/schools", superOnly(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/schools", anyAuthenticated(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/schools/{id}", anyAuthenticated(http.HandlerFunc(h.GetByID)))
	mux.Handle("PUT /api/schools/{id}", superOnly(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/schools/{id}", superOnly(http.HandlerFunc(h.Delete)))
}

func registerAuditRoutes(mux *http.ServeMux, h *AuditHandlers, auth AuthServiceInterface) {
	superOnly := guardFor(auth)(domainauth.RoleSuperAdmin)
	mux.Handle("GET /api/audit", superOnly(http.HandlerFunc(h.List)))
}

// registerCRUD registers standard CRUD routes for a resource base path, applying mw if non-nil.
type crudRoutes struct {
	Base       string
	Create     http.HandlerFunc
	List       http.HandlerFunc
	GetByID    http.HandlerFunc
	Update     http.HandlerFunc
	Delete     http.HandlerFunc
	Middleware func(http.Handler) http.Handler
}

func registerCRUD(mux *http.ServeMux, cfg crudRoutes) {
	if cfg.Base == "" {
		panic("registerCRUD: Base must not be empty") //nolint:forbidigo // Fail fast during server setup.
	}
	if cfg.Create == nil ||
		cfg.List == nil ||
		cfg.GetByID == nil ||
		cfg.Update == nil ||
		cfg.Delete == nil {
		panic("registerCRUD: nil handler for base " + cfg.Base) //nolint:forbidigo // Fail fast during server setup.
	}

	wrap := func(h http.HandlerFunc) http.Handler {
		if cfg.Middleware != nil {
			return cfg.Middleware(h)
		}
		return h
	}
	mux.Handle("POST "+cfg.Base, wrap(cfg.Create))
	mux.Handle("GET "+cfg.Base, wrap(cfg.List))
	mux.Handle("GET "+cfg.Base+"/{id}", wrap(cfg.GetByID))
	mux.Handle("PUT "+cfg.Base+"/{id}", wrap(cfg.Update))
	mux.Handle("DELETE "+cfg.Base+"/{id}", wrap(cfg.Delete))
}
