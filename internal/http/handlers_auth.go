package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/ports"
	"github.com/buswatch/buswatch-api/internal/service"
)

const (
	sessionCookieName  = "session_id"
	rememberCookieName = "remember_email"

	// rememberCookieMaxAge keeps the prefilled email for 30 days.
	rememberCookieMaxAge = 30 * 24 * 60 * 60
)

// AuthSessionReader is the subset of the auth service the middleware needs.
type AuthSessionReader interface {
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
}

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	Login(ctx context.Context, creds ports.Credentials) (*service.LoginResult, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// loginRequest is the POST /api/auth/login body.
type loginRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	RememberEmail bool   `json:"remember_email"`
}

// Login handles credential sign-in.
// POST /api/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Login(r.Context(), ports.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	h.setSessionCookie(w, r, result.Session)
	h.setRememberCookie(w, r, req)

	WriteJSON(w, http.StatusOK, map[string]any{
		"user":       identityPayload(result.Identity),
		"expires_at": result.Session.ExpiresAt,
	})
}

// writeLoginError maps login failures onto responses without leaking which
// emails exist.
func (h *AuthHandlers) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEmailOrPassword):
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "invalid_credentials",
			Err:     service.ErrInvalidEmailOrPassword,
		})
	case errors.Is(err, service.ErrAccountNotProvisioned):
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "account_not_provisioned",
			Err:     service.ErrAccountNotProvisioned,
		})
	case errors.Is(err, service.ErrAuthUnavailable):
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "auth_unavailable",
			Err:     service.ErrAuthUnavailable,
		})
	default:
		h.logger().ErrorContext(r.Context(), "login failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "login_failed",
			Err:     errors.New("login failed"),
		})
	}
}

// Logout tears down the current session.
// POST /api/auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionCookie, err := r.Cookie(sessionCookieName); err == nil {
		if logoutErr := h.Svc.Logout(r.Context(), sessionCookie.Value); logoutErr != nil {
			// The client-side session is cleared regardless.
			h.logger().WarnContext(r.Context(), "logout failed", "error", logoutErr)
		}
	}

	h.clearCookie(w, r, sessionCookieName)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// Status returns the current authentication status.
// GET /api/auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	rememberedEmail := ""
	if c, err := r.Cookie(rememberCookieName); err == nil {
		if v, decodeErr := url.QueryUnescape(c.Value); decodeErr == nil {
			rememberedEmail = v
		}
	}

	sessionCookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{
			"authenticated":    false,
			"remembered_email": rememberedEmail,
		})
		return
	}

	session, err := h.Svc.GetSession(r.Context(), sessionCookie.Value)
	if err != nil {
		// Session is invalid or expired, clear the cookie
		h.clearCookie(w, r, sessionCookieName)
		WriteJSON(w, http.StatusOK, map[string]any{
			"authenticated":    false,
			"remembered_email": rememberedEmail,
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated":    true,
		"user":             identityPayload(session.Identity()),
		"expires_at":       session.ExpiresAt,
		"remembered_email": rememberedEmail,
	})
}

// identityPayload shapes an identity for JSON responses.
func identityPayload(id domainauth.Identity) map[string]any {
	payload := map[string]any{
		"id":    id.ID,
		"name":  id.Name,
		"email": id.Email,
		"role":  id.Role,
	}
	if id.SchoolID != nil {
		payload["school_id"] = *id.SchoolID
	}
	return payload
}

// clearCookie clears a cookie by setting it to expire immediately.
// It mirrors key attributes (Secure, Path, Domain, SameSite) used when setting cookies
// to maximize compatibility across browsers during deletion.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// setSessionCookie writes the session cookie based on the session's expiry.
func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
	})
}

// setRememberCookie persists or clears the remembered login email.
// Unlike the session cookie it is readable by the frontend, which prefills
// the login form from it.
func (h *AuthHandlers) setRememberCookie(w http.ResponseWriter, r *http.Request, req loginRequest) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	cookie := &http.Cookie{
		Name:     rememberCookieName,
		Path:     "/",
		Domain:   h.CookieDomain,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
	if req.RememberEmail && email != "" {
		cookie.Value = url.QueryEscape(email)
		cookie.MaxAge = rememberCookieMaxAge
	} else {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0).UTC()
	}
	http.SetCookie(w, cookie)
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
