package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// FallbackPolicy controls when the fixture directory is consulted after the
// primary sign-in path fails.
type FallbackPolicy string

const (
	// FallbackOff never consults the fixture directory.
	FallbackOff FallbackPolicy = "off"
	// FallbackUnavailable consults fixtures only when the identity service
	// could not be reached.
	FallbackUnavailable FallbackPolicy = "unavailable"
	// FallbackAnyFailure consults fixtures after any primary-path failure,
	// including rejected credentials. This is the demo-friendly default.
	FallbackAnyFailure FallbackPolicy = "any-failure"
)

// Valid reports whether the policy is one of the supported values.
func (p FallbackPolicy) Valid() bool {
	switch p {
	case FallbackOff, FallbackUnavailable, FallbackAnyFailure:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so the policy loads from env.
func (p *FallbackPolicy) UnmarshalText(text []byte) error {
	v := FallbackPolicy(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid fallback policy: %q (valid options: off, unavailable, any-failure)", string(text))
	}
	*p = v
	return nil
}

// Login failure modes surfaced to handlers.
var (
	// ErrInvalidEmailOrPassword is the single user-facing rejection; it does
	// not distinguish unknown email from wrong password.
	ErrInvalidEmailOrPassword = errors.New("invalid email or password")

	// ErrAuthUnavailable means the identity service could not be consulted
	// and no fallback applied.
	ErrAuthUnavailable = errors.New("authentication service unavailable")

	// ErrAccountNotProvisioned means sign-in succeeded but no application
	// profile exists for the account.
	ErrAccountNotProvisioned = errors.New("account is not provisioned")
)

var errSessionExpired = errors.New("session expired")

// IsSessionInvalid reports whether the error from GetSession means the
// caller holds no usable session (missing or expired) rather than a
// backend failure.
func IsSessionInvalid(err error) bool {
	return errors.Is(err, errSessionExpired) || errors.Is(err, ports.ErrSessionNotFound)
}

const defaultSessionTTL = 8 * time.Hour

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider   ports.IdentityProvider
	Profiles   ports.ProfileStore
	Sessions   ports.SessionStore
	Fallback   ports.FallbackDirectory // optional; nil disables fixtures regardless of policy
	Policy     FallbackPolicy
	SessionTTL time.Duration
	Logger     *slog.Logger
}

// AuthService orchestrates the login flow: primary sign-in, profile
// resolution, fixture fallback, and session persistence.
type AuthService struct {
	provider   ports.IdentityProvider
	profiles   ports.ProfileStore
	sessions   ports.SessionStore
	fallback   ports.FallbackDirectory
	policy     FallbackPolicy
	sessionTTL time.Duration
	logger     *slog.Logger

	// loginGroup collapses concurrent identical login attempts into a single
	// provider round trip.
	loginGroup singleflight.Group

	now func() time.Time
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	policy := opts.Policy
	if !policy.Valid() {
		policy = FallbackAnyFailure
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		provider:   opts.Provider,
		profiles:   opts.Profiles,
		sessions:   opts.Sessions,
		fallback:   opts.Fallback,
		policy:     policy,
		sessionTTL: ttl,
		logger:     logger.With("component", "auth"),
		now:        time.Now,
	}
}

// LoginResult contains the result of a login.
type LoginResult struct {
	Session  domainauth.Session
	Identity domainauth.Identity
	// Fallback is true when the session was issued from the fixture
	// directory rather than the primary identity path.
	Fallback bool
}

// Login authenticates the credentials and persists a new session.
//
// The primary path is provider sign-in followed by profile resolution. When
// the primary path fails, the fixture directory is consulted according to
// the configured policy. All rejections surface as ErrInvalidEmailOrPassword
// so callers cannot probe which emails exist.
func (s *AuthService) Login(ctx context.Context, creds ports.Credentials) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || creds.Password == "" {
		return nil, ErrInvalidEmailOrPassword
	}
	creds.Email = email

	// Concurrent retries with the same credentials ride the same flight and
	// share one session instead of racing the provider.
	result, err, _ := s.loginGroup.Do(loginKey(email, creds.Password), func() (any, error) {
		return s.doLogin(ctx, creds)
	})
	if err != nil {
		return nil, err
	}
	res, ok := result.(*LoginResult)
	if !ok {
		return nil, errors.New("unexpected login result type")
	}
	return res, nil
}

func (s *AuthService) doLogin(ctx context.Context, creds ports.Credentials) (*LoginResult, error) {
	identity, usedFallback, err := s.resolveIdentity(ctx, creds)
	if err != nil {
		return nil, err
	}

	session := domainauth.Session{
		ID:        generateSessionID(),
		UserID:    identity.ID,
		Name:      identity.Name,
		Email:     identity.Email,
		Role:      identity.Role,
		SchoolID:  identity.SchoolID,
		ExpiresAt: s.now().Add(s.sessionTTL),
	}
	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}

	s.logger.InfoContext(ctx, "login succeeded",
		"user_id", identity.ID,
		"role", identity.Role,
		"fallback", usedFallback,
	)
	return &LoginResult{Session: session, Identity: identity, Fallback: usedFallback}, nil
}

// resolveIdentity runs the primary path and, when that fails, the fixture
// fallback permitted by policy.
func (s *AuthService) resolveIdentity(
	ctx context.Context,
	creds ports.Credentials,
) (domainauth.Identity, bool, error) {
	handle, signInErr := s.provider.SignIn(ctx, creds)
	if signInErr == nil {
		identity, profileErr := s.profiles.FetchProfile(ctx, handle)
		if profileErr == nil {
			return identity, false, nil
		}
		// Signed in upstream but no local profile. Fixtures may still admit
		// the demo accounts; anything else is a provisioning gap, not a
		// credential problem.
		if fixture, ok := s.lookupFallback(creds.Email, profileErr); ok {
			return fixture, true, nil
		}
		s.logger.WarnContext(ctx, "profile resolution failed", "email", creds.Email, "error", profileErr)
		return domainauth.Identity{}, false, fmt.Errorf("%w: %v", ErrAccountNotProvisioned, profileErr)
	}

	if fixture, ok := s.lookupFallback(creds.Email, signInErr); ok {
		s.logger.InfoContext(ctx, "primary sign-in failed, fixture fallback applied",
			"email", creds.Email,
			"reason", signInErr,
		)
		return fixture, true, nil
	}

	if errors.Is(signInErr, ports.ErrServiceUnavailable) {
		s.logger.ErrorContext(ctx, "identity service unavailable", "error", signInErr)
		return domainauth.Identity{}, false, fmt.Errorf("%w: %v", ErrAuthUnavailable, signInErr)
	}
	return domainauth.Identity{}, false, ErrInvalidEmailOrPassword
}

// lookupFallback consults the fixture directory when the policy admits the
// given primary-path failure.
func (s *AuthService) lookupFallback(email string, cause error) (domainauth.Identity, bool) {
	if s.fallback == nil {
		return domainauth.Identity{}, false
	}
	switch s.policy {
	case FallbackOff:
		return domainauth.Identity{}, false
	case FallbackUnavailable:
		if !errors.Is(cause, ports.ErrServiceUnavailable) {
			return domainauth.Identity{}, false
		}
	case FallbackAnyFailure:
		// any cause admits fallback
	}
	return s.fallback.LookupByEmail(email)
}

// GetSession retrieves a live session by ID. Expired sessions are deleted
// on read.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if s.now().After(session.ExpiresAt) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(errSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, errSessionExpired
	}

	return &session, nil
}

// Logout tears down the session. The local session is always deleted, even
// when the provider-side sign-out fails; that failure is logged only.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil // Nothing to logout
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err == nil && s.provider != nil {
		if signOutErr := s.provider.SignOut(ctx, session.UserID); signOutErr != nil {
			s.logger.WarnContext(ctx, "provider sign-out failed",
				"user_id", session.UserID,
				"error", signOutErr,
			)
		}
	}

	if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
		return fmt.Errorf("delete session: %w", deleteErr)
	}
	return nil
}

// loginKey derives the singleflight key for a credential pair without
// holding the raw password in the group's key map.
func loginKey(email, password string) string {
	sum := sha256.Sum256([]byte(email + "\x00" + password))
	return hex.EncodeToString(sum[:])
}

// generateSessionID creates a cryptographically secure random session ID.
func generateSessionID() string {
	// UUID is URL-safe and has good entropy
	return uuid.New().String()
}
