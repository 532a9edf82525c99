package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
)

// Sentinel errors distinguishing the two primary-path failure modes. The
// authenticator's fallback policy depends on which of these SignIn returns,
// so providers must wrap one of them rather than inventing their own.
var (
	// ErrInvalidCredentials means the identity service was reachable and
	// rejected the email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrServiceUnavailable means the identity service could not be consulted
	// (network failure, 5xx, misconfiguration).
	ErrServiceUnavailable = errors.New("identity service unavailable")

	// ErrSessionNotFound is returned by SessionStore.Get when no live session
	// exists for the given ID (missing, expired, or unreadable).
	ErrSessionNotFound = errors.New("session not found")
)

// Credentials carries a login attempt. Password is opaque to the core; shape
// validation is the provider's concern.
type Credentials struct {
	Email    string
	Password string
}

// UserHandle is the minimal reference an identity service yields on a
// successful sign-in. The full Identity is resolved via ProfileStore.
type UserHandle struct {
	UserID string
	Email  string
}

// IdentityProvider exchanges credentials for a user handle against an
// identity backend.
type IdentityProvider interface {
	// SignIn verifies credentials and returns a handle to the authenticated
	// user. Failures wrap ErrInvalidCredentials or ErrServiceUnavailable.
	SignIn(ctx context.Context, creds Credentials) (UserHandle, error)

	// SignOut tears down any provider-side session state for the user.
	// Errors are logged by callers, never surfaced to the end user.
	SignOut(ctx context.Context, userID string) error
}

// ProfileStore resolves a user handle to a full Identity (name, role, school
// scope). Implementations key on the provider user ID and may fall back to
// the email when the provider's subject is not a local row ID.
type ProfileStore interface {
	FetchProfile(ctx context.Context, handle UserHandle) (domainauth.Identity, error)
}

// SessionStore persists and retrieves user sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// FallbackDirectory holds the fixed demo identities consulted when the
// primary sign-in path fails. Lookup is by email only; the fallback accepts
// any password by design of the demo environment.
type FallbackDirectory interface {
	LookupByEmail(email string) (domainauth.Identity, bool)
}
