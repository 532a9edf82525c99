package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"strings"
	"sync"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider  = (*MockIdentityProvider)(nil)
	_ ports.ProfileStore      = (*StaticProfileStore)(nil)
	_ ports.SessionStore      = (*MemorySessionStore)(nil)
	_ ports.FallbackDirectory = (*StaticFallbackDirectory)(nil)
)

// MockIdentityProvider simulates an identity service for tests.
// With no SignInFunc set it accepts Accounts entries whose password matches.
type MockIdentityProvider struct {
	SignInFunc  func(ctx context.Context, creds ports.Credentials) (ports.UserHandle, error)
	SignOutFunc func(ctx context.Context, userID string) error

	// Accounts maps email -> password for the default SignIn behavior.
	Accounts map[string]string

	// SignOutCalls records the user IDs passed to SignOut.
	SignOutCalls []string
}

// NewMockIdentityProvider creates a provider with a single known account.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{
		Accounts: map[string]string{"mock.user@example.com": "hunter22"},
	}
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, creds ports.Credentials) (ports.UserHandle, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, creds)
	}
	email := strings.ToLower(creds.Email)
	password, ok := m.Accounts[email]
	if !ok || password != creds.Password {
		return ports.UserHandle{}, ports.ErrInvalidCredentials
	}
	return ports.UserHandle{UserID: "idp-" + email, Email: email}, nil
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, userID string) error {
	m.SignOutCalls = append(m.SignOutCalls, userID)
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, userID)
	}
	return nil
}

// StaticProfileStore resolves profiles from a fixed identity set.
type StaticProfileStore struct {
	// ByUserID and ByEmail hold the known identities.
	ByUserID map[string]domainauth.Identity
	ByEmail  map[string]domainauth.Identity

	// Err, when set, is returned from every FetchProfile call.
	Err error
}

// NewStaticProfileStore creates an empty profile store.
func NewStaticProfileStore() *StaticProfileStore {
	return &StaticProfileStore{
		ByUserID: make(map[string]domainauth.Identity),
		ByEmail:  make(map[string]domainauth.Identity),
	}
}

// Add registers an identity under both its ID and email.
func (s *StaticProfileStore) Add(id domainauth.Identity) {
	s.ByUserID[id.ID] = id
	s.ByEmail[strings.ToLower(id.Email)] = id
}

func (s *StaticProfileStore) FetchProfile(_ context.Context, handle ports.UserHandle) (domainauth.Identity, error) {
	if s.Err != nil {
		return domainauth.Identity{}, s.Err
	}
	if id, ok := s.ByUserID[handle.UserID]; ok {
		return id, nil
	}
	if id, ok := s.ByEmail[strings.ToLower(handle.Email)]; ok {
		return id, nil
	}
	return domainauth.Identity{}, errors.New("profile not found")
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session

	// SaveErr/DeleteErr, when set, are returned from the matching method.
	SaveErr   error
	DeleteErr error
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.Session),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if id == "" || !ok {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if id == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StaticFallbackDirectory serves fixture identities keyed by email.
type StaticFallbackDirectory struct {
	Identities map[string]domainauth.Identity
}

// NewStaticFallbackDirectory builds a directory from the given identities.
func NewStaticFallbackDirectory(identities ...domainauth.Identity) *StaticFallbackDirectory {
	byEmail := make(map[string]domainauth.Identity, len(identities))
	for _, id := range identities {
		byEmail[strings.ToLower(id.Email)] = id
	}
	return &StaticFallbackDirectory{Identities: byEmail}
}

func (d *StaticFallbackDirectory) LookupByEmail(email string) (domainauth.Identity, bool) {
	id, ok := d.Identities[strings.ToLower(strings.TrimSpace(email))]
	return id, ok
}
