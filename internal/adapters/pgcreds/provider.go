package pgcreds

// Package pgcreds provides a local identity provider that verifies
// credentials against bcrypt hashes stored in Postgres. It backs
// deployments that run without an external identity service.

import (
	"context"
	"errors"
	"fmt"

	"github.com/buswatch/buswatch-api/internal/data"
	"github.com/buswatch/buswatch-api/internal/ports"
	"golang.org/x/crypto/bcrypt"
)

// CredentialSource is the subset of the user repository the provider needs.
type CredentialSource interface {
	GetPasswordHash(ctx context.Context, email string) (userID string, hash []byte, err error)
}

// Provider implements ports.IdentityProvider against local credential rows.
type Provider struct {
	creds CredentialSource
}

// NewProvider creates a local credential provider.
func NewProvider(creds CredentialSource) (*Provider, error) {
	if creds == nil {
		return nil, errors.New("credential source is required")
	}
	return &Provider{creds: creds}, nil
}

// SignIn verifies the password against the stored bcrypt hash. An unknown
// email and a wrong password are indistinguishable to the caller.
func (p *Provider) SignIn(ctx context.Context, creds ports.Credentials) (ports.UserHandle, error) {
	if creds.Email == "" || creds.Password == "" {
		return ports.UserHandle{}, fmt.Errorf("%w: email and password are required", ports.ErrInvalidCredentials)
	}

	userID, hash, err := p.creds.GetPasswordHash(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, data.ErrCredentialNotFound) {
			return ports.UserHandle{}, fmt.Errorf("%w: unknown email", ports.ErrInvalidCredentials)
		}
		return ports.UserHandle{}, fmt.Errorf("%w: %v", ports.ErrServiceUnavailable, err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(creds.Password)); err != nil {
		return ports.UserHandle{}, fmt.Errorf("%w: password mismatch", ports.ErrInvalidCredentials)
	}

	return ports.UserHandle{UserID: userID, Email: creds.Email}, nil
}

// SignOut is a no-op for local credentials; there is no provider-side state.
func (p *Provider) SignOut(context.Context, string) error {
	return nil
}

// HashPassword produces a bcrypt hash for credential provisioning.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}
