package pgprofile

// Package pgprofile resolves authenticated user handles to full identities
// from the users table.

import (
	"context"
	"errors"
	"fmt"

	"github.com/buswatch/buswatch-api/internal/data"
	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	"github.com/buswatch/buswatch-api/internal/ports"
)

// UserSource is the subset of the user repository the store needs.
type UserSource interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// Store implements ports.ProfileStore over the user repository.
type Store struct {
	users UserSource
}

// NewStore creates a profile store.
func NewStore(users UserSource) (*Store, error) {
	if users == nil {
		return nil, errors.New("user source is required")
	}
	return &Store{users: users}, nil
}

// FetchProfile resolves the handle to an Identity. The provider user ID is
// tried first; when the identity service issues its own subjects the email
// is the join key instead.
func (s *Store) FetchProfile(ctx context.Context, handle ports.UserHandle) (domainauth.Identity, error) {
	if handle.UserID != "" {
		user, err := s.users.GetByID(ctx, handle.UserID)
		if err == nil {
			return user.Identity(), nil
		}
		if !errors.Is(err, data.ErrUserNotFound) {
			return domainauth.Identity{}, fmt.Errorf("fetch profile by id: %w", err)
		}
	}

	if handle.Email != "" {
		user, err := s.users.GetByEmail(ctx, handle.Email)
		if err == nil {
			return user.Identity(), nil
		}
		if !errors.Is(err, data.ErrUserNotFound) {
			return domainauth.Identity{}, fmt.Errorf("fetch profile by email: %w", err)
		}
	}

	return domainauth.Identity{}, data.ErrUserNotFound
}
