package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/ports"
)

func TestMockIdentityProvider_Defaults(t *testing.T) {
	provider := NewMockIdentityProvider()
	ctx := context.Background()

	handle, err := provider.SignIn(ctx, ports.Credentials{
		Email:    "mock.user@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, "idp-mock.user@example.com", handle.UserID)
	assert.Equal(t, "mock.user@example.com", handle.Email)

	_, err = provider.SignIn(ctx, ports.Credentials{
		Email:    "mock.user@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ports.ErrInvalidCredentials)

	_, err = provider.SignIn(ctx, ports.Credentials{
		Email:    "stranger@example.com",
		Password: "hunter22",
	})
	assert.ErrorIs(t, err, ports.ErrInvalidCredentials)
}

func TestMockIdentityProvider_Overrides(t *testing.T) {
	provider := &MockIdentityProvider{
		SignInFunc: func(_ context.Context, _ ports.Credentials) (ports.UserHandle, error) {
			return ports.UserHandle{}, ports.ErrServiceUnavailable
		},
	}

	_, err := provider.SignIn(context.Background(), ports.Credentials{
		Email:    "anyone@example.com",
		Password: "anything",
	})
	assert.ErrorIs(t, err, ports.ErrServiceUnavailable)
}

func TestMockIdentityProvider_SignOutRecordsCalls(t *testing.T) {
	provider := NewMockIdentityProvider()

	require.NoError(t, provider.SignOut(context.Background(), "user-1"))
	require.NoError(t, provider.SignOut(context.Background(), "user-2"))

	assert.Equal(t, []string{"user-1", "user-2"}, provider.SignOutCalls)
}

func TestStaticProfileStore_Lookup(t *testing.T) {
	store := NewStaticProfileStore()
	store.Add(domainauth.Identity{
		ID:    "user-1",
		Name:  "Test Driver",
		Email: "Driver@Example.com",
		Role:  domainauth.RoleDriver,
	})

	byID, err := store.FetchProfile(context.Background(), ports.UserHandle{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "Test Driver", byID.Name)

	byEmail, err := store.FetchProfile(context.Background(), ports.UserHandle{Email: "driver@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", byEmail.ID)

	_, err = store.FetchProfile(context.Background(), ports.UserHandle{UserID: "missing"})
	assert.Error(t, err)
}

func TestMemorySessionStore_RoundTrip(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	sess := domainauth.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Role:      domainauth.RoleDriver,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, sess))
	assert.Equal(t, 1, store.Len())

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)

	require.NoError(t, store.Delete(ctx, "sess-1"))
	_, err = store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestMemorySessionStore_RejectsEmptyID(t *testing.T) {
	store := NewMemorySessionStore()

	err := store.Save(context.Background(), domainauth.Session{})
	assert.Error(t, err)

	_, err = store.Get(context.Background(), "")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestStaticFallbackDirectory_Lookup(t *testing.T) {
	dir := NewStaticFallbackDirectory(domainauth.Identity{
		ID:    "fixture-1",
		Email: "fixture@example.com",
		Role:  domainauth.RoleSuperAdmin,
	})

	id, ok := dir.LookupByEmail("  FIXTURE@example.com ")
	require.True(t, ok)
	assert.Equal(t, "fixture-1", id.ID)

	_, ok = dir.LookupByEmail("nobody@example.com")
	assert.False(t, ok)
}
