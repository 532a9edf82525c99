package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	mocksauth "github.com/buswatch/buswatch-api/internal/mocks/auth"
	"github.com/buswatch/buswatch-api/internal/ports"
)

const testSchoolID = "school-1"

func testIdentity(role domainauth.Role) domainauth.Identity {
	id := domainauth.Identity{
		ID:    "user-1",
		Name:  "Test User",
		Email: "mock.user@example.com",
		Role:  role,
	}
	if role.SchoolScoped() {
		schoolID := testSchoolID
		id.SchoolID = &schoolID
	}
	return id
}

func fixtureIdentity() domainauth.Identity {
	schoolID := testSchoolID
	return domainauth.Identity{
		ID:       "fixture-driver",
		Name:     "John Driver",
		Email:    "driver@buswatch.com",
		Role:     domainauth.RoleDriver,
		SchoolID: &schoolID,
	}
}

type authFixture struct {
	provider *mocksauth.MockIdentityProvider
	profiles *mocksauth.StaticProfileStore
	sessions *mocksauth.MemorySessionStore
	service  *AuthService
}

func newAuthFixture(t *testing.T, policy FallbackPolicy, fallback ports.FallbackDirectory) *authFixture {
	t.Helper()

	provider := mocksauth.NewMockIdentityProvider()
	profiles := mocksauth.NewStaticProfileStore()
	sessions := mocksauth.NewMemorySessionStore()

	svc := NewAuthService(AuthServiceOptions{
		Provider: provider,
		Profiles: profiles,
		Sessions: sessions,
		Fallback: fallback,
		Policy:   policy,
	})
	return &authFixture{
		provider: provider,
		profiles: profiles,
		sessions: sessions,
		service:  svc,
	}
}

func validCreds() ports.Credentials {
	return ports.Credentials{Email: "mock.user@example.com", Password: "hunter22"}
}

func TestAuthService_Login_PrimarySuccess(t *testing.T) {
	fx := newAuthFixture(t, FallbackAnyFailure, nil)
	identity := testIdentity(domainauth.RoleSchoolAdmin)
	fx.profiles.Add(identity)
	fx.provider.SignInFunc = func(_ context.Context, creds ports.Credentials) (ports.UserHandle, error) {
		return ports.UserHandle{UserID: identity.ID, Email: creds.Email}, nil
	}

	result, err := fx.service.Login(context.Background(), validCreds())
	require.NoError(t, err)

	assert.False(t, result.Fallback)
	assert.Equal(t, identity, result.Identity)
	assert.NotEmpty(t, result.Session.ID)
	assert.Equal(t, identity.ID, result.Session.UserID)
	assert.Equal(t, domainauth.RoleSchoolAdmin, result.Session.Role)
	require.NotNil(t, result.Session.SchoolID)
	assert.Equal(t, testSchoolID, *result.Session.SchoolID)

	// Session must be retrievable from the store.
	stored, err := fx.service.GetSession(context.Background(), result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, stored.UserID)
}

func TestAuthService_Login_NormalizesEmail(t *testing.T) {
	fx := newAuthFixture(t, FallbackOff, nil)
	identity := testIdentity(domainauth.RoleSuperAdmin)
	fx.profiles.Add(identity)

	var seenEmail string
	fx.provider.SignInFunc = func(_ context.Context, creds ports.Credentials) (ports.UserHandle, error) {
		seenEmail = creds.Email
		return ports.UserHandle{UserID: identity.ID}, nil
	}

	_, err := fx.service.Login(context.Background(), ports.Credentials{
		Email:    "  Mock.User@Example.COM ",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, "mock.user@example.com", seenEmail)
}

func TestAuthService_Login_EmptyFields(t *testing.T) {
	fx := newAuthFixture(t, FallbackAnyFailure, nil)

	_, err := fx.service.Login(context.Background(), ports.Credentials{Email: "", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidEmailOrPassword)

	_, err = fx.service.Login(context.Background(), ports.Credentials{Email: "a@b.com", Password: ""})
	assert.ErrorIs(t, err, ErrInvalidEmailOrPassword)
}

func TestAuthService_Login_RejectedCredentials(t *testing.T) {
	tests := []struct {
		name     string
		policy   FallbackPolicy
		fixture  bool
		wantErr  error
		fallback bool
	}{
		{
			name:     "any-failure policy admits fixture",
			policy:   FallbackAnyFailure,
			fixture:  true,
			fallback: true,
		},
		{
			name:    "unavailable policy does not admit fixture on rejection",
			policy:  FallbackUnavailable,
			fixture: true,
			wantErr: ErrInvalidEmailOrPassword,
		},
		{
			name:    "off policy never admits fixture",
			policy:  FallbackOff,
			fixture: true,
			wantErr: ErrInvalidEmailOrPassword,
		},
		{
			name:    "no fixture for email",
			policy:  FallbackAnyFailure,
			fixture: false,
			wantErr: ErrInvalidEmailOrPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dir ports.FallbackDirectory
			if tt.fixture {
				dir = mocksauth.NewStaticFallbackDirectory(fixtureIdentity())
			} else {
				dir = mocksauth.NewStaticFallbackDirectory()
			}
			fx := newAuthFixture(t, tt.policy, dir)
			fx.provider.SignInFunc = func(_ context.Context, _ ports.Credentials) (ports.UserHandle, error) {
				return ports.UserHandle{}, ports.ErrInvalidCredentials
			}

			result, err := fx.service.Login(context.Background(), ports.Credentials{
				Email:    "driver@buswatch.com",
				Password: "anything",
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, result.Fallback)
			assert.Equal(t, "fixture-driver", result.Session.UserID)
			assert.Equal(t, domainauth.RoleDriver, result.Session.Role)
		})
	}
}

func TestAuthService_Login_ServiceUnavailable(t *testing.T) {
	tests := []struct {
		name     string
		policy   FallbackPolicy
		fixture  bool
		wantErr  error
		fallback bool
	}{
		{
			name:     "unavailable policy admits fixture",
			policy:   FallbackUnavailable,
			fixture:  true,
			fallback: true,
		},
		{
			name:     "any-failure policy admits fixture",
			policy:   FallbackAnyFailure,
			fixture:  true,
			fallback: true,
		},
		{
			name:    "off policy surfaces outage",
			policy:  FallbackOff,
			fixture: true,
			wantErr: ErrAuthUnavailable,
		},
		{
			name:    "no fixture surfaces outage",
			policy:  FallbackAnyFailure,
			fixture: false,
			wantErr: ErrAuthUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dir ports.FallbackDirectory
			if tt.fixture {
				dir = mocksauth.NewStaticFallbackDirectory(fixtureIdentity())
			} else {
				dir = mocksauth.NewStaticFallbackDirectory()
			}
			fx := newAuthFixture(t, tt.policy, dir)
			fx.provider.SignInFunc = func(_ context.Context, _ ports.Credentials) (ports.UserHandle, error) {
				return ports.UserHandle{}, ports.ErrServiceUnavailable
			}

			result, err := fx.service.Login(context.Background(), ports.Credentials{
				Email:    "driver@buswatch.com",
				Password: "anything",
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, result.Fallback)
		})
	}
}

func TestAuthService_Login_AccountNotProvisioned(t *testing.T) {
	// Sign-in succeeds upstream but no local profile exists and no fixture
	// matches the email.
	fx := newAuthFixture(t, FallbackAnyFailure, mocksauth.NewStaticFallbackDirectory())
	fx.provider.SignInFunc = func(_ context.Context, creds ports.Credentials) (ports.UserHandle, error) {
		return ports.UserHandle{UserID: "upstream-1", Email: creds.Email}, nil
	}

	_, err := fx.service.Login(context.Background(), validCreds())
	assert.ErrorIs(t, err, ErrAccountNotProvisioned)
}

func TestAuthService_Login_ProfileFailureFixtureAdmission(t *testing.T) {
	// A missing profile after successful sign-in still admits the demo
	// accounts under any-failure, but not under unavailable.
	dir := mocksauth.NewStaticFallbackDirectory(fixtureIdentity())

	anyFailure := newAuthFixture(t, FallbackAnyFailure, dir)
	anyFailure.provider.SignInFunc = func(_ context.Context, creds ports.Credentials) (ports.UserHandle, error) {
		return ports.UserHandle{UserID: "upstream-1", Email: creds.Email}, nil
	}
	result, err := anyFailure.service.Login(context.Background(), ports.Credentials{
		Email:    "driver@buswatch.com",
		Password: "anything",
	})
	require.NoError(t, err)
	assert.True(t, result.Fallback)

	unavailable := newAuthFixture(t, FallbackUnavailable, dir)
	unavailable.provider.SignInFunc = func(_ context.Context, creds ports.Credentials) (ports.UserHandle, error) {
		return ports.UserHandle{UserID: "upstream-1", Email: creds.Email}, nil
	}
	_, err = unavailable.service.Login(context.Background(), ports.Credentials{
		Email:    "driver@buswatch.com",
		Password: "anything",
	})
	assert.ErrorIs(t, err, ErrAccountNotProvisioned)
}

func TestAuthService_Login_SessionSaveFailure(t *testing.T) {
	fx := newAuthFixture(t, FallbackOff, nil)
	fx.profiles.Add(testIdentity(domainauth.RoleDriver))
	fx.provider.SignInFunc = func(_ context.Context, _ ports.Credentials) (ports.UserHandle, error) {
		return ports.UserHandle{UserID: "user-1"}, nil
	}
	fx.sessions.SaveErr = errors.New("redis down")

	_, err := fx.service.Login(context.Background(), validCreds())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save session")
}

func TestAuthService_Login_ConcurrentIdenticalAttemptsShareFlight(t *testing.T) {
	fx := newAuthFixture(t, FallbackOff, nil)
	fx.profiles.Add(testIdentity(domainauth.RoleDriver))

	release := make(chan struct{})
	var calls atomic.Int32
	fx.provider.SignInFunc = func(_ context.Context, _ ports.Credentials) (ports.UserHandle, error) {
		calls.Add(1)
		<-release
		return ports.UserHandle{UserID: "user-1"}, nil
	}

	const attempts = 4
	results := make([]*LoginResult, attempts)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = fx.service.Login(context.Background(), validCreds())
		}()
	}

	// Give every goroutine a chance to join the in-flight call, then let
	// the provider return.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range attempts {
		require.NoError(t, errs[i])
	}
	assert.Equal(t, int32(1), calls.Load())
	for i := 1; i < attempts; i++ {
		assert.Equal(t, results[0].Session.ID, results[i].Session.ID)
	}
	assert.Equal(t, 1, fx.sessions.Len())
}

func TestAuthService_Login_DifferentPasswordsDoNotShareFlight(t *testing.T) {
	assert.NotEqual(t, loginKey("a@b.com", "one"), loginKey("a@b.com", "two"))
	assert.NotEqual(t, loginKey("a@b.com", "one"), loginKey("c@d.com", "one"))
}

func TestAuthService_GetSession(t *testing.T) {
	fx := newAuthFixture(t, FallbackOff, nil)

	sess := domainauth.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Role:      domainauth.RoleDriver,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, fx.sessions.Save(context.Background(), sess))

	got, err := fx.service.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)

	_, err = fx.service.GetSession(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsSessionInvalid(err))

	_, err = fx.service.GetSession(context.Background(), "")
	assert.Error(t, err)
}

func TestAuthService_GetSession_ExpiredIsDeleted(t *testing.T) {
	fx := newAuthFixture(t, FallbackOff, nil)
	fx.service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	sess := domainauth.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Role:      domainauth.RoleDriver,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, fx.sessions.Save(context.Background(), sess))

	_, err := fx.service.GetSession(context.Background(), "sess-1")
	require.Error(t, err)
	assert.True(t, IsSessionInvalid(err))
	assert.Equal(t, 0, fx.sessions.Len())
}

func TestAuthService_Logout(t *testing.T) {
	fx := newAuthFixture(t, FallbackOff, nil)

	sess := domainauth.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Role:      domainauth.RoleDriver,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, fx.sessions.Save(context.Background(), sess))

	require.NoError(t, fx.service.Logout(context.Background(), "sess-1"))
	assert.Equal(t, []string{"user-1"}, fx.provider.SignOutCalls)
	assert.Equal(t, 0, fx.sessions.Len())
}

func TestAuthService_Logout_ProviderFailureStillDeletesLocally(t *testing.T) {
	fx := newAuthFixture(t, FallbackOff, nil)
	fx.provider.SignOutFunc = func(_ context.Context, _ string) error {
		return errors.New("idp unreachable")
	}

	sess := domainauth.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Role:      domainauth.RoleDriver,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, fx.sessions.Save(context.Background(), sess))

	require.NoError(t, fx.service.Logout(context.Background(), "sess-1"))
	assert.Equal(t, 0, fx.sessions.Len())
}

func TestAuthService_Logout_UnknownSession(t *testing.T) {
	fx := newAuthFixture(t, FallbackOff, nil)

	// Unknown session: no provider sign-out, local delete is a no-op.
	require.NoError(t, fx.service.Logout(context.Background(), "missing"))
	assert.Empty(t, fx.provider.SignOutCalls)

	require.NoError(t, fx.service.Logout(context.Background(), ""))
}

func TestFallbackPolicy_UnmarshalText(t *testing.T) {
	tests := []struct {
		input   string
		want    FallbackPolicy
		wantErr bool
	}{
		{input: "off", want: FallbackOff},
		{input: "unavailable", want: FallbackUnavailable},
		{input: "any-failure", want: FallbackAnyFailure},
		{input: " ANY-FAILURE ", want: FallbackAnyFailure},
		{input: "sometimes", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var p FallbackPolicy
			err := p.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}
