package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinic-portal/portal-service/internal/auth"
	"github.com/clinic-portal/portal-service/internal/cache"
	"github.com/clinic-portal/portal-service/internal/events"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"github.com/clinic-portal/portal-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Login(t *testing.T) {
	env := newTestEnv(t)
	svc := env.services.Auth()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "valid credentials", username: "admin", password: testAdminPassword},
		{name: "wrong password", username: "admin", password: "nope-nope", wantErr: ErrInvalidCredentials},
		{name: "unknown user", username: "ghost", password: "whatever", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Login(env.ctx, &LoginRequest{Username: tt.username, Password: tt.password})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, result.Token)
			assert.Equal(t, models.RoleAdmin, result.Claims.Role)
			assert.NotNil(t, result.User.LastLoginAt)
		})
	}
}

func TestAuthService_InactiveAccount(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", env.patient.ID).Update("is_active", false).Error)

	_, err := env.services.Auth().Login(env.ctx, &LoginRequest{Username: "paciente", Password: "password-123"})
	assert.ErrorIs(t, err, ErrInactiveAccount)
}

func TestAuthService_SessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	svc := env.services.Auth()

	login, err := svc.Login(env.ctx, &LoginRequest{Username: "pasante", Password: "password-123"})
	require.NoError(t, err)

	user, claims, err := svc.Authenticate(env.ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, env.intern.ID, user.ID)
	assert.False(t, claims.ViewAsUser)

	switched, err := svc.SetViewAsUser(env.ctx, user, claims, true)
	require.NoError(t, err)
	assert.True(t, switched.Claims.ViewAsUser)

	// The previous token is revoked by the switch.
	_, _, err = svc.Authenticate(env.ctx, login.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.Logout(env.ctx, switched.Claims))
	_, _, err = svc.Authenticate(env.ctx, switched.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_ViewAsUserIsStaffOnly(t *testing.T) {
	env := newTestEnv(t)
	svc := env.services.Auth()

	login, err := svc.Login(env.ctx, &LoginRequest{Username: "paciente", Password: "password-123"})
	require.NoError(t, err)

	_, err = svc.SetViewAsUser(env.ctx, env.patient, login.Claims, true)
	assert.True(t, IsPermissionError(err))
}

func TestAuthService_EnsureAdminIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.services.Auth().EnsureAdmin(env.ctx, "admin", "admin@clinic.test", testAdminPassword))

	var admins int64
	require.NoError(t, env.db.Model(&models.User{}).Where("username = ?", "admin").Count(&admins).Error)
	assert.Equal(t, int64(1), admins)
}

// stubDirectory resolves every bearer token to the same directory account.
type stubDirectory struct {
	user *repositories.DirectoryUser
}

func (d *stubDirectory) ParseToken(ctx context.Context, token string) (*repositories.DirectoryUser, error) {
	if token != "valid" {
		return nil, errors.New("invalid token")
	}
	return d.user, nil
}

func (d *stubDirectory) GetByExternalID(ctx context.Context, id string) (*repositories.DirectoryUser, error) {
	if d.user.ExternalID != id {
		return nil, repositories.ErrNotFound
	}
	return d.user, nil
}

func directoryAuth(env *testEnv, du *repositories.DirectoryUser) AuthService {
	sessions := auth.NewSessionManager("test-secret", time.Hour, cache.NewCacheHelper(nil, cache.SessionCacheConfig.Prefix))
	return NewAuthService(env.repo, env.db, discardLogger(), validator.New(), sessions, &stubDirectory{user: du}, env.publisher)
}

func TestAuthService_AuthenticateDirectory(t *testing.T) {
	tests := []struct {
		name     string
		du       repositories.DirectoryUser
		wantErr  error
		wantUser func(env *testEnv) uint
	}{
		{
			name:    "admin username does not take over the local admin",
			du:      repositories.DirectoryUser{ExternalID: "ext-1", Username: "admin", Email: "intruso@sso.test", Role: models.RoleAdmin},
			wantErr: ErrConflict,
		},
		{
			name:    "admin email does not take over the local admin",
			du:      repositories.DirectoryUser{ExternalID: "ext-2", Username: "otro", Email: "admin@clinic.test"},
			wantErr: ErrUnauthorized,
		},
		{
			name:    "intern email is not linked",
			du:      repositories.DirectoryUser{ExternalID: "ext-3", Username: "otro", Email: "pasante@clinic.test"},
			wantErr: ErrUnauthorized,
		},
		{
			name:     "patient email is linked",
			du:       repositories.DirectoryUser{ExternalID: "ext-4", Username: "paciente-sso", Email: "paciente@clinic.test"},
			wantUser: func(env *testEnv) uint { return env.patient.ID },
		},
		{
			name:    "missing external id",
			du:      repositories.DirectoryUser{Username: "nadie", Email: "nadie@sso.test"},
			wantErr: ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			du := tt.du
			svc := directoryAuth(env, &du)

			user, err := svc.AuthenticateDirectory(env.ctx, "valid")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				admin, err := env.repo.User().GetByUsername(env.ctx, nil, "admin")
				require.NoError(t, err)
				assert.Nil(t, admin.ExternalID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser(env), user.ID)

			linked, err := env.repo.User().GetByExternalID(env.ctx, nil, du.ExternalID)
			require.NoError(t, err)
			assert.Equal(t, user.ID, linked.ID)
		})
	}
}

func TestAuthService_AuthenticateDirectoryProvisionsOnce(t *testing.T) {
	env := newTestEnv(t)
	du := &repositories.DirectoryUser{ExternalID: "ext-9", Username: "lucia", Email: "lucia@sso.test", DisplayName: "Lucía"}
	svc := directoryAuth(env, du)

	first, err := svc.AuthenticateDirectory(env.ctx, "valid")
	require.NoError(t, err)
	assert.Equal(t, models.RolePatient, first.Role())
	require.NotNil(t, first.ExternalID)

	// The directory may rename the account; the link follows the external id.
	du.Username = "lucia.r"
	du.Email = "lucia.r@sso.test"
	second, err := svc.AuthenticateDirectory(env.ctx, "valid")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, env.publisher.EventsOfType(events.UserCreated), 1)

	_, err = svc.AuthenticateDirectory(env.ctx, "forged")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
