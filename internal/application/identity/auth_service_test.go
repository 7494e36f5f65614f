package identity

import (
	"context"
	"testing"
	"time"

	"github.com/pharmapos/backend/internal/domain/identity"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/pharmapos/backend/internal/infrastructure/auth"
	"github.com/pharmapos/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testPassword = "Counter123"

type authFixture struct {
	svc       *AuthService
	users     *MockUserRepository
	roles     *MockRoleRepository
	jwt       *auth.JWTService
	blacklist *auth.InMemoryTokenBlacklist
	user      *identity.User
	role      *identity.Role
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	role, err := identity.NewSystemRole(identity.RoleCashier, "Cashier", "", []string{"product:read", "sale:create"})
	require.NoError(t, err)
	user, err := identity.NewUser("ama@pharmacy.test", "Ama Mensah", testPassword, role.ID)
	require.NoError(t, err)
	user.ClearDomainEvents()

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "auth-service-test-secret-0123456789",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "pharmapos-test",
		MaxRefreshCount:        5,
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	users := new(MockUserRepository)
	roles := new(MockRoleRepository)
	svc := NewAuthService(users, roles, jwtService, blacklist, AuthServiceConfig{
		MaxLoginAttempts: 3,
		LockDuration:     15 * time.Minute,
	}, nil)

	return &authFixture{svc: svc, users: users, roles: roles, jwt: jwtService, blacklist: blacklist, user: user, role: role}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("FindByEmail", ctx, "ama@pharmacy.test").Return(f.user, nil)
		f.roles.On("FindByID", ctx, f.role.ID).Return(f.role, nil)
		f.users.On("Save", ctx, f.user).Return(nil)

		result, err := f.svc.Login(ctx, LoginInput{Email: " AMA@pharmacy.test", Password: testPassword})
		require.NoError(t, err)
		assert.Equal(t, "CASHIER", result.User.Role)
		assert.Equal(t, []string{"product:read", "sale:create"}, result.User.Permissions)
		assert.NotNil(t, f.user.LastLoginAt)

		claims, err := f.jwt.ValidateAccessToken(result.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, f.user.ID.String(), claims.UserID)
		assert.True(t, claims.HasPermission("sale:create"))
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("FindByEmail", ctx, "nobody@pharmacy.test").Return(nil, shared.ErrNotFound)

		_, err := f.svc.Login(ctx, LoginInput{Email: "nobody@pharmacy.test", Password: testPassword})
		requireCode(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("wrong password counts the attempt", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("FindByEmail", ctx, "ama@pharmacy.test").Return(f.user, nil)
		f.users.On("Save", ctx, f.user).Return(nil)

		_, err := f.svc.Login(ctx, LoginInput{Email: "ama@pharmacy.test", Password: "Wrong1234"})
		requireCode(t, err, "INVALID_CREDENTIALS")
		assert.Equal(t, 1, f.user.FailedAttempts)
	})

	t.Run("locks after max attempts", func(t *testing.T) {
		f := newAuthFixture(t)
		now := time.Date(2026, 5, 12, 8, 0, 0, 0, time.UTC)
		f.svc.now = func() time.Time { return now }
		f.user.FailedAttempts = 2
		f.users.On("FindByEmail", ctx, "ama@pharmacy.test").Return(f.user, nil)
		f.users.On("Save", ctx, f.user).Return(nil)

		_, err := f.svc.Login(ctx, LoginInput{Email: "ama@pharmacy.test", Password: "Wrong1234"})
		requireCode(t, err, "USER_LOCKED")
		assert.Equal(t, identity.UserStatusLocked, f.user.Status)
		assert.Equal(t, now.Add(15*time.Minute), *f.user.LockedUntil)

		// Even the right password is refused while locked
		_, err = f.svc.Login(ctx, LoginInput{Email: "ama@pharmacy.test", Password: testPassword})
		requireCode(t, err, "USER_LOCKED")
	})

	t.Run("inactive user", func(t *testing.T) {
		f := newAuthFixture(t)
		require.NoError(t, f.user.Deactivate())
		f.users.On("FindByEmail", ctx, "ama@pharmacy.test").Return(f.user, nil)

		_, err := f.svc.Login(ctx, LoginInput{Email: "ama@pharmacy.test", Password: testPassword})
		requireCode(t, err, "USER_INACTIVE")
	})
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.users.On("FindByID", ctx, f.user.ID).Return(f.user, nil)
	f.roles.On("FindByID", ctx, f.role.ID).Return(f.role, nil)

	pair, err := f.jwt.GenerateTokenPair(auth.GenerateTokenInput{UserID: f.user.ID, Email: f.user.Email, Role: f.role.Code})
	require.NoError(t, err)

	rotated, err := f.svc.Refresh(ctx, RefreshInput{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	claims, err := f.jwt.ValidateRefreshToken(rotated.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 1, claims.RefreshCount)

	_, err = f.svc.Refresh(ctx, RefreshInput{RefreshToken: pair.RefreshToken})
	requireCode(t, err, "TOKEN_REVOKED")

	_, err = f.svc.Refresh(ctx, RefreshInput{RefreshToken: "garbage"})
	requireCode(t, err, "TOKEN_INVALID")
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	pair, err := f.jwt.GenerateTokenPair(auth.GenerateTokenInput{UserID: f.user.ID})
	require.NoError(t, err)
	access, err := f.jwt.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	refresh, err := f.jwt.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, LogoutInput{
		UserID:       f.user.ID,
		AccessJTI:    access.ID,
		AccessTTL:    access.RemainingTTL(time.Now()),
		RefreshToken: pair.RefreshToken,
	}))

	revoked, err := f.blacklist.IsBlacklisted(ctx, access.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
	revoked, err = f.blacklist.IsBlacklisted(ctx, refresh.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAuthService_Me(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.users.On("FindByID", ctx, f.user.ID).Return(f.user, nil)
	f.roles.On("FindByID", ctx, f.role.ID).Return(f.role, nil)

	me, err := f.svc.Me(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ama Mensah", me.FullName)
	assert.Equal(t, "Cashier", me.RoleName)
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.users.On("FindByID", ctx, f.user.ID).Return(f.user, nil)
	f.users.On("Save", ctx, f.user).Return(nil)

	err := f.svc.ChangePassword(ctx, f.user.ID, ChangePasswordInput{OldPassword: "nope12345", NewPassword: "Fresh4567"})
	requireCode(t, err, "INVALID_PASSWORD")
	f.users.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	require.NoError(t, f.svc.ChangePassword(ctx, f.user.ID, ChangePasswordInput{OldPassword: testPassword, NewPassword: "Fresh4567"}))
	assert.True(t, f.user.VerifyPassword("Fresh4567"))

	invalidated, err := f.blacklist.IsUserTokenInvalidated(ctx, f.user.ID.String(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, invalidated)
}
