package services

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/models"
)

type MockTokenService struct{ mock.Mock }

func (m *MockTokenService) GenerateTokenPair(userID, role string) (*TokenPair, error) {
	args := m.Called(userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TokenPair), args.Error(1)
}

func (m *MockTokenService) ValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error) {
	args := m.Called(tokenStr, expectedType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(jwt.MapClaims), args.Error(1)
}

func newAuthFixture() (*AuthService, *memUserRepo) {
	users := newMemUserRepo()
	return NewAuthService(users, NewTokenService("access", "refresh", 0, 0)), users
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, users := newAuthFixture()
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, models.RegisterRequest{Name: " Asha ", Email: " Asha@Example.COM ", Password: "secret!1"})
	require.NoError(t, err)
	assert.Equal(t, "Asha", user.Name)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.Equal(t, models.RoleCustomer, user.Role)
	assert.NotEqual(t, "secret!1", user.Password)
	assert.NotEmpty(t, pair.AccessToken)

	stored, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshID, stored.RefreshTokenID)

	_, _, err = svc.Register(ctx, models.RegisterRequest{Name: "Other", Email: "asha@example.com", Password: "secret!1"})
	assert.ErrorIs(t, err, errUserExists)

	loggedIn, _, err := svc.Login(ctx, "ASHA@example.com", "secret!1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
}

func TestAuthService_LoginDoesNotEnumerate(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()
	_, _, err := svc.Register(ctx, models.RegisterRequest{Name: "A", Email: "a@b.co", Password: "secret!1"})
	require.NoError(t, err)

	_, _, wrongPassword := svc.Login(ctx, "a@b.co", "nope!nope")
	_, _, unknownEmail := svc.Login(ctx, "missing@b.co", "secret!1")

	assert.ErrorIs(t, wrongPassword, apperrors.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, apperrors.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthService_RefreshRotates(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()
	_, first, err := svc.Register(ctx, models.RegisterRequest{Name: "A", Email: "a@b.co", Password: "secret!1"})
	require.NoError(t, err)

	_, second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshID, second.RefreshID)

	// The rotated-away token is dead.
	_, _, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, errInvalidRefreshToken)

	_, third, err := svc.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, third.AccessToken)
}

func TestAuthService_RefreshRejects(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()
	user, pair, err := svc.Register(ctx, models.RegisterRequest{Name: "A", Email: "a@b.co", Password: "secret!1"})
	require.NoError(t, err)

	_, _, err = svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, errNoRefreshToken)

	_, _, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, errInvalidRefreshToken)

	require.NoError(t, svc.Logout(ctx, user.ID))
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, errInvalidRefreshToken, "logout revokes the refresh token")
}

func TestAuthService_RefreshLosesRace(t *testing.T) {
	userID := primitive.NewObjectID()
	users := newMemUserRepo(models.User{ID: userID, Role: models.RoleCustomer, RefreshTokenID: "jti-1"})
	ts := new(MockTokenService)
	ts.On("ValidateToken", "token", TokenTypeRefresh).Return(jwt.MapClaims{"sub": userID.Hex(), "jti": "jti-1"}, nil)
	ts.On("GenerateTokenPair", userID.Hex(), models.RoleCustomer).Return(&TokenPair{RefreshID: "jti-2"}, nil).Run(func(mock.Arguments) {
		// Another refresh rotates the token between the read and the swap.
		_ = users.SetRefreshToken(context.Background(), userID, "jti-other")
	})
	svc := NewAuthService(users, ts)

	_, _, err := svc.Refresh(context.Background(), "token")
	assert.ErrorIs(t, err, errInvalidRefreshToken)
	ts.AssertExpectations(t)
}

func TestAuthService_TokenGenerationFailure(t *testing.T) {
	ts := new(MockTokenService)
	ts.On("GenerateTokenPair", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	svc := NewAuthService(newMemUserRepo(), ts)

	_, _, err := svc.Register(context.Background(), models.RegisterRequest{Name: "A", Email: "a@b.co", Password: "secret!1"})
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 500, appErr.Code)
}

func TestAuthService_Authenticate(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()
	user, pair, err := svc.Register(ctx, models.RegisterRequest{Name: "A", Email: "a@b.co", Password: "secret!1"})
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	me, err := svc.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", me.Email)

	_, err = svc.Me(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, errUserNotFound)
}
