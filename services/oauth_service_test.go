package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shivamdarekar/TrendsWave/models"
)

type stubProvider struct {
	profile *models.GoogleProfile
	err     error
}

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://accounts.test/auth?state=" + state
}

func (p *stubProvider) Exchange(context.Context, string) (*models.GoogleProfile, error) {
	return p.profile, p.err
}

func newOAuthFixture(profile *models.GoogleProfile, users ...models.User) (*GoogleOAuthService, *TokenService, *memUserRepo) {
	repo := newMemUserRepo(users...)
	ts := NewTokenService("access", "refresh", 0, 0)
	auth := NewAuthService(repo, ts)
	return NewGoogleOAuthService(&stubProvider{profile: profile}, ts, repo, auth), ts, repo
}

func TestGoogleOAuth_LoginURLCarriesRole(t *testing.T) {
	svc, ts, _ := newOAuthFixture(nil)

	url, err := svc.LoginURL("superuser")
	require.NoError(t, err)
	require.True(t, hasPrefix(url, "https://accounts.test/auth?state="))

	role, err := ts.ParseState(url[len("https://accounts.test/auth?state="):])
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, role, "unknown roles fall back to customer")
}

func TestGoogleOAuth_CallbackCreatesUser(t *testing.T) {
	profile := &models.GoogleProfile{ID: "g-1", Email: "New@Mail.com", Name: "New User", Picture: "https://img.test/a.png"}
	svc, ts, repo := newOAuthFixture(profile)
	state, err := ts.GenerateState(models.RoleAdmin)
	require.NoError(t, err)

	user, pair, err := svc.Callback(context.Background(), "code", state)
	require.NoError(t, err)
	assert.Equal(t, "new@mail.com", user.Email)
	assert.Equal(t, models.ProviderGoogle, user.Provider)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, "g-1", user.GoogleID)
	assert.NotEmpty(t, pair.AccessToken)

	stored, err := repo.FindByGoogleID(context.Background(), "g-1")
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshID, stored.RefreshTokenID)
}

func TestGoogleOAuth_CallbackLinksExistingEmail(t *testing.T) {
	existing := models.User{ID: primitive.NewObjectID(), Email: "old@mail.com", Role: models.RoleCustomer, Provider: models.ProviderLocal}
	profile := &models.GoogleProfile{ID: "g-2", Email: "old@mail.com", Picture: "pic"}
	svc, ts, repo := newOAuthFixture(profile, existing)
	state, err := ts.GenerateState(models.RoleAdmin)
	require.NoError(t, err)

	user, _, err := svc.Callback(context.Background(), "code", state)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	assert.Equal(t, models.RoleCustomer, user.Role, "linking keeps the stored role")
	assert.Equal(t, models.ProviderGoogle, user.Provider)

	all, _ := repo.FindAll(context.Background())
	assert.Len(t, all, 1)
}

func TestGoogleOAuth_CallbackFindsByGoogleID(t *testing.T) {
	existing := models.User{ID: primitive.NewObjectID(), Email: "changed@mail.com", GoogleID: "g-3", Role: models.RoleCustomer}
	svc, ts, _ := newOAuthFixture(&models.GoogleProfile{ID: "g-3", Email: "other@mail.com"}, existing)
	state, err := ts.GenerateState("")
	require.NoError(t, err)

	user, _, err := svc.Callback(context.Background(), "code", state)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
}

func TestGoogleOAuth_CallbackRejects(t *testing.T) {
	svc, ts, _ := newOAuthFixture(&models.GoogleProfile{ID: "g-4"})
	state, err := ts.GenerateState("")
	require.NoError(t, err)

	_, _, err = svc.Callback(context.Background(), "", state)
	assert.Error(t, err)

	_, _, err = svc.Callback(context.Background(), "code", "forged")
	assert.Error(t, err)

	_, _, err = svc.Callback(context.Background(), "code", state)
	assert.Error(t, err, "profile without email")
}
