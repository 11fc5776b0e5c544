package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/shivamdarekar/TrendsWave/common/logger"
	"github.com/shivamdarekar/TrendsWave/models"
	"github.com/shivamdarekar/TrendsWave/repository"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// OAuthProvider is the identity provider side of the login flow.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for the user's profile.
	Exchange(ctx context.Context, code string) (*models.GoogleProfile, error)
}

type StateSigner interface {
	GenerateState(role string) (string, error)
	ParseState(state string) (string, error)
}

type GoogleProvider struct {
	config *oauth2.Config
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}}
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*models.GoogleProfile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, body)
	}
	var profile models.GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &profile, nil
}

// GoogleOAuthService signs users in with Google, linking or creating the
// local account as needed.
type GoogleOAuthService struct {
	provider OAuthProvider
	state    StateSigner
	userRepo repository.UserRepository
	auth     *AuthService
}

func NewGoogleOAuthService(provider OAuthProvider, state StateSigner, userRepo repository.UserRepository, auth *AuthService) *GoogleOAuthService {
	return &GoogleOAuthService{provider: provider, state: state, userRepo: userRepo, auth: auth}
}

func normalizeRole(role string) string {
	if role == models.RoleAdmin {
		return models.RoleAdmin
	}
	return models.RoleCustomer
}

// LoginURL returns the provider consent URL with a signed state carrying role.
func (s *GoogleOAuthService) LoginURL(role string) (string, error) {
	state, err := s.state.GenerateState(normalizeRole(role))
	if err != nil {
		return "", err
	}
	return s.provider.AuthCodeURL(state), nil
}

// Callback finishes the flow: find by Google id, else link by email, else create.
func (s *GoogleOAuthService) Callback(ctx context.Context, code, state string) (*models.User, *TokenPair, error) {
	if code == "" {
		return nil, nil, fmt.Errorf("missing authorization code")
	}
	role, err := s.state.ParseState(state)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid state: %w", err)
	}

	profile, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if profile.ID == "" || profile.Email == "" {
		return nil, nil, fmt.Errorf("google profile has no id or email")
	}

	user, err := s.resolveUser(ctx, profile, normalizeRole(role))
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.auth.IssueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *GoogleOAuthService) resolveUser(ctx context.Context, profile *models.GoogleProfile, role string) (*models.User, error) {
	user, err := s.userRepo.FindByGoogleID(ctx, profile.ID)
	if err == nil {
		return user, nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	email := NormalizeEmail(profile.Email)
	existing, err := s.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		linked, err := s.userRepo.Update(ctx, existing.ID, bson.M{
			"googleId": profile.ID,
			"provider": models.ProviderGoogle,
			"avatar":   profile.Picture,
		})
		if err != nil {
			return nil, fmt.Errorf("link google account: %w", err)
		}
		logger.Info(ctx, "Linked Google account", zap.String("user_id", linked.ID.Hex()))
		return linked, nil
	case !stderrors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	// The random password only satisfies the schema; the account signs in with Google.
	hashed, err := hashPassword(uuid.NewString())
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	user = &models.User{
		Name:     name,
		Email:    email,
		Password: hashed,
		Role:     role,
		GoogleID: profile.ID,
		Provider: models.ProviderGoogle,
		Avatar:   profile.Picture,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create google user: %w", err)
	}
	logger.Info(ctx, "Created user from Google profile", zap.String("user_id", user.ID.Hex()))
	return user, nil
}
