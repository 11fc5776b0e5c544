package services

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/common/logger"
	"github.com/shivamdarekar/TrendsWave/models"
	"github.com/shivamdarekar/TrendsWave/repository"
)

type ITokenService interface {
	GenerateTokenPair(userID, role string) (*TokenPair, error)
	ValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error)
}

var (
	errUserExists          = apperrors.BadRequest("User with this email already exists")
	errNoRefreshToken      = apperrors.Unauthorized("No refresh token provided")
	errInvalidRefreshToken = apperrors.Unauthorized("Invalid refresh token")
	errUserNotFound        = apperrors.NotFound("User not found")
)

type AuthService struct {
	userRepo     repository.UserRepository
	tokenService ITokenService
}

func NewAuthService(ur repository.UserRepository, ts ITokenService) *AuthService {
	return &AuthService{userRepo: ur, tokenService: ts}
}

// NormalizeEmail trims and lowercases an address before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperrors.Internal("Failed to hash password", err)
	}
	return string(hashed), nil
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, *TokenPair, error) {
	email := NormalizeEmail(req.Email)

	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, nil, errUserExists
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperrors.Internal("Failed to register user", err)
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: hashed,
		Role:     models.RoleCustomer,
		Provider: models.ProviderLocal,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, nil, errUserExists
		}
		return nil, nil, apperrors.Internal("Failed to register user", err)
	}

	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(ctx, "User registered", zap.String("user_id", user.ID.Hex()))
	return user, pair, nil
}

// Login never tells the caller whether the email exists.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.ErrInvalidCredentials
		}
		return nil, nil, apperrors.Internal("Failed to log in", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// IssueTokens creates a token pair and makes its refresh id the current one.
func (s *AuthService) IssueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	pair, err := s.tokenService.GenerateTokenPair(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, apperrors.Internal("Failed to generate tokens", err)
	}
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, pair.RefreshID); err != nil {
		return nil, apperrors.Internal("Failed to generate tokens", err)
	}
	user.RefreshTokenID = pair.RefreshID
	return pair, nil
}

// Refresh rotates a refresh token. The presented token must carry the refresh
// id currently stored on the user; the swap is conditional on that id, so a
// token can be rotated at most once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.User, *TokenPair, error) {
	if refreshToken == "" {
		return nil, nil, errNoRefreshToken
	}

	claims, err := s.tokenService.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, nil, errInvalidRefreshToken
	}
	sub, _ := claims["sub"].(string)
	jti, _ := claims["jti"].(string)
	userID, err := primitive.ObjectIDFromHex(sub)
	if err != nil || jti == "" {
		return nil, nil, errInvalidRefreshToken
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, nil, errInvalidRefreshToken
		}
		return nil, nil, apperrors.Internal("Failed to refresh token", err)
	}
	if user.RefreshTokenID != jti {
		logger.Warn(ctx, "Rejected stale refresh token", zap.String("user_id", sub))
		return nil, nil, errInvalidRefreshToken
	}

	pair, err := s.tokenService.GenerateTokenPair(sub, user.Role)
	if err != nil {
		return nil, nil, apperrors.Internal("Failed to generate tokens", err)
	}
	rotated, err := s.userRepo.RotateRefreshToken(ctx, userID, jti, pair.RefreshID)
	if err != nil {
		return nil, nil, apperrors.Internal("Failed to refresh token", err)
	}
	if !rotated {
		return nil, nil, errInvalidRefreshToken
	}
	user.RefreshTokenID = pair.RefreshID
	return user, pair, nil
}

func (s *AuthService) Logout(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.userRepo.ClearRefreshToken(ctx, userID); err != nil && !stderrors.Is(err, repository.ErrNotFound) {
		return apperrors.Internal("Failed to log out", err)
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, apperrors.Internal("Failed to load user", err)
	}
	return user, nil
}

// Authenticate resolves an access token to its user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokenService.ValidateToken(accessToken, TokenTypeAccess)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	userID, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, apperrors.Internal("Failed to authenticate", err)
	}
	return user, nil
}
