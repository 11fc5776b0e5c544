package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
	tokenTypeState   = "oauth_state"

	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	oauthStateTTL          = 10 * time.Minute
)

// TokenPair holds the generated access and refresh tokens. RefreshID is the
// jti of the refresh token, stored on the user so the token can be rotated.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	RefreshID    string
}

// TokenService is responsible for creating and validating JWTs. Access and
// refresh tokens are signed with different secrets.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// GenerateTokenPair creates a new access and refresh token pair.
func (s *TokenService) GenerateTokenPair(userID, role string) (*TokenPair, error) {
	now := time.Now()
	accessToken, err := s.sign(s.accessSecret, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"typ":  TokenTypeAccess,
		"exp":  now.Add(s.accessTTL).Unix(),
		"iat":  now.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	// generate a unique token id for the refresh token (jti)
	tokenID := uuid.NewString()
	refreshToken, err := s.sign(s.refreshSecret, jwt.MapClaims{
		"sub": userID,
		"typ": TokenTypeRefresh,
		"jti": tokenID,
		"exp": now.Add(s.refreshTTL).Unix(),
		"iat": now.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, RefreshID: tokenID}, nil
}

// ValidateToken parses and validates a token of the expected type.
func (s *TokenService) ValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error) {
	secret := s.accessSecret
	if expectedType == TokenTypeRefresh {
		secret = s.refreshSecret
	}
	return s.parse(tokenStr, secret, expectedType)
}

// GenerateState signs the OAuth state parameter carrying the requested role.
func (s *TokenService) GenerateState(role string) (string, error) {
	now := time.Now()
	return s.sign(s.accessSecret, jwt.MapClaims{
		"role":  role,
		"typ":   tokenTypeState,
		"nonce": uuid.NewString(),
		"exp":   now.Add(oauthStateTTL).Unix(),
		"iat":   now.Unix(),
	})
}

// ParseState returns the role carried by a state produced by GenerateState.
func (s *TokenService) ParseState(state string) (string, error) {
	claims, err := s.parse(state, s.accessSecret, tokenTypeState)
	if err != nil {
		return "", err
	}
	role, _ := claims["role"].(string)
	return role, nil
}

func (s *TokenService) sign(secret []byte, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *TokenService) parse(tokenStr string, secret []byte, expectedType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
		return nil, fmt.Errorf("invalid token type")
	}
	return claims, nil
}
