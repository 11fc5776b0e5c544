package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/common/logger"
	"github.com/shivamdarekar/TrendsWave/middleware"
	"github.com/shivamdarekar/TrendsWave/models"
	"github.com/shivamdarekar/TrendsWave/services"
)

type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, *services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.User, *services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.User, *services.TokenPair, error)
	Logout(ctx context.Context, userID primitive.ObjectID) error
	Me(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
}

type OAuthService interface {
	LoginURL(role string) (string, error)
	Callback(ctx context.Context, code, state string) (*models.User, *services.TokenPair, error)
}

type AuthController struct {
	auth        AuthService
	oauth       OAuthService
	cookies     CookieConfig
	frontendURL string
}

// NewAuthController builds the controller. oauth may be nil when Google
// sign-in is not configured.
func NewAuthController(auth AuthService, oauth OAuthService, cookies CookieConfig, frontendURL string) *AuthController {
	return &AuthController{
		auth:        auth,
		oauth:       oauth,
		cookies:     cookies,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (ac *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}

	user, pair, err := ac.auth.Register(c.Request.Context(), req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	ac.cookies.setTokens(c, pair)
	c.JSON(http.StatusCreated, models.AuthResponse{User: user, AccessToken: pair.AccessToken})
}

func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.ErrInvalidCredentials)
		return
	}

	user, pair, err := ac.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	ac.cookies.setTokens(c, pair)
	c.JSON(http.StatusOK, models.AuthResponse{User: user, AccessToken: pair.AccessToken})
}

// Profile returns the user loaded by Protect.
func (ac *AuthController) Profile(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.auth.Me(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Refresh accepts the refresh token from its cookie or, for non-browser
// clients, from the JSON body.
func (ac *AuthController) Refresh(c *gin.Context) {
	token, _ := c.Cookie(middleware.RefreshTokenCookie)
	if token == "" {
		var body refreshRequest
		_ = c.ShouldBindJSON(&body)
		token = body.RefreshToken
	}

	user, pair, err := ac.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		ac.cookies.clearTokens(c)
		apperrors.Respond(c, err)
		return
	}

	ac.cookies.setTokens(c, pair)
	c.JSON(http.StatusOK, models.AuthResponse{User: user, AccessToken: pair.AccessToken})
}

func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.auth.Logout(c.Request.Context(), middleware.CurrentUser(c).ID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	ac.cookies.clearTokens(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (ac *AuthController) GoogleLogin(c *gin.Context) {
	if ac.oauth == nil {
		apperrors.Respond(c, apperrors.NotFound("Google login is not configured"))
		return
	}
	url, err := ac.oauth.LoginURL(c.Query("role"))
	if err != nil {
		apperrors.Respond(c, apperrors.Internal("Failed to start Google login", err))
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallback always ends in a redirect to the storefront.
func (ac *AuthController) GoogleCallback(c *gin.Context) {
	failURL := ac.frontendURL + "/login?error=google_auth_failed"
	if ac.oauth == nil {
		c.Redirect(http.StatusTemporaryRedirect, failURL)
		return
	}

	user, pair, err := ac.oauth.Callback(c.Request.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		logger.Warn(c, "Google login failed", zap.Error(err))
		c.Redirect(http.StatusTemporaryRedirect, failURL)
		return
	}

	logger.Info(c, "Google login", zap.String("user_id", user.ID.Hex()))
	ac.cookies.setTokens(c, pair)
	c.Redirect(http.StatusTemporaryRedirect, ac.frontendURL+"/")
}
