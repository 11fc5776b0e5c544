package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shivamdarekar/TrendsWave/middleware"
	"github.com/shivamdarekar/TrendsWave/services"
)

// CookieConfig controls the auth cookies. Secure is set in production.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (cc CookieConfig) sameSite() http.SameSite {
	// The storefront is served from another origin in production.
	if cc.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (cc CookieConfig) setTokens(c *gin.Context, pair *services.TokenPair) {
	c.SetSameSite(cc.sameSite())
	c.SetCookie(middleware.AccessTokenCookie, pair.AccessToken, int(cc.AccessTTL.Seconds()), "/", "", cc.Secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, pair.RefreshToken, int(cc.RefreshTTL.Seconds()), "/", "", cc.Secure, true)
}

func (cc CookieConfig) clearTokens(c *gin.Context) {
	c.SetSameSite(cc.sameSite())
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", cc.Secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, "", -1, "/", "", cc.Secure, true)
}
