package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	commonmw "github.com/yashrajoria/distributor-backend/services/common/middleware"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/middleware"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/services"
	"go.uber.org/zap"
)

// AuthController handles login and logout
type AuthController struct {
	dealers      DealerDirectory
	cookieTTL    time.Duration
	secureCookie bool
}

// NewAuthController creates a new AuthController. Cookies are marked Secure
// when secureCookie is set.
func NewAuthController(dealers DealerDirectory, cookieTTL time.Duration, secureCookie bool) *AuthController {
	return &AuthController{dealers: dealers, cookieTTL: cookieTTL, secureCookie: secureCookie}
}

func (ac *AuthController) setSession(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", ac.secureCookie, true)
}

// Login verifies credentials and sets the session cookie
// POST /login
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	commonmw.Annotate(c, zap.String("login_user", services.NormalizeUsername(req.Username)))
	session, err := ac.dealers.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	ac.setSession(c, session.Token, int(ac.cookieTTL.Seconds()))
	apperrors.OK(c, http.StatusOK, gin.H{
		"user":      session.Profile,
		"token":     session.Token,
		"expiresIn": int(ac.cookieTTL.Seconds()),
	})
}

// Logout records the logout and clears the cookie
// POST /logout
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.dealers.Logout(c.Request.Context(), c.GetString(middleware.UserContextKey)); err != nil {
		apperrors.Respond(c, err)
		return
	}
	ac.setSession(c, "", -1)
	apperrors.OK(c, http.StatusOK, gin.H{"message": "Logged out"})
}
