package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/distributor-backend/services/common/auth"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
)

const (
	UserContextKey = "username"
	RoleContextKey = "role"

	// SessionCookie carries the session token set at login.
	SessionCookie = "session"
)

// TokenParser verifies session tokens.
type TokenParser interface {
	ParseAndValidateToken(tokenStr, expectedType string) (*auth.Claims, error)
}

// tokenFrom reads the session cookie, falling back to a Bearer header.
func tokenFrom(c *gin.Context) string {
	if v, err := c.Cookie(SessionCookie); err == nil && v != "" {
		return v
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// RequireAuth rejects requests without a valid session and stores the
// caller's username and role on the context.
func RequireAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			apperrors.Respond(c, apperrors.Unauthorized("Authentication required", nil))
			return
		}

		claims, err := tokens.ParseAndValidateToken(token, auth.TokenTypeSession)
		if err != nil {
			apperrors.Respond(c, apperrors.Unauthorized("Invalid or expired session", err))
			return
		}

		c.Set(UserContextKey, claims.Username)
		c.Set(RoleContextKey, claims.Role)
		c.Next()
	}
}

// RequireRole allows only callers holding role. Must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleContextKey) != role {
			apperrors.Respond(c, apperrors.Forbidden("Access denied", nil))
			return
		}
		c.Next()
	}
}

// RequireAdmin is RequireRole for the admin role.
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}

// GetUsername returns the authenticated username.
func GetUsername(c *gin.Context) (string, error) {
	username := c.GetString(UserContextKey)
	if username == "" {
		return "", errors.New("username not found in context")
	}
	return username, nil
}

// IsAdmin reports whether the caller holds the admin role.
func IsAdmin(c *gin.Context) bool {
	return c.GetString(RoleContextKey) == models.RoleAdmin
}
