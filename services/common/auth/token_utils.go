package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// TokenTypeSession marks tokens issued at login.
const TokenTypeSession = "session"

// Claims is the identity carried by a session token.
type Claims struct {
	Username string
	Role     string
	Type     string
	ID       string
	Expires  time.Time
}

// TokenManager signs and verifies HMAC session tokens.
type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewTokenManager returns a manager for the given secret. An empty secret is
// rejected so a misconfigured process cannot issue unsigned sessions.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret not configured")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secretKey: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a signed session token for username.
func (m *TokenManager) Issue(username, role string) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"sub":  username,
		"role": role,
		"typ":  TokenTypeSession,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(m.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseAndValidateToken parses a JWT token string and returns its claims.
// If expectedType is non-empty, the claim "typ" must match it.
func (m *TokenManager) ParseAndValidateToken(tokenStr, expectedType string) (*Claims, error) {
	parser := jwt.Parser{}
	token, err := parser.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	typ, _ := mc["typ"].(string)
	if expectedType != "" && typ != expectedType {
		return nil, fmt.Errorf("invalid token type")
	}
	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	claims := &Claims{Username: sub, Type: typ}
	claims.Role, _ = mc["role"].(string)
	claims.ID, _ = mc["jti"].(string)
	if exp, ok := mc["exp"].(float64); ok {
		claims.Expires = time.Unix(int64(exp), 0)
	}
	return claims, nil
}
