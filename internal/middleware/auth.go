package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// UserIDKey is the gin context key holding the authenticated user's ID
const UserIDKey = "user_id"

var errMissingSubject = errors.New("missing or invalid user ID claim")

// AuthMiddleware verifies the HS256 session tokens issued by the auth provider
type AuthMiddleware struct {
	secret []byte
	logger *zap.Logger
}

// NewAuthMiddleware creates a new JWT authentication middleware
func NewAuthMiddleware(secret string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret: []byte(secret),
		logger: logger,
	}
}

// Authenticate validates a token and returns its subject
func (m *AuthMiddleware) Authenticate(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errMissingSubject
	}
	return sub, nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token subject under UserIDKey
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.unauthorized(c, "missing authorization header", nil)
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			m.unauthorized(c, "invalid authorization header", nil)
			return
		}

		userID, err := m.Authenticate(strings.TrimSpace(tokenString))
		if err != nil {
			m.unauthorized(c, "invalid or expired token", err)
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

func (m *AuthMiddleware) unauthorized(c *gin.Context, message string, err error) {
	m.logger.Warn("authentication failed",
		zap.String("reason", message),
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("ip", c.ClientIP()),
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    "UNAUTHORIZED",
		"message": message,
	})
}
