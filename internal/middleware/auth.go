package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/snapfeed/snapfeed-backend/internal/common"
	"github.com/snapfeed/snapfeed-backend/internal/domain"
	"github.com/snapfeed/snapfeed-backend/pkg/jwt"
)

const (
	accessTokenCookie = "access_token"

	ctxUserID = "userID"
	ctxRole   = "role"
)

// extractToken reads the access token from the cookie first, then the Authorization header
func extractToken(c *gin.Context) string {
	if token, err := c.Cookie(accessTokenCookie); err == nil && token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func authenticate(c *gin.Context, jwtManager *jwt.Manager, token string) error {
	claims, err := jwtManager.VerifyToken(token)
	if err != nil {
		return err
	}
	userID, err := claims.UserID()
	if err != nil {
		return err
	}

	c.Set(ctxUserID, userID)
	c.Set(ctxRole, claims.Role)
	return nil
}

// JWTAuth rejects requests without a valid access token
func JWTAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			common.ErrorResponse(c, 401, "Missing access token", nil)
			c.Abort()
			return
		}

		if err := authenticate(c, jwtManager, token); err != nil {
			if errors.Is(err, jwt.ErrExpiredToken) {
				common.ErrorResponse(c, 401, "Token expired", err)
			} else {
				common.ErrorResponse(c, 401, "Invalid token", err)
			}
			c.Abort()
			return
		}

		c.Next()
	}
}

// OptionalAuth resolves the user when a valid token is present and
// otherwise lets the request through anonymously
func OptionalAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" {
			_ = authenticate(c, jwtManager, token)
		}
		c.Next()
	}
}

// GetUserID extracts user ID from context; 0 means anonymous
func GetUserID(c *gin.Context) uint64 {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0
	}
	if id, ok := userID.(uint64); ok {
		return id
	}
	return 0
}

// GetActor returns the caller as seen by permission checks
func GetActor(c *gin.Context) domain.Actor {
	return domain.Actor{
		UserID: GetUserID(c),
		Role:   c.GetString(ctxRole),
	}
}
