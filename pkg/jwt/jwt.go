package jwt

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims is the access token payload. The subject carries the numeric user id;
// tokens minted by the legacy auth service put it in "_id" instead.
type Claims struct {
	jwt.RegisteredClaims
	Role     string `json:"role,omitempty"`
	LegacyID string `json:"_id,omitempty"`
}

// UserID returns the authenticated user id, preferring "_id" over "sub"
func (c *Claims) UserID() (uint64, error) {
	raw := c.LegacyID
	if raw == "" {
		raw = c.Subject
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// Manager signs and verifies HMAC access tokens
type Manager struct {
	secretKey    []byte
	accessExpiry time.Duration
}

// NewManager creates a Manager; accessExpirySeconds <= 0 falls back to 15 minutes
func NewManager(secret string, accessExpirySeconds int) *Manager {
	expiry := time.Duration(accessExpirySeconds) * time.Second
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &Manager{
		secretKey:    []byte(secret),
		accessExpiry: expiry,
	}
}

// GenerateAccessToken issues a token for the user. Used by tests and local tooling;
// production tokens come from the auth service.
func (m *Manager) GenerateAccessToken(userID uint64, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessExpiry)),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken parses and validates an access token
func (m *Manager) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
