package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the bearer token payload. Refresh tokens carry Type "refresh"
// and are rejected by the note API.
type Claims struct {
	UserID string `json:"user_id"`
	Type   string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 access token for userID valid for ttl.
func GenerateToken(secret []byte, issuer, userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user ID is required")
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Type:   "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
