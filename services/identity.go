package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dododo1295/notetree/model"
	"github.com/dododo1295/notetree/utils"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityVerifier resolves a bearer token to a stable user id. Any failure
// to do so wraps model.ErrUnauthorized, except revocation lookups that could
// not be answered, which are *model.TransientError.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
	// Revoke invalidates token for the rest of its lifetime.
	Revoke(ctx context.Context, token string) error
}

// JWTVerifier checks HS256 tokens signed with Secret and issued by Issuer.
type JWTVerifier struct {
	Secret      []byte
	Issuer      string
	Revocations RevocationList
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewJWTVerifier(secret, issuer string, revocations RevocationList) *JWTVerifier {
	return &JWTVerifier{
		Secret:      []byte(secret),
		Issuer:      issuer,
		Revocations: revocations,
		Now:         time.Now,
	}
}

func (v *JWTVerifier) now() time.Time {
	if v.Now == nil {
		return time.Now()
	}
	return v.Now()
}

func (v *JWTVerifier) parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: missing token", model.ErrUnauthorized)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return v.Secret, nil
	}, opts...)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = "expired"
		}
		utils.TrackAuthAttempt("failure", reason)
		return nil, fmt.Errorf("%w: %v", model.ErrUnauthorized, err)
	}

	if claims.UserID == "" {
		utils.TrackAuthAttempt("failure", "missing_user")
		return nil, fmt.Errorf("%w: token has no user ID", model.ErrUnauthorized)
	}
	if claims.Type == "refresh" {
		utils.TrackAuthAttempt("failure", "refresh_token")
		return nil, fmt.Errorf("%w: refresh token not accepted", model.ErrUnauthorized)
	}
	return &claims, nil
}

func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (string, error) {
	claims, err := v.parse(tokenString)
	if err != nil {
		return "", err
	}

	if v.Revocations != nil {
		revoked, err := v.Revocations.IsRevoked(ctx, tokenString)
		if err != nil {
			return "", &model.TransientError{Op: "check token revocation", Err: err}
		}
		if revoked {
			utils.TrackAuthAttempt("failure", "revoked")
			return "", fmt.Errorf("%w: token has been revoked", model.ErrUnauthorized)
		}
	}

	utils.TrackAuthAttempt("success", "")
	return claims.UserID, nil
}

func (v *JWTVerifier) Revoke(ctx context.Context, tokenString string) error {
	if v.Revocations == nil {
		return errors.New("token revocation is not configured")
	}
	claims, err := v.parse(tokenString)
	if err != nil {
		return err
	}
	return v.Revocations.Revoke(ctx, tokenString, claims.ExpiresAt.Time)
}
