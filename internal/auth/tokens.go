package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	issuer          = "docqa-backend"
	revokedPrefix   = "revoked:"
	AccessTokenTTL  = 1 * time.Hour
	minSecretLength = 32
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
	ErrWeakSecret   = fmt.Errorf("access secret must be at least %d characters", minSecretLength)
)

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// RevocationStore is the part of a redis client used for the revocation list.
type RevocationStore interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// IssueAccessToken signs a short-lived HS256 token for userID.
func IssueAccessToken(userID string, secret []byte) (string, *Claims, error) {
	if len(secret) < minSecretLength {
		return "", nil, ErrWeakSecret
	}

	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ValidateAccessToken verifies the token signature and expiry, then checks
// the revocation list when a store is given.
func ValidateAccessToken(ctx context.Context, tokenString string, secret []byte, revoked RevocationStore) (*Claims, error) {
	if len(secret) < minSecretLength {
		return nil, ErrWeakSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Prevent algorithm confusion attacks
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	if revoked != nil {
		n, err := revoked.Exists(ctx, revokedPrefix+claims.ID).Result()
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if n > 0 {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// RevokeToken blacklists the token id until the token would have expired anyway.
func RevokeToken(ctx context.Context, claims *Claims, revoked RevocationStore) error {
	ttl := AccessTokenTTL
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	return revoked.Set(ctx, revokedPrefix+claims.ID, claims.UserID, ttl).Err()
}
