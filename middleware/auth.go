package middleware

import (
	"docqa-backend/internal/auth"
	"docqa-backend/internal/logger"
	"docqa-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	userIDKey = "user_id"
	claimsKey = "claims"
)

type AuthMiddleware struct {
	secret  []byte
	revoked auth.RevocationStore
}

// NewAuthMiddleware validates tokens with secret. rdb may be nil, which
// disables the revocation check.
func NewAuthMiddleware(secret string, rdb *redis.Client) *AuthMiddleware {
	a := &AuthMiddleware{secret: []byte(secret)}
	if rdb != nil {
		a.revoked = rdb
	}
	return a
}

func tokenFromRequest(c *gin.Context) string {
	if token := utils.ExtractTokenFromHeader(c.GetHeader("Authorization")); token != "" {
		return token
	}
	if cookie, err := c.Cookie("access_token"); err == nil {
		return cookie
	}
	return ""
}

func (a *AuthMiddleware) authenticate(c *gin.Context) (*auth.Claims, error) {
	token := tokenFromRequest(c)
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	return auth.ValidateAccessToken(c.Request.Context(), token, a.secret, a.revoked)
}

// RequireAuth rejects requests without a valid access token.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := a.authenticate(c)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Authentication token is required")
			c.Abort()
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// OptionalAuth records the caller's identity when a valid token is present
// and otherwise lets the request through unauthenticated.
func (a *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenFromRequest(c) != "" {
			claims, err := a.authenticate(c)
			if err == nil {
				c.Set(userIDKey, claims.UserID)
				c.Set(claimsKey, claims)
			} else {
				logger.Debug("Ignoring invalid access token", "request_id", GetRequestID(c), "error", err)
			}
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user id, or "" for anonymous requests.
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get(userIDKey); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}

// GetClaims returns the validated token claims, if any.
func GetClaims(c *gin.Context) *auth.Claims {
	if v, exists := c.Get(claimsKey); exists {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
