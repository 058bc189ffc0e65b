package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bioage-mcp-server/internal/domain"
)

// Authenticate resolves the owner of each request. With auth enabled it
// requires an HS256 bearer token whose subject is the owner id; otherwise the
// owner is taken from the X-User-ID header.
func Authenticate(config domain.AuthConfig) gin.HandlerFunc {
	secret := []byte(config.JWTSecret)

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		if !config.Enabled {
			ownerID := strings.TrimSpace(c.GetHeader("X-User-ID"))
			if ownerID == "" {
				abortUnauthorized(c, "X-User-ID header is required")
				return
			}
			c.Set(OwnerIDKey, ownerID)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			abortUnauthorized(c, "bearer token is required")
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := parser.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(token *jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		if claims.Subject == "" {
			abortUnauthorized(c, "token has no subject")
			return
		}

		c.Set(OwnerIDKey, claims.Subject)
		c.Next()
	}
}

// OwnerID returns the authenticated owner of the request.
func OwnerID(c *gin.Context) string {
	return c.GetString(OwnerIDKey)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, domain.NewAPIError(
		domain.ErrCodeAuthentication,
		"Authentication required",
		message,
		c.GetString(CorrelationIDKey),
	))
}

// SignToken issues an HS256 token for ownerID. Tokens are normally issued by
// the identity provider; this is used by tooling and tests.
func SignToken(config domain.AuthConfig, ownerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   ownerID,
		Issuer:    config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.JWTSecret))
}
