package middleware

import (
	"net/http"
	"strings"

	"github.com/carelinkhq/carelink/internal/domain"
	"github.com/carelinkhq/carelink/pkg/auth"
	"github.com/gin-gonic/gin"
)

const claimsKey = "carelink.claims"

// Auth validates the bearer token and stores the claims on the request
// context. Requests without a valid access token are rejected.
func Auth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the authenticated claims set by Auth.
func ClaimsFrom(c *gin.Context) (*domain.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*domain.Claims)
	return claims, ok
}
