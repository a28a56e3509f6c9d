package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"checkclass/internal/domain"
)

const principalKey = "principal"

// Authenticate enforces bearer JWT tokens signed with HS256 and stores the caller's
// principal in the request context.
func Authenticate(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
		c.Set(principalKey, claims.Principal())
		c.Next()
	}
}

// PrincipalFrom returns the authenticated caller.
func PrincipalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

// RequireCapability rejects callers whose role lacks the capability.
func RequireCapability(want domain.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "not signed in"})
			return
		}
		if err := domain.Require(p.Role, want); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": domain.Message(err)})
			return
		}
		c.Next()
	}
}
