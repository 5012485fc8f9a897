package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openbasket/marketplace/internal/models"
)

const principalKey = "principal"

// Principal extracts the authenticated caller asserted by the identity
// layer via X-User-ID and X-User-Role headers. The engine trusts these
// values; verifying them is the gateway's job.
func Principal() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
		role := strings.ToLower(strings.TrimSpace(c.GetHeader("X-User-Role")))

		if userID == "" || !validRole(role) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid principal"})
			return
		}

		c.Set(principalKey, models.Principal{UserID: userID, Role: role})
		c.Next()
	}
}

// RequireRole rejects principals whose role is not in the allow list.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}
}

// PrincipalFrom returns the principal set by the Principal middleware.
func PrincipalFrom(c *gin.Context) models.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(models.Principal); ok {
			return p
		}
	}
	return models.Principal{}
}

func validRole(role string) bool {
	switch role {
	case models.RoleCustomer, models.RoleVendor, models.RoleAdmin:
		return true
	}
	return false
}
