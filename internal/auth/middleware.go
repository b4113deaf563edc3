package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/KevinKickass/OpenPowerCore/internal/config"
	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// BearerToken extracts the token from "Authorization: Bearer <token>". The
// websocket endpoint may pass it as ?token= since browsers cannot set
// headers on upgrade requests.
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, true
		}
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware validates tokens and stores the principal in the context.
// With auth disabled every request runs with admin permissions.
func (a *AuthService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.enabled {
			c.Set(principalKey, &Principal{
				Username:    "anonymous",
				Role:        config.RoleAdmin,
				Permissions: RoleToPermissions(config.RoleAdmin),
			})
			c.Next()
			return
		}

		token, ok := BearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "missing or malformed authorization header",
			})
			c.Abort()
			return
		}

		principal, err := a.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequirePermission checks if user has required permission
func RequirePermission(required Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "no permissions found",
			})
			c.Abort()
			return
		}

		if !slices.Contains(principal.Permissions, required) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":    "insufficient permissions",
				"required": string(required),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func GetPrincipal(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok
}
