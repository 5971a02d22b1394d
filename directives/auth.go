package directives

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/mmdatafocus/disaster_backend/utils"
)

// RequireAuth rejects requests that carry no valid token.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, ok := utils.GetUserIdFromContext(c.Request.Context())
		if !ok || userId <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access Denied"})
			return
		}
		c.Next()
	}
}

// RequireRole allows only the listed roles. It implies RequireAuth.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		userId, ok := utils.GetUserIdFromContext(c.Request.Context())
		if !ok || userId <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access Denied"})
			return
		}
		raw, _ := utils.GetUserRoleFromContext(c.Request.Context())
		role, err := models.ParseUserRole(raw)
		if err != nil || !allowed[role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
