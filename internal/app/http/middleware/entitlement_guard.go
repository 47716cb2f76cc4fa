package middleware

import (
	"net/http"

	"community-app/database"
	"community-app/internal/domain/entitlements"

	"github.com/gin-gonic/gin"
)

// RequireEntitlement gates a route on an active role assignment. Expired
// assignments are treated the same as missing ones.
func RequireEntitlement(roleName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ok, err := entitlements.HasActiveRole(database.DB, userID, roleName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to check entitlements"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "This area requires an active " + roleName + " entitlement",
			})
			return
		}

		c.Next()
	}
}
