package users

import (
	"net/http"
	"time"

	"community-app/database"
	"community-app/internal/domain/entitlements"
	"community-app/internal/domain/notifications"
	"community-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

type EntitlementDTO struct {
	Role      string     `json:"role"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Permanent bool       `json:"permanent"`
}

func GetCurrentUser(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user users.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func GetMyEntitlements(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	active, err := entitlements.ActiveForUser(database.DB, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load entitlements"})
		return
	}

	out := make([]EntitlementDTO, 0, len(active))
	for _, e := range active {
		out = append(out, EntitlementDTO{
			Role:      e.Role.Name,
			ExpiresAt: e.ExpiresAt,
			Permanent: e.ExpiresAt == nil,
		})
	}

	c.JSON(http.StatusOK, gin.H{"entitlements": out})
}

func GetMyNotifications(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	pending, err := notifications.PendingForUser(database.DB, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notifications"})
		return
	}

	// Reading the inbox counts as delivery.
	for _, n := range pending {
		_ = notifications.MarkDelivered(database.DB, n.ID)
	}

	c.JSON(http.StatusOK, gin.H{"notifications": pending})
}

// GetProBadge serves the badge payload for members holding an active "pro"
// entitlement; the guard sits in the route group.
func GetProBadge(c *gin.Context) {
	userID := c.GetUint("user_id")
	badge := c.GetString("badge")

	active, err := entitlements.ActiveForUser(database.DB, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load entitlements"})
		return
	}

	roleNames := make([]string, 0, len(active))
	for _, e := range active {
		roleNames = append(roleNames, e.Role.Name)
	}

	c.JSON(http.StatusOK, gin.H{
		"badge": badge,
		"roles": roleNames,
	})
}
