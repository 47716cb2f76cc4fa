package entitlements

import (
	"time"

	"community-app/internal/domain/roles"
)

// Entitlement binds a user to a role until ExpiresAt (nil = permanent).
// Rows are write-once: a repeat purchase stacks a new assignment instead of
// extending the old one, and expired rows are simply left behind.
type Entitlement struct {
	ID     uint       `gorm:"primaryKey" json:"id"`
	UserID uint       `gorm:"not null;index:idx_entitlements_user_id" json:"user_id"`
	RoleID uint       `gorm:"not null" json:"role_id"`
	Role   roles.Role `json:"role"`

	PurchaseID *uint `json:"purchase_id,omitempty"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Active reports whether the assignment is still in force at the given time.
func (e *Entitlement) Active(at time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(at)
}
