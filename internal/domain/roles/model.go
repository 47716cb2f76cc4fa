package roles

import "time"

// Role is a named permission bundle. Products reference a role to grant it
// on purchase; entitlements bind users to roles.
type Role struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null;uniqueIndex:idx_roles_name" json:"name"`
	Description string `json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
