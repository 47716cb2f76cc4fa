package users

import "time"

type User struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	Name         string  `json:"name"`
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email" json:"email"`
	Password     *string `gorm:"" json:"-"`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'" json:"auth_provider"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub" json:"-"`
	Role         string  `json:"role"`

	// Badge shown next to the handle across the platform; purchases can
	// upgrade it through granted roles.
	Badge string `gorm:"not null;default:'member'" json:"badge"`

	// Spendable reward tokens. Mutated only through the tokens package.
	TokenBalance int `gorm:"not null;default:0" json:"token_balance"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
