package catalog

import (
	"errors"
	"time"

	"community-app/internal/domain/roles"
)

var (
	ErrNotFound        = errors.New("catalog item not found")
	ErrUnknownDuration = errors.New("unknown duration tier")
)

// Product is a marketplace listing sold through Stripe Checkout. A product
// may carry a role that gets granted for the chosen tier's day count.
type Product struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Slug        string `gorm:"not null;uniqueIndex:idx_products_slug" json:"slug"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description,omitempty"`

	BasePrice float64 `gorm:"not null" json:"base_price"`
	Currency  string  `gorm:"type:varchar(3);not null;default:'eur'" json:"currency"`

	RoleID *uint       `json:"role_id,omitempty"`
	Role   *roles.Role `json:"role,omitempty"`

	DownloadURL string `json:"download_url,omitempty"`
	Active      bool   `gorm:"not null;default:true" json:"active"`

	DurationTiers []DurationTier `json:"duration_tiers,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DurationTier is a named pricing option on a product, e.g. "1month" -> 30
// days at 9.99.
type DurationTier struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	ProductID uint    `gorm:"not null;index:idx_duration_tiers_product_id" json:"product_id"`
	Duration  string  `gorm:"not null" json:"duration"`
	Days      int     `gorm:"not null" json:"days"`
	Price     float64 `gorm:"not null" json:"price"`
}

// TierFor returns the tier matching the duration label, or ErrUnknownDuration.
// An empty duration on a product without tiers falls back to the base price
// (nil tier, no error).
func (p *Product) TierFor(duration string) (*DurationTier, error) {
	if len(p.DurationTiers) == 0 {
		if duration == "" {
			return nil, nil
		}
		return nil, ErrUnknownDuration
	}
	for i := range p.DurationTiers {
		if p.DurationTiers[i].Duration == duration {
			return &p.DurationTiers[i], nil
		}
	}
	return nil, ErrUnknownDuration
}

// Software is a legacy download listing. It is bought directly through
// POST /purchases (tokens or a manually settled payment), not via Checkout.
type Software struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`

	Price      float64 `gorm:"not null" json:"price"`
	Currency   string  `gorm:"type:varchar(3);not null;default:'eur'" json:"currency"`
	TokenPrice int     `gorm:"not null;default:0" json:"token_price"`

	DownloadURL string `json:"download_url,omitempty"`
	Active      bool   `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
