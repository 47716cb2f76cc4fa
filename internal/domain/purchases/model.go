package purchases

import (
	"errors"
	"time"

	"community-app/internal/domain/catalog"
	"community-app/internal/domain/users"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
	StatusCancelled = "cancelled"
)

const DefaultMaxDownloads = 5

var (
	ErrNotFound          = errors.New("purchase not found")
	ErrNotCompleted      = errors.New("purchase is not completed")
	ErrLimitExceeded     = errors.New("download limit reached")
	ErrExpired           = errors.New("purchase access has expired")
	ErrInvalidTransition = errors.New("invalid purchase status transition")
)

// Purchase is one row per purchase attempt. It is created Pending and only
// ever moves forward: Pending -> Completed/Failed/Cancelled, and
// Completed -> Refunded. Amount and currency are snapshotted at creation and
// never touched again.
type Purchase struct {
	ID     uint       `gorm:"primaryKey" json:"id"`
	UserID uint       `gorm:"not null;index:idx_purchases_user_id" json:"user_id"`
	User   users.User `json:"-"`

	ProductID  *uint             `gorm:"index:idx_purchases_product_id" json:"product_id,omitempty"`
	Product    *catalog.Product  `json:"product,omitempty"`
	SoftwareID *uint             `gorm:"index:idx_purchases_software_id" json:"software_id,omitempty"`
	Software   *catalog.Software `json:"software,omitempty"`

	// Duration tier label chosen at checkout ("1month"); empty for
	// base-price purchases.
	Duration string `json:"duration,omitempty"`

	Amount        float64 `gorm:"not null" json:"amount"`
	Currency      string  `gorm:"type:varchar(3);not null" json:"currency"`
	PaymentMethod string  `gorm:"type:varchar(20);not null" json:"payment_method"`

	Status string `gorm:"type:varchar(20);not null;default:'pending';index:idx_purchases_status" json:"status"`

	// External correlation. Session and payment intent ids come from the
	// gateway; TransactionID is the provider-agnostic settlement reference.
	StripeSessionID       *string `gorm:"uniqueIndex:idx_purchases_stripe_session_id" json:"stripe_session_id,omitempty"`
	StripePaymentIntentID *string `gorm:"index:idx_purchases_stripe_payment_intent_id" json:"stripe_payment_intent_id,omitempty"`
	TransactionID         *string `json:"transaction_id,omitempty"`

	DownloadCount  int        `gorm:"not null;default:0" json:"download_count"`
	MaxDownloads   int        `gorm:"not null;default:5" json:"max_downloads"`
	LastDownloadAt *time.Time `json:"last_download_at,omitempty"`

	// ExpiresAt mirrors the entitlement expiry for role-granting products;
	// nil means access never lapses. Once set it is never cleared.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	LicenseKey string  `gorm:"not null" json:"license_key"`
	Notes      *string `json:"notes,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DownloadTarget picks the download URL of whichever catalog item the
// purchase references.
func (p *Purchase) DownloadTarget() string {
	if p.Product != nil && p.Product.DownloadURL != "" {
		return p.Product.DownloadURL
	}
	if p.Software != nil {
		return p.Software.DownloadURL
	}
	return ""
}
