package purchases

import (
	"errors"
	"time"

	"community-app/internal/domain/catalog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreatePendingForProduct snapshots the tier price (base price when the
// product has no tier table) and writes a Pending ledger row with a fresh
// license key.
func CreatePendingForProduct(db *gorm.DB, userID uint, product *catalog.Product, duration string, paymentMethod string) (*Purchase, error) {
	if !product.Active {
		return nil, catalog.ErrNotFound
	}

	amount := product.BasePrice
	tier, err := product.TierFor(duration)
	if err != nil {
		return nil, err
	}
	if tier != nil {
		amount = tier.Price
	}

	p := Purchase{
		UserID:        userID,
		ProductID:     &product.ID,
		Duration:      duration,
		Amount:        amount,
		Currency:      product.Currency,
		PaymentMethod: paymentMethod,
		Status:        StatusPending,
		MaxDownloads:  DefaultMaxDownloads,
		LicenseKey:    uuid.NewString(),
	}
	if err := db.Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePendingForSoftware is the legacy-listing counterpart; software has a
// flat price and no duration tiers.
func CreatePendingForSoftware(db *gorm.DB, userID uint, sw *catalog.Software, paymentMethod string) (*Purchase, error) {
	if !sw.Active {
		return nil, catalog.ErrNotFound
	}

	p := Purchase{
		UserID:        userID,
		SoftwareID:    &sw.ID,
		Amount:        sw.Price,
		Currency:      sw.Currency,
		PaymentMethod: paymentMethod,
		Status:        StatusPending,
		MaxDownloads:  DefaultMaxDownloads,
		LicenseKey:    uuid.NewString(),
	}
	if err := db.Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func GetByID(db *gorm.DB, id uint) (*Purchase, error) {
	var p Purchase
	err := db.Preload("Product.DurationTiers").Preload("Software").First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func GetByStripeSessionID(db *gorm.DB, sessionID string) (*Purchase, error) {
	var p Purchase
	err := db.Where("stripe_session_id = ?", sessionID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func GetByStripePaymentIntentID(db *gorm.DB, paymentIntentID string) (*Purchase, error) {
	var p Purchase
	err := db.Where("stripe_payment_intent_id = ?", paymentIntentID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// HasCompletedForSoftware reports whether the buyer already owns the listing.
// Pending retries do not count as ownership.
func HasCompletedForSoftware(db *gorm.DB, userID, softwareID uint) (bool, error) {
	var count int64
	err := db.Model(&Purchase{}).
		Where("user_id = ? AND software_id = ? AND status = ?", userID, softwareID, StatusCompleted).
		Count(&count).Error
	return count > 0, err
}

// MarkCompleted transitions Pending -> Completed. Replaying a completion is
// a no-op (alreadyCompleted=true) so webhook redelivery cannot double-grant.
// Any other starting status is rejected.
func MarkCompleted(db *gorm.DB, id uint, transactionID string) (p *Purchase, alreadyCompleted bool, err error) {
	p, err = GetByID(db, id)
	if err != nil {
		return nil, false, err
	}

	switch p.Status {
	case StatusCompleted:
		return p, true, nil
	case StatusPending:
	default:
		return nil, false, ErrInvalidTransition
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       StatusCompleted,
		"completed_at": now,
	}
	if transactionID != "" {
		updates["transaction_id"] = transactionID
	}
	if err := db.Model(&Purchase{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, false, err
	}

	p.Status = StatusCompleted
	p.CompletedAt = &now
	if transactionID != "" {
		p.TransactionID = &transactionID
	}
	return p, false, nil
}

// MarkFailed transitions Pending -> Failed and keeps the provider's failure
// message in notes.
func MarkFailed(db *gorm.DB, id uint, reason string) error {
	return markTerminal(db, id, StatusPending, StatusFailed, reason)
}

// MarkCancelled transitions Pending -> Cancelled (buyer abandoned checkout).
func MarkCancelled(db *gorm.DB, id uint, reason string) error {
	return markTerminal(db, id, StatusPending, StatusCancelled, reason)
}

// MarkRefunded transitions Completed -> Refunded, the one backward-looking
// transition the ledger allows.
func MarkRefunded(db *gorm.DB, id uint, reason string) error {
	return markTerminal(db, id, StatusCompleted, StatusRefunded, reason)
}

func markTerminal(db *gorm.DB, id uint, from, to, reason string) error {
	p, err := GetByID(db, id)
	if err != nil {
		return err
	}
	if p.Status != from {
		return ErrInvalidTransition
	}

	updates := map[string]interface{}{"status": to}
	if reason != "" {
		updates["notes"] = reason
	}
	return db.Model(&Purchase{}).Where("id = ?", id).Updates(updates).Error
}

// RecordDownload increments the counter. The WHERE guard keeps
// download_count <= max_downloads even when two redeems race.
func RecordDownload(db *gorm.DB, id uint) error {
	res := db.Model(&Purchase{}).
		Where("id = ? AND download_count < max_downloads", id).
		Updates(map[string]interface{}{
			"download_count":   gorm.Expr("download_count + 1"),
			"last_download_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := GetByID(db, id); err != nil {
			return err
		}
		return ErrLimitExceeded
	}
	return nil
}

// CheckDownload mirrors IsDownloadAllowed but reports which gate failed.
// Evaluation order is fixed: status, then counter, then expiry.
func CheckDownload(p *Purchase) error {
	if p.Status != StatusCompleted {
		return ErrNotCompleted
	}
	if p.DownloadCount >= p.MaxDownloads {
		return ErrLimitExceeded
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(time.Now()) {
		return ErrExpired
	}
	return nil
}

func IsDownloadAllowed(p *Purchase) bool {
	return CheckDownload(p) == nil
}
