package entitlements

import (
	"time"

	"community-app/internal/domain/purchases"

	"gorm.io/gorm"
)

// Grant writes a new role assignment. Positive durationDays sets
// expires_at = now + days; zero or negative means permanent. When the grant
// originates from a purchase the computed expiry is copied onto the ledger
// row so both sides lapse together.
func Grant(db *gorm.DB, userID, roleID uint, durationDays int, purchaseID *uint) (*Entitlement, error) {
	var expiresAt *time.Time
	if durationDays > 0 {
		t := time.Now().AddDate(0, 0, durationDays)
		expiresAt = &t
	}

	e := Entitlement{
		UserID:     userID,
		RoleID:     roleID,
		PurchaseID: purchaseID,
		ExpiresAt:  expiresAt,
	}
	if err := db.Create(&e).Error; err != nil {
		return nil, err
	}

	if purchaseID != nil && expiresAt != nil {
		if err := db.Model(&purchases.Purchase{}).
			Where("id = ?", *purchaseID).
			Update("expires_at", expiresAt).Error; err != nil {
			return nil, err
		}
	}

	return &e, nil
}

// ActiveForUser returns the user's role assignments still in force.
func ActiveForUser(db *gorm.DB, userID uint) ([]Entitlement, error) {
	var all []Entitlement
	err := db.Preload("Role").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&all).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	active := make([]Entitlement, 0, len(all))
	for _, e := range all {
		if e.Active(now) {
			active = append(active, e)
		}
	}
	return active, nil
}

// HasActiveRole is the authorization primitive the rest of the system uses.
func HasActiveRole(db *gorm.DB, userID uint, roleName string) (bool, error) {
	active, err := ActiveForUser(db, userID)
	if err != nil {
		return false, err
	}
	for _, e := range active {
		if e.Role.Name == roleName {
			return true, nil
		}
	}
	return false, nil
}
