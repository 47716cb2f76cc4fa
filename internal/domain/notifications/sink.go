package notifications

import (
	"time"

	"gorm.io/gorm"
)

// Enqueue writes a pending notification row. Callers treat failures as
// non-fatal and only log them.
func Enqueue(db *gorm.DB, userID uint, kind, message string) error {
	n := Notification{
		UserID:  userID,
		Kind:    kind,
		Message: message,
		Status:  StatusPending,
	}
	return db.Create(&n).Error
}

// PendingForUser returns undelivered notifications, oldest first.
func PendingForUser(db *gorm.DB, userID uint) ([]Notification, error) {
	var out []Notification
	err := db.Where("user_id = ? AND status = ?", userID, StatusPending).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// MarkDelivered flips a row once the sink has picked it up.
func MarkDelivered(db *gorm.DB, id uint) error {
	now := time.Now()
	return db.Model(&Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       StatusDelivered,
			"delivered_at": now,
		}).Error
}
