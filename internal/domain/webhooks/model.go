package webhooks

import (
	"time"

	"gorm.io/gorm"
)

// Event records a processed provider event id so redelivered webhooks can be
// acknowledged without re-running their side effects.
type Event struct {
	ID      uint   `gorm:"primaryKey"`
	EventID string `gorm:"not null;uniqueIndex:idx_webhook_events_event_id"`
	Type    string `gorm:"not null"`

	CreatedAt time.Time
}

func (Event) TableName() string { return "webhook_events" }

// Seen reports whether the provider event id was already handled.
func Seen(db *gorm.DB, eventID string) (bool, error) {
	var count int64
	err := db.Model(&Event{}).Where("event_id = ?", eventID).Count(&count).Error
	return count > 0, err
}

// Record stores the event id before its side effects run.
func Record(db *gorm.DB, eventID, eventType string) error {
	return db.Create(&Event{EventID: eventID, Type: eventType}).Error
}
