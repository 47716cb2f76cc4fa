package notifications

import "time"

const (
	KindPurchase    = "purchase"
	KindTokenReward = "token_reward"
)

const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
)

// Notification is an outbox row. Writers enqueue and move on; delivery picks
// up pending rows separately, so a failed send never blocks the purchase
// flow and can be retried.
type Notification struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  uint   `gorm:"not null;index:idx_notifications_user_id" json:"user_id"`
	Kind    string `gorm:"type:varchar(30);not null" json:"kind"`
	Message string `gorm:"not null" json:"message"`
	Status  string `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}
