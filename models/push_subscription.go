package models

import (
	"time"
)

// PushSubscription holds one browser's Web Push registration. A user has one
// row per browser they enabled notifications on; the endpoint is the key, so
// re-subscribing from the same browser updates the row in place.
type PushSubscription struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Endpoint  string    `json:"endpoint" gorm:"uniqueIndex;not null"`
	P256DH    string    `json:"p256dh" gorm:"column:p256dh;not null"`
	Auth      string    `json:"auth" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
