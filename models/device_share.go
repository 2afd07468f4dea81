package models

import (
	"time"
)

const (
	RoleOwner  = "owner"
	RoleViewer = "viewer"
)

// DeviceShare grants a user viewer access to someone else's device.
// The owner's rights come from Device.OwnerID and never appear as a row here.
type DeviceShare struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	DeviceID  uint      `json:"device_id" gorm:"not null;uniqueIndex:idx_share_device_user"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_share_device_user"`
	Role      string    `json:"role" gorm:"default:viewer"`
	CreatedAt time.Time `json:"created_at"`
}
