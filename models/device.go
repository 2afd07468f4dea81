package models

import (
	"time"
)

// Device rows are hard-deleted: the external id is unique for the lifetime of
// the system, and a deleted unit must be registrable again.
type Device struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	DeviceID     string     `json:"device_id" gorm:"uniqueIndex;not null"` // external id flashed on the unit, used in MQTT topics
	OwnerID      uint       `json:"owner_id" gorm:"not null;index"`
	Name         string     `json:"name" gorm:"not null"`
	Status       string     `json:"status" gorm:"default:offline"` // online, offline
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	LastMotionAt *time.Time `json:"last_motion_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
