package models

import (
	"time"
)

// MotionVideo links a clip uploaded by the capture pipeline to the device
// (and optionally the motion event) it was recorded for. The bytes live in
// the video store under ObjectKey; this row is just the index.
type MotionVideo struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	DeviceID      uint      `json:"device_id" gorm:"not null;index"`
	MotionEventID *uint     `json:"motion_event_id,omitempty" gorm:"index"`
	ObjectKey     string    `json:"-" gorm:"not null"`
	ContentType   string    `json:"content_type" gorm:"default:video/mp4"`
	DurationSec   int       `json:"duration_sec"`
	CreatedAt     time.Time `json:"created_at"`
}
