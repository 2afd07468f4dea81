package models

import (
	"time"
)

// StreamSession is a time-boxed grant to watch one device's live stream.
// A session is usable only while Active is set and now < ExpiresAt; expiry
// is checked at read time, no background sweeper flips the flag.
//
// Active is nullable on purpose: live rows hold true, stopped rows hold
// NULL. NULLs never collide under a unique index, so the composite index
// below lets any number of finished sessions pile up per (device, user)
// while the database itself rejects a second concurrent live one.
type StreamSession struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	SessionID string    `json:"session_id" gorm:"uniqueIndex;not null"`
	DeviceID  uint      `json:"device_id" gorm:"not null;uniqueIndex:idx_session_device_user_active"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_session_device_user_active"`
	Active    *bool     `json:"active" gorm:"uniqueIndex:idx_session_device_user_active"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
