package models

import (
	"time"
)

type User struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ExternalID string    `json:"-" gorm:"uniqueIndex;not null"` // subject id from the OAuth provider
	Email      string    `json:"email" gorm:"uniqueIndex;not null"`
	Name       string    `json:"name"`
	IsAdmin    bool      `json:"is_admin" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
