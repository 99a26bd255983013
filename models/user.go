package models

import (
	"time"
)

// User is a registered player. GameUID, GameName and MobileNumber are saved
// back from the registration form (best effort) so future registrations can
// be pre-filled.
type User struct {
	ID           string `json:"id" gorm:"primaryKey"`
	Name         string `json:"name" gorm:"not null"`
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	PhotoURL     string `json:"photo_url"`

	GameUID      string `json:"game_uid"`
	GameName     string `json:"game_name"`
	MobileNumber string `json:"mobile_number"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
