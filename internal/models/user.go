package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:100;index" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DailyAccessCode kayıt olurken istenen, her gün yenilenen kod.
type DailyAccessCode struct {
	ID   uint      `gorm:"primaryKey"`
	Code string    `gorm:"size:10;not null"`
	Date time.Time `gorm:"type:date;uniqueIndex;not null"`
}
