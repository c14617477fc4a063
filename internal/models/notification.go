package models

import "time"

// DeviceToken mobil uygulamanın push bildirimi için kaydettiği cihaz token'ı.
// Token tekildir; başka kullanıcı aynı cihazdan giriş yaparsa token ona geçer.
type DeviceToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Token     string    `gorm:"size:255;not null;uniqueIndex" json:"token"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NotificationLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	Recipients int       `gorm:"not null;default:0" json:"recipients"`
	Failed     int       `gorm:"not null;default:0" json:"failed"`
	SentAt     time.Time `gorm:"not null;index" json:"sent_at"`
}

// AppSettings tek satırlık uygulama ayarları (ID her zaman 1).
type AppSettings struct {
	ID                 uint      `gorm:"primaryKey" json:"-"`
	CriticalStockEmail string    `gorm:"size:255;not null" json:"critical_stock_email"`
	ExportStockEmail   string    `gorm:"size:255;not null" json:"export_stock_email"`
	UpdatedAt          time.Time `json:"updated_at"`
}
