package models

// UserStock kullanıcının elinde tuttuğu parça miktarı. Miktar 0'a düşünce satır silinir.
type UserStock struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	UserID    uint    `gorm:"not null;uniqueIndex:idx_user_stocks_user_product" json:"user_id"`
	User      User    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ProductID uint    `gorm:"not null;uniqueIndex:idx_user_stocks_user_product" json:"product_id"`
	Product   Product `gorm:"constraint:OnDelete:CASCADE" json:"product"`
	Quantity  int     `gorm:"not null;default:0;check:chk_user_stocks_quantity,quantity >= 0" json:"quantity"`
}
