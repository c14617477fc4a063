package models

import "time"

// Product ana stokta tutulan parça.
type Product struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PartCode string `gorm:"size:50;not null;uniqueIndex" json:"part_code"`
	Name     string `gorm:"size:200;not null" json:"name"`
	Cabinet  string `gorm:"size:5" json:"cabinet"`
	Shelf    string `gorm:"size:5" json:"shelf"`
	Quantity int    `gorm:"not null;default:0;check:chk_products_quantity,quantity >= 0" json:"quantity"`
	// 0 ise ürün sadece tamamen bittiğinde kritik sayılır.
	MinLimit    int       `gorm:"not null;default:0" json:"min_limit"`
	OrderPlaced bool      `gorm:"not null;default:false" json:"order_placed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsCritical miktar eşik değerine eşit ya da altındaysa true döner.
func (p *Product) IsCritical() bool {
	return p.Quantity <= p.MinLimit
}

// ExternalProduct tedarikçi fiyat listesindeki parça (stokta tutulmaz).
type ExternalProduct struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	PartCode  string  `gorm:"size:50;not null;uniqueIndex" json:"part_code"`
	Name      string  `gorm:"size:200;not null" json:"name"`
	Devices   string  `gorm:"size:500" json:"devices"` // virgülle ayrılmış cihaz listesi
	UnitPrice float64 `gorm:"type:decimal(10,2);not null;default:0" json:"unit_price"`
}
