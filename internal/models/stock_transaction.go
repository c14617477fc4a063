package models

import "time"

type TransactionType string

const (
	TxIn            TransactionType = "IN"         // Ana stok girişi
	TxUpdate        TransactionType = "UPDATE"     // Ana stok güncelleme
	TxTake          TransactionType = "TAKE"       // Kullanıcının ana stoktan alması
	TxReturn        TransactionType = "RETURN"     // Kullanıcının ana stoka iadesi
	TxTransfer      TransactionType = "TRANSFER"   // Kullanıcılar arası transfer
	TxUse           TransactionType = "USE"        // Cihazda kullanım
	TxAdjust        TransactionType = "ADJUST"     // Admin stok ayarı
	TxOtherTransfer TransactionType = "O_TRANSFER" // Doğrudan transfer
)

var TransactionTypes = []TransactionType{
	TxIn, TxUpdate, TxTake, TxReturn, TxTransfer, TxUse, TxAdjust, TxOtherTransfer,
}

func (t TransactionType) Valid() bool {
	for _, v := range TransactionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// StockTransaction değiştirilemez stok hareketi kaydı.
// Ürün silinse de geçmiş kalır: ProductID null'a çekilir, PartCode saklanır.
type StockTransaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Type         TransactionType `gorm:"column:transaction_type;size:10;not null;index" json:"transaction_type"`
	ProductID    *uint           `gorm:"index" json:"product_id"`
	Product      *Product        `gorm:"constraint:OnDelete:SET NULL" json:"product,omitempty"`
	PartCode     string          `gorm:"size:50;not null" json:"part_code"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	UserID       *uint           `gorm:"index" json:"user_id"`
	User         *User           `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	TargetUserID *uint           `gorm:"index" json:"target_user_id"`
	TargetUser   *User           `gorm:"foreignKey:TargetUserID;constraint:OnDelete:SET NULL" json:"-"`
	Timestamp    time.Time       `gorm:"not null;index" json:"timestamp"`
	Description  string          `gorm:"type:text" json:"description"`

	// İşlem sonrası ana stok miktarı
	CurrentQuantity *int `json:"current_quantity"`
	// İşlem yapan kullanıcının stoğunda kalan miktar
	CurrentUserQuantity *int `json:"current_user_quantity"`
	// Transferde alıcının stoğundaki miktar
	CurrentReceiverQuantity *int `json:"current_receiver_quantity"`
}
