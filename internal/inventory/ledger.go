package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/metrics"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger ana stok, kullanıcı stokları ve stok hareketlerini birlikte günceller.
// Her işlem tek bir veritabanı transaction'ı içinde çalışır; kontroller
// herhangi bir yazmadan önce yapılır.
type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: func() time.Time { return time.Now().UTC() }}
}

type AddStockInput struct {
	PartCode string
	Name     string // ürün yoksa zorunlu
	Cabinet  string
	Shelf    string
	MinLimit *int
	Quantity int
}

type UpdateProductInput struct {
	Name     *string
	Cabinet  *string
	Shelf    *string
	Quantity *int
	MinLimit *int
}

func (l *Ledger) run(ctx context.Context, txType models.TransactionType, fn func(tx *gorm.DB) error) error {
	err := l.db.WithContext(ctx).Transaction(fn)
	metrics.ObserveLedger(string(txType), err)
	return apperr.Store("stok işlemi kaydedilemedi", err)
}

// AdminAdd ana stoka giriş yapar. Parça kodu yoksa ürün oluşturulur.
func (l *Ledger) AdminAdd(ctx context.Context, actorID uint, in AddStockInput) (*models.StockTransaction, error) {
	in.PartCode = strings.TrimSpace(in.PartCode)
	in.Name = strings.TrimSpace(in.Name)
	if in.PartCode == "" {
		return nil, apperr.Validation("part_code zorunlu")
	}
	if in.Quantity <= 0 {
		return nil, apperr.Validation("miktar pozitif olmalı")
	}
	if in.MinLimit != nil && *in.MinLimit < 0 {
		return nil, apperr.Validation("min_limit negatif olamaz")
	}

	var rec *models.StockTransaction
	err := l.run(ctx, models.TxIn, func(tx *gorm.DB) error {
		var p models.Product
		err := lockQuery(tx).Where("part_code = ?", in.PartCode).First(&p).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if in.Name == "" {
				return apperr.Validation("yeni ürün için isim zorunlu: %s", in.PartCode)
			}
			p = models.Product{PartCode: in.PartCode, Name: in.Name, Cabinet: in.Cabinet, Shelf: in.Shelf}
			if in.MinLimit != nil {
				p.MinLimit = *in.MinLimit
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		p.Quantity += in.Quantity
		if err := tx.Model(&p).Update("quantity", p.Quantity).Error; err != nil {
			return err
		}

		rec = newTx(models.TxIn, &p, in.Quantity, &actorID, l.now())
		rec.Description = "Ana stok girişi"
		rec.CurrentQuantity = intPtr(p.Quantity)
		return tx.Create(rec).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// AdminAdjust ana stok miktarını doğrudan verilen değere çeker.
func (l *Ledger) AdminAdjust(ctx context.Context, actorID, productID uint, newQuantity int) (*models.StockTransaction, error) {
	if newQuantity < 0 {
		return nil, apperr.Validation("miktar negatif olamaz")
	}

	var rec *models.StockTransaction
	err := l.run(ctx, models.TxAdjust, func(tx *gorm.DB) error {
		p, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}
		delta := newQuantity - p.Quantity
		if err := tx.Model(p).Update("quantity", newQuantity).Error; err != nil {
			return err
		}
		p.Quantity = newQuantity

		rec = newTx(models.TxAdjust, p, abs(delta), &actorID, l.now())
		rec.Description = fmt.Sprintf("Admin stok ayarı (%+d)", delta)
		rec.CurrentQuantity = intPtr(newQuantity)
		return tx.Create(rec).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// AdminUpdateStock ürün alanlarını günceller. Miktar değişirse UPDATE kaydı yazılır.
func (l *Ledger) AdminUpdateStock(ctx context.Context, actorID, productID uint, in UpdateProductInput) (*models.Product, *models.StockTransaction, error) {
	if in.Quantity != nil && *in.Quantity < 0 {
		return nil, nil, apperr.Validation("miktar negatif olamaz")
	}
	if in.MinLimit != nil && *in.MinLimit < 0 {
		return nil, nil, apperr.Validation("min_limit negatif olamaz")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, nil, apperr.Validation("isim boş olamaz")
	}

	var (
		product *models.Product
		rec     *models.StockTransaction
	)
	err := l.run(ctx, models.TxUpdate, func(tx *gorm.DB) error {
		p, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
			updates["name"] = p.Name
		}
		if in.Cabinet != nil {
			p.Cabinet = *in.Cabinet
			updates["cabinet"] = p.Cabinet
		}
		if in.Shelf != nil {
			p.Shelf = *in.Shelf
			updates["shelf"] = p.Shelf
		}
		if in.MinLimit != nil {
			p.MinLimit = *in.MinLimit
			updates["min_limit"] = p.MinLimit
		}
		delta := 0
		if in.Quantity != nil {
			delta = *in.Quantity - p.Quantity
			p.Quantity = *in.Quantity
			updates["quantity"] = p.Quantity
		}
		if len(updates) > 0 {
			if err := tx.Model(p).Updates(updates).Error; err != nil {
				return err
			}
		}
		product = p

		if delta == 0 {
			return nil
		}
		rec = newTx(models.TxUpdate, p, abs(delta), &actorID, l.now())
		rec.Description = fmt.Sprintf("Ana stok güncelleme (%+d)", delta)
		rec.CurrentQuantity = intPtr(p.Quantity)
		return tx.Create(rec).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return product, rec, nil
}

// AdminUpdateMinLimit kritik stok eşiğini değiştirir; stok hareketi yazılmaz.
func (l *Ledger) AdminUpdateMinLimit(ctx context.Context, productID uint, minLimit int) (*models.Product, error) {
	if minLimit < 0 {
		return nil, apperr.Validation("min_limit negatif olamaz")
	}
	var p models.Product
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}
		p = *locked
		p.MinLimit = minLimit
		return tx.Model(&p).Update("min_limit", minLimit).Error
	})
	if err != nil {
		return nil, apperr.Store("min_limit güncellenemedi", err)
	}
	return &p, nil
}

// ToggleOrderPlaced sipariş verildi işaretini tersine çevirir.
func (l *Ledger) ToggleOrderPlaced(ctx context.Context, productID uint) (*models.Product, error) {
	var p models.Product
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}
		p = *locked
		p.OrderPlaced = !p.OrderPlaced
		return tx.Model(&p).Update("order_placed", p.OrderPlaced).Error
	})
	if err != nil {
		return nil, apperr.Store("sipariş durumu güncellenemedi", err)
	}
	return &p, nil
}

// AdminAdjustUserStock kullanıcının elindeki miktarı doğrudan ayarlar.
func (l *Ledger) AdminAdjustUserStock(ctx context.Context, actorID, userID, productID uint, newQuantity int) (*models.StockTransaction, error) {
	if newQuantity < 0 {
		return nil, apperr.Validation("miktar negatif olamaz")
	}

	var rec *models.StockTransaction
	err := l.run(ctx, models.TxAdjust, func(tx *gorm.DB) error {
		p, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}
		if err := ensureUser(tx, userID); err != nil {
			return err
		}
		us, err := lockUserStock(tx, userID, productID)
		if err != nil {
			return err
		}
		delta := newQuantity - us.Quantity
		if err := saveUserStock(tx, us, newQuantity); err != nil {
			return err
		}

		rec = newTx(models.TxAdjust, p, abs(delta), &actorID, l.now())
		rec.TargetUserID = &userID
		rec.Description = fmt.Sprintf("Admin kullanıcı stoğu ayarı (%+d)", delta)
		rec.CurrentQuantity = intPtr(p.Quantity)
		rec.CurrentUserQuantity = intPtr(newQuantity)
		return tx.Create(rec).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Take kullanıcı ana stoktan parça alır.
func (l *Ledger) Take(ctx context.Context, userID, productID uint, quantity int) (*models.StockTransaction, error) {
	if quantity <= 0 {
		return nil, apperr.Validation("miktar pozitif olmalı")
	}

	var rec *models.StockTransaction
	err := l.run(ctx, models.TxTake, func(tx *gorm.DB) error {
		p, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}
		if p.Quantity < quantity {
			return apperr.InsufficientStock("ana stokta yeterli ürün yok: %s (mevcut %d, istenen %d)", p.PartCode, p.Quantity, quantity)
		}
		us, err := lockUserStock(tx, userID, productID)
		if err != nil {
			return err
		}

		p.Quantity -= quantity
		if err := tx.Model(p).Update("quantity", p.Quantity).Error; err != nil {
			return err
		}
		if err := saveUserStock(tx, us, us.Quantity+quantity); err != nil {
			return err
		}

		rec = newTx(models.TxTake, p, quantity, &userID, l.now())
		rec.Description = "Ana stoktan alındı"
		rec.CurrentQuantity = intPtr(p.Quantity)
		rec.CurrentUserQuantity = intPtr(us.Quantity)
		return tx.Create(rec).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Return kullanıcı elindeki parçayı ana stoka iade eder.
func (l *Ledger) Return(ctx context.Context, userID, productID uint, quantity int) (*models.StockTransaction, error) {
	if quantity <= 0 {
		return nil, apperr.Validation("miktar pozitif olmalı")
	}

	var rec *models.StockTransaction
	err := l.run(ctx, models.TxReturn, func(tx *gorm.DB) error {
		p, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}
		us, err := lockUserStock(tx, userID, productID)
		if err != nil {
			return err
		}
		if us.Quantity < quantity {
			return apperr.InsufficientStock("kişisel stokta yeterli ürün yok: %s (mevcut %d, istenen %d)", p.PartCode, us.Quantity, quantity)
		}

		if err := saveUserStock(tx, us, us.Quantity-quantity); err != nil {
			return err
		}
		p.Quantity += quantity
		if err := tx.Model(p).Update("quantity", p.Quantity).Error; err != nil {
			return err
		}

		rec = newTx(models.TxReturn, p, quantity, &userID, l.now())
		rec.Description = "Ana stoka iade edildi"
		rec.CurrentQuantity = intPtr(p.Quantity)
		rec.CurrentUserQuantity = intPtr(us.Quantity)
		return tx.Create(rec).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Transfer kullanıcılar arası parça aktarır. direct true ise O_TRANSFER olarak kaydedilir.
func (l *Ledger) Transfer(ctx context.Context, fromUserID, toUserID, productID uint, quantity int, direct bool) (*models.StockTransaction, error) {
	if quantity <= 0 {
		return nil, apperr.Validation("miktar pozitif olmalı")
	}
	if fromUserID == toUserID {
		return nil, apperr.Validation("kullanıcı kendine transfer yapamaz")
	}
	txType := models.TxTransfer
	if direct {
		txType = models.TxOtherTransfer
	}

	var rec *models.StockTransaction
	err := l.run(ctx, txType, func(tx *gorm.DB) error {
		p, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}
		if err := ensureUser(tx, toUserID); err != nil {
			return err
		}

		// Kilitleme sırası sabit: önce küçük kullanıcı id'si
		first, second := fromUserID, toUserID
		if second < first {
			first, second = second, first
		}
		a, err := lockUserStock(tx, first, productID)
		if err != nil {
			return err
		}
		b, err := lockUserStock(tx, second, productID)
		if err != nil {
			return err
		}
		src, dst := a, b
		if src.UserID != fromUserID {
			src, dst = b, a
		}

		if src.Quantity < quantity {
			return apperr.InsufficientStock("kişisel stokta yeterli ürün yok: %s (mevcut %d, istenen %d)", p.PartCode, src.Quantity, quantity)
		}
		if err := saveUserStock(tx, src, src.Quantity-quantity); err != nil {
			return err
		}
		if err := saveUserStock(tx, dst, dst.Quantity+quantity); err != nil {
			return err
		}

		rec = newTx(txType, p, quantity, &fromUserID, l.now())
		rec.TargetUserID = &toUserID
		rec.Description = "Kullanıcılar arası transfer"
		rec.CurrentUserQuantity = intPtr(src.Quantity)
		rec.CurrentReceiverQuantity = intPtr(dst.Quantity)
		return tx.Create(rec).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ConsumeForDevice kullanıcı stoğundan cihazda parça kullanımı düşer.
// Kullanım kaydı, stok düşümü ve USE hareketi aynı transaction'dadır.
func (l *Ledger) ConsumeForDevice(ctx context.Context, userID, deviceID, productID uint, quantity int) (*models.DevicePartUsage, *models.StockTransaction, error) {
	if quantity <= 0 {
		return nil, nil, apperr.Validation("miktar pozitif olmalı")
	}

	var (
		usage *models.DevicePartUsage
		rec   *models.StockTransaction
	)
	err := l.run(ctx, models.TxUse, func(tx *gorm.DB) error {
		var device models.DeviceRecord
		if err := tx.First(&device, deviceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("cihaz bulunamadı: %d", deviceID)
			}
			return err
		}
		p, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}
		us, err := lockUserStock(tx, userID, productID)
		if err != nil {
			return err
		}
		if us.Quantity < quantity {
			return apperr.InsufficientStock("kişisel stokta yeterli ürün yok: %s (mevcut %d, istenen %d)", p.PartCode, us.Quantity, quantity)
		}

		if err := saveUserStock(tx, us, us.Quantity-quantity); err != nil {
			return err
		}
		now := l.now()
		usage = &models.DevicePartUsage{
			ProductID: p.ID,
			DeviceID:  device.ID,
			UserID:    &userID,
			Quantity:  quantity,
			UsedAt:    now,
		}
		if err := tx.Create(usage).Error; err != nil {
			return err
		}

		rec = newTx(models.TxUse, p, quantity, &userID, now)
		rec.Description = "Cihazda parça kullanımı: " + device.SerialNumber
		rec.CurrentUserQuantity = intPtr(us.Quantity)
		return tx.Create(rec).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return usage, rec, nil
}

// DeleteProduct ürünü siler. Kullanıcı stokları ve kullanım kayıtları cascade ile gider,
// stok hareketleri parça koduyla kalır.
func (l *Ledger) DeleteProduct(ctx context.Context, productID uint) (*models.Product, error) {
	var p models.Product
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}
		p = *locked
		return tx.Delete(&models.Product{}, p.ID).Error
	})
	if err != nil {
		return nil, apperr.Store("ürün silinemedi", err)
	}
	return &p, nil
}

func lockQuery(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func lockProduct(tx *gorm.DB, id uint) (*models.Product, error) {
	var p models.Product
	if err := lockQuery(tx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("ürün bulunamadı: %d", id)
		}
		return nil, err
	}
	return &p, nil
}

// lockUserStock satır yoksa kaydedilmemiş sıfır miktarlı bir UserStock döner.
func lockUserStock(tx *gorm.DB, userID, productID uint) (*models.UserStock, error) {
	var us models.UserStock
	err := lockQuery(tx).Where("user_id = ? AND product_id = ?", userID, productID).First(&us).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserStock{UserID: userID, ProductID: productID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &us, nil
}

// saveUserStock miktar 0 ise satırı siler, değilse oluşturur/günceller.
func saveUserStock(tx *gorm.DB, us *models.UserStock, quantity int) error {
	us.Quantity = quantity
	switch {
	case quantity == 0 && us.ID == 0:
		return nil
	case quantity == 0:
		err := tx.Delete(&models.UserStock{}, us.ID).Error
		us.ID = 0
		return err
	case us.ID == 0:
		return tx.Omit(clause.Associations).Create(us).Error
	default:
		return tx.Model(&models.UserStock{}).Where("id = ?", us.ID).Update("quantity", quantity).Error
	}
}

func ensureUser(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.NotFound("kullanıcı bulunamadı: %d", id)
	}
	return nil
}

func newTx(t models.TransactionType, p *models.Product, qty int, userID *uint, ts time.Time) *models.StockTransaction {
	return &models.StockTransaction{
		Type:      t,
		ProductID: &p.ID,
		PartCode:  p.PartCode,
		Quantity:  qty,
		UserID:    userID,
		Timestamp: ts,
	}
}

func intPtr(v int) *int { return &v }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
