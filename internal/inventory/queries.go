package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"gorm.io/gorm"
)

// TransactionFilter stok hareketi listesinin filtreleri. Boş alanlar uygulanmaz.
type TransactionFilter struct {
	Types     []models.TransactionType
	UserID    *uint
	ProductID *uint
	From      *time.Time
	To        *time.Time // dahil değil
	Limit     int
}

// ListTransactions hareketleri en yeniden eskiye döner.
func ListTransactions(ctx context.Context, db *gorm.DB, f TransactionFilter) ([]models.StockTransaction, error) {
	for _, t := range f.Types {
		if !t.Valid() {
			return nil, apperr.Validation("geçersiz işlem tipi: %s", t)
		}
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, apperr.Validation("başlangıç tarihi bitişten önce olmalı")
	}

	q := db.WithContext(ctx).Model(&models.StockTransaction{}).Preload("Product")
	if len(f.Types) > 0 {
		q = q.Where("transaction_type IN ?", f.Types)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ? OR target_user_id = ?", *f.UserID, *f.UserID)
	}
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.From != nil {
		q = q.Where("timestamp >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("timestamp < ?", f.To.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var txs []models.StockTransaction
	if err := q.Order("timestamp DESC, id DESC").Find(&txs).Error; err != nil {
		return nil, apperr.Store("stok hareketleri listelenemedi", err)
	}
	return txs, nil
}

// StockMovements sadece TAKE ve RETURN hareketleri; tüm kullanıcılar görebilir.
func StockMovements(ctx context.Context, db *gorm.DB, limit int) ([]models.StockTransaction, error) {
	return ListTransactions(ctx, db, TransactionFilter{
		Types: []models.TransactionType{models.TxTake, models.TxReturn},
		Limit: limit,
	})
}

// CriticalProducts quantity <= min_limit olan ürünler.
func CriticalProducts(ctx context.Context, db *gorm.DB) ([]models.Product, error) {
	var products []models.Product
	if err := db.WithContext(ctx).
		Where("quantity <= min_limit").
		Order("part_code ASC").
		Find(&products).Error; err != nil {
		return nil, apperr.Store("kritik stok listesi alınamadı", err)
	}
	return products, nil
}

// SearchProducts parça kodu veya isimde geçen ürünleri arar.
func SearchProducts(ctx context.Context, db *gorm.DB, query string) ([]models.Product, error) {
	q := db.WithContext(ctx).Model(&models.Product{})
	if s := strings.TrimSpace(query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(part_code) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}

	var products []models.Product
	if err := q.Order("part_code ASC").Find(&products).Error; err != nil {
		return nil, apperr.Store("ürünler listelenemedi", err)
	}
	return products, nil
}

func GetProduct(ctx context.Context, db *gorm.DB, id uint) (*models.Product, error) {
	var p models.Product
	if err := db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("ürün bulunamadı: %d", id)
		}
		return nil, apperr.Store("ürün alınamadı", err)
	}
	return &p, nil
}

// UserStocks kullanıcı stoklarını ürünle birlikte döner. userID nil ise tüm kullanıcılar.
func UserStocks(ctx context.Context, db *gorm.DB, userID *uint) ([]models.UserStock, error) {
	q := db.WithContext(ctx).Preload("Product").Preload("User")
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}

	var stocks []models.UserStock
	if err := q.Order("user_id ASC, product_id ASC").Find(&stocks).Error; err != nil {
		return nil, apperr.Store("kullanıcı stokları listelenemedi", err)
	}
	return stocks, nil
}

// DevicePartUsages bir cihazda kullanılan parçalar, en yeniden eskiye.
func DevicePartUsages(ctx context.Context, db *gorm.DB, deviceID uint) ([]models.DevicePartUsage, error) {
	var usages []models.DevicePartUsage
	if err := db.WithContext(ctx).
		Preload("Product").
		Preload("User").
		Where("device_id = ?", deviceID).
		Order("used_at DESC, id DESC").
		Find(&usages).Error; err != nil {
		return nil, apperr.Store("parça kullanımları listelenemedi", err)
	}
	return usages, nil
}

func GetPartUsage(ctx context.Context, db *gorm.DB, id uint) (*models.DevicePartUsage, error) {
	var u models.DevicePartUsage
	err := db.WithContext(ctx).Preload("Product").Preload("User").First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("parça kullanımı bulunamadı")
	}
	if err != nil {
		return nil, apperr.Store("parça kullanımı okunamadı", err)
	}
	return &u, nil
}
