// Package settings tek satırlık uygulama ayarlarını (rapor e-posta adresleri) yönetir.
package settings

import (
	"context"
	"net/mail"
	"strings"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/config"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const rowID = 1

// Defaults ayar satırı hiç oluşturulmamışsa kullanılacak değerler.
type Defaults struct {
	CriticalStockEmail string
	ExportStockEmail   string
}

func DefaultsFrom(cfg *config.Config) Defaults {
	return Defaults{CriticalStockEmail: cfg.DefaultCriticalStockEmail, ExportStockEmail: cfg.DefaultExportStockEmail}
}

// Get ayarları döner; satır yoksa varsayılanlarla oluşturur.
func Get(ctx context.Context, db *gorm.DB, def Defaults) (*models.AppSettings, error) {
	s := models.AppSettings{ID: rowID, CriticalStockEmail: def.CriticalStockEmail, ExportStockEmail: def.ExportStockEmail}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&s).Error; err != nil {
		return nil, apperr.Store("ayarlar okunamadı", err)
	}
	if err := db.WithContext(ctx).First(&s, rowID).Error; err != nil {
		return nil, apperr.Store("ayarlar okunamadı", err)
	}
	return &s, nil
}

type Update struct {
	CriticalStockEmail *string
	ExportStockEmail   *string
}

func Save(ctx context.Context, db *gorm.DB, def Defaults, in Update) (before, after *models.AppSettings, err error) {
	current, err := Get(ctx, db, def)
	if err != nil {
		return nil, nil, err
	}
	prev := *current

	updates := map[string]any{}
	if in.CriticalStockEmail != nil {
		addr, err := normalizeEmail("critical_stock_email", *in.CriticalStockEmail)
		if err != nil {
			return nil, nil, err
		}
		current.CriticalStockEmail = addr
		updates["critical_stock_email"] = addr
	}
	if in.ExportStockEmail != nil {
		addr, err := normalizeEmail("export_stock_email", *in.ExportStockEmail)
		if err != nil {
			return nil, nil, err
		}
		current.ExportStockEmail = addr
		updates["export_stock_email"] = addr
	}
	if len(updates) == 0 {
		return &prev, current, nil
	}
	if err := db.WithContext(ctx).Model(current).Updates(updates).Error; err != nil {
		return nil, nil, apperr.Store("ayarlar kaydedilemedi", err)
	}
	return &prev, current, nil
}

func normalizeEmail(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return "", apperr.Validation("%s geçerli bir e-posta adresi olmalı: %q", field, v)
	}
	return strings.ToLower(addr.Address), nil
}
