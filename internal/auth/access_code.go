package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const accessCodeLength = 10

func today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GenerateAccessCode bugünün kodunu üretir; varsa üzerine yazar.
func GenerateAccessCode(ctx context.Context, db *gorm.DB) (*models.DailyAccessCode, error) {
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:accessCodeLength]
	rec := models.DailyAccessCode{Code: code, Date: today()}

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"code"}),
	}).Create(&rec).Error
	if err != nil {
		return nil, apperr.Store("erişim kodu oluşturulamadı", err)
	}
	return &rec, nil
}

// CheckAccessCode verilen kodun bugünün kodu olup olmadığını kontrol eder.
func CheckAccessCode(ctx context.Context, db *gorm.DB, code string) error {
	var rec models.DailyAccessCode
	err := db.WithContext(ctx).Where("date = ?", today()).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Validation("bugün için erişim kodu tanımlanmamış")
	}
	if err != nil {
		return apperr.Store("erişim kodu okunamadı", err)
	}
	if !strings.EqualFold(strings.TrimSpace(code), rec.Code) {
		return apperr.Validation("erişim kodu hatalı")
	}
	return nil
}
