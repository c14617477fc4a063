package notify

import (
	"context"
	"strings"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveToken cihaz token'ını kullanıcıya bağlar. Token başka kullanıcıdaysa devralınır.
func SaveToken(ctx context.Context, db *gorm.DB, userID uint, token string) (*models.DeviceToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Validation("device_token zorunlu")
	}
	if len(token) > 255 {
		return nil, apperr.Validation("device_token çok uzun")
	}

	rec := models.DeviceToken{UserID: userID, Token: token}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "updated_at"}),
	}).Omit(clause.Associations).Create(&rec).Error
	if err != nil {
		return nil, apperr.Store("cihaz token'ı kaydedilemedi", err)
	}
	return &rec, nil
}

// Broadcast bildirimi kayıtlı tüm cihazlara gönderir ve geçmişe yazar.
// Geçersiz olduğu bildirilen token'lar silinir.
func Broadcast(ctx context.Context, db *gorm.DB, p Pusher, title, message string) (*models.NotificationLog, error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if title == "" || message == "" {
		return nil, apperr.Validation("başlık ve mesaj zorunlu")
	}

	var tokens []string
	if err := db.WithContext(ctx).Model(&models.DeviceToken{}).Order("id").Pluck("token", &tokens).Error; err != nil {
		return nil, apperr.Store("cihaz token'ları okunamadı", err)
	}

	results, pushErr := p.Push(ctx, tokens, title, message)

	entry := models.NotificationLog{Title: title, Message: message, SentAt: time.Now().UTC()}
	var stale []string
	for _, r := range results {
		if r.OK {
			entry.Recipients++
			continue
		}
		entry.Failed++
		if r.Unregistered {
			stale = append(stale, r.Token)
		}
	}
	if pushErr != nil {
		// yanıtı alınamayan token'lar başarısız sayılır
		entry.Failed += len(tokens) - len(results)
	}

	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, apperr.Store("bildirim kaydedilemedi", err)
	}
	if len(stale) > 0 {
		if err := db.WithContext(ctx).Where("token IN ?", stale).Delete(&models.DeviceToken{}).Error; err != nil {
			logger.Get().Warn("Geçersiz token'lar silinemedi", zap.Error(err))
		}
	}

	if pushErr != nil {
		logger.Get().Error("Push bildirimi gönderilemedi", zap.String("title", title), zap.Error(pushErr))
		return &entry, apperr.Store("bildirim gönderilemedi", pushErr)
	}
	logger.Get().Info("Push bildirimi gönderildi",
		zap.String("title", title),
		zap.Int("recipients", entry.Recipients),
		zap.Int("failed", entry.Failed),
	)
	return &entry, nil
}

func History(ctx context.Context, db *gorm.DB, limit int) ([]models.NotificationLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var list []models.NotificationLog
	if err := db.WithContext(ctx).Order("sent_at DESC, id DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, apperr.Store("bildirim geçmişi okunamadı", err)
	}
	return list, nil
}

func Delete(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&models.NotificationLog{}, id)
	if res.Error != nil {
		return apperr.Store("bildirim silinemedi", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("bildirim bulunamadı: %d", id)
	}
	return nil
}
