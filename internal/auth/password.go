package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/mailer"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tempPasswordLength = 10

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPassword e-posta adresine kayıtlı kullanıcıya geçici şifre üretip gönderir.
// Gönderim başarısız olursa eski şifre geçerli kalır. Kullanıcı yoksa (false, nil) döner.
func ResetPassword(ctx context.Context, db *gorm.DB, m mailer.Mailer, email string) (bool, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return false, apperr.Validation("e-posta zorunlu")
	}

	var user models.User
	err := db.WithContext(ctx).Where("email = ?", email).Order("id").First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Store("kullanıcı okunamadı", err)
	}

	temp := strings.ReplaceAll(uuid.NewString(), "-", "")[:tempPasswordLength]
	hash, err := bcrypt.GenerateFromPassword([]byte(temp), bcrypt.DefaultCost)
	if err != nil {
		return false, apperr.Store("şifre hashlenemedi", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
			return apperr.Store("şifre güncellenemedi", err)
		}
		return m.Send(ctx, mailer.Message{
			To:      []string{user.Email},
			Subject: "Stok uygulaması şifre sıfırlama",
			Body: fmt.Sprintf("Merhaba %s,\n\nGeçici şifreniz: %s\nGiriş yaptıktan sonra şifrenizi değiştirin.\n",
				user.Username, temp),
		})
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// POST /api/auth/forgot-password
// Kullanıcı var olsun olmasın aynı yanıt döner.
func ForgotPasswordHandler(m mailer.Mailer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ForgotPasswordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		found, err := ResetPassword(c.UserContext(), database.DB, m, body.Email)
		switch {
		case err == nil:
		case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrStoreFailure):
			return apperr.ToFiber(err)
		case errors.Is(err, mailer.ErrNotConfigured):
			return fiber.NewError(fiber.StatusServiceUnavailable, "E-posta sunucusu yapılandırılmamış")
		default:
			logger.FromCtx(c).Error("Şifre sıfırlama e-postası gönderilemedi", zap.Error(err))
			return fiber.NewError(fiber.StatusBadGateway, "Şifre sıfırlama e-postası gönderilemedi")
		}

		if found {
			logger.FromCtx(c).Info("Şifre sıfırlandı", zap.String("email", strings.ToLower(strings.TrimSpace(body.Email))))
		}
		return c.JSON(fiber.Map{"message": "E-posta kayıtlıysa yeni şifre gönderildi"})
	}
}
