package auth

import (
	"errors"
	"strings"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/config"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	AccessCode string `json:"access_code"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, IsAdmin: u.IsAdmin}
}

func createUser(body RegisterRequest, isAdmin bool) (*models.User, error) {
	body.Username = strings.TrimSpace(body.Username)
	body.Email = strings.TrimSpace(strings.ToLower(body.Email))
	if body.Username == "" || body.Password == "" {
		return nil, apperr.Validation("kullanıcı adı ve şifre zorunlu")
	}
	if len(body.Password) < 6 {
		return nil, apperr.Validation("şifre en az 6 karakter olmalı")
	}

	var count int64
	if err := database.DB.Model(&models.User{}).Where("username = ?", body.Username).Count(&count).Error; err != nil {
		return nil, apperr.Store("kullanıcı kontrol edilemedi", err)
	}
	if count > 0 {
		return nil, apperr.Conflict("bu kullanıcı adı zaten alınmış")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Store("şifre hashlenemedi", err)
	}

	user := models.User{
		Username:     body.Username,
		Email:        body.Email,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		return nil, apperr.Store("kullanıcı oluşturulamadı", err)
	}
	return &user, nil
}

// POST /api/auth/register
// Günün erişim kodu olmadan kayıt yapılamaz.
func RegisterHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if err := CheckAccessCode(c.UserContext(), database.DB, body.AccessCode); err != nil {
			return apperr.ToFiber(err)
		}

		user, err := createUser(body, false)
		if err != nil {
			return apperr.ToFiber(err)
		}

		logger.FromCtx(c).Info("Yeni kullanıcı kaydı", zap.String("username", user.Username))
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

// POST /api/auth/bootstrap-admin
// Sadece hiç admin yokken çalışır.
func BootstrapAdminHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		var count int64
		database.DB.Model(&models.User{}).Where("is_admin = ?", true).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "Zaten bir admin var")
		}

		user, err := createUser(body, true)
		if err != nil {
			return apperr.ToFiber(err)
		}

		logger.FromCtx(c).Warn("İlk admin oluşturuldu", zap.String("username", user.Username))
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		var user models.User
		err := database.DB.Where("username = ?", strings.TrimSpace(body.Username)).First(&user).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				logger.FromCtx(c).Error("Kullanıcı sorgusu başarısız", zap.Error(err))
			}
			return fiber.NewError(fiber.StatusUnauthorized, "Kullanıcı adı veya şifre hatalı")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Kullanıcı adı veya şifre hatalı")
		}

		token, err := GenerateToken(cfg.JWTSecret, cfg.JWTTTL, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Token oluşturulamadı")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  toUserResponse(&user),
		})
	}
}

func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := CurrentUser(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := database.DB.First(&user, userID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kullanıcı bulunamadı")
		}
		return c.JSON(toUserResponse(&user))
	}
}

// GET /api/users
// Transfer ekranında alıcı seçimi için.
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.Order("username ASC").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcılar listelenemedi")
		}

		resp := make([]UserResponse, 0, len(users))
		for i := range users {
			resp = append(resp, toUserResponse(&users[i]))
		}
		return c.JSON(resp)
	}
}

// POST /api/admin/access-code
func GenerateAccessCodeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := GenerateAccessCode(c.UserContext(), database.DB)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"code": rec.Code,
			"date": rec.Date.Format("2006-01-02"),
		})
	}
}
