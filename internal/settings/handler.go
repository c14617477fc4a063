package settings

import (
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/audit"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/auth"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UpdateRequest struct {
	CriticalStockEmail *string `json:"critical_stock_email"`
	ExportStockEmail   *string `json:"export_stock_email"`
}

// GET /api/admin/settings
func GetHandler(def Defaults) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := Get(c.UserContext(), database.DB, def)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(s)
	}
}

// PUT /api/admin/settings
func UpdateHandler(def Defaults) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpdateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		before, after, err := Save(c.UserContext(), database.DB, def, Update{
			CriticalStockEmail: body.CriticalStockEmail,
			ExportStockEmail:   body.ExportStockEmail,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}

		opts := audit.LogOptions{
			EntityType:  "app_settings",
			EntityID:    after.ID,
			Action:      models.AuditActionUpdate,
			Description: "Uygulama ayarları güncellendi",
			Before:      before,
			After:       after,
		}
		if userID, name, err := auth.CurrentUser(c); err == nil {
			opts.UserID = &userID
			opts.UserName = name
		}
		if err := audit.WriteLog(opts); err != nil {
			logger.FromCtx(c).Warn("Audit log yazılamadı", zap.Error(err))
		}
		return c.JSON(after)
	}
}
