package fleet

import (
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/audit"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/auth"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/dates"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz ID")
	}
	return uint(id), nil
}

func parseDate(field, v string) (time.Time, error) {
	d, err := dates.Parse(v)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, field+" formatı 'YYYY-MM-DD' olmalı")
	}
	return d, nil
}

func parseOptionalDate(field string, v *string) (*time.Time, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	d, err := parseDate(field, *v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// writeAudit hata olursa sadece loglar; asıl işlem geri alınmaz.
func writeAudit(c *fiber.Ctx, entityType string, entityID uint, action models.AuditAction, desc string, before, after any) {
	opts := audit.LogOptions{
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		Description: desc,
		Before:      before,
		After:       after,
	}
	if userID, name, err := auth.CurrentUser(c); err == nil {
		opts.UserID = &userID
		opts.UserName = name
	}
	if err := audit.WriteLog(opts); err != nil {
		logger.FromCtx(c).Warn("Audit log yazılamadı", zap.String("entity", entityType), zap.Error(err))
	}
}
