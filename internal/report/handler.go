package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/mailer"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GET /api/admin/reports/:kind
func DownloadHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind, err := ParseKind(c.Params("kind"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		f, err := Build(c.UserContext(), database.DB, kind, time.Now())
		if err != nil {
			return apperr.ToFiber(err)
		}
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", f.Name))
		c.Set(fiber.HeaderContentType, xlsxMIME)
		return c.Send(f.Data)
	}
}

// POST /api/admin/reports/:kind/email
func EmailHandler(s *Sender) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind, err := ParseKind(c.Params("kind"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		sent, err := s.Send(c.UserContext(), kind)
		switch {
		case err == nil:
			return c.JSON(sent)
		case errors.Is(err, mailer.ErrNotConfigured):
			return fiber.NewError(fiber.StatusServiceUnavailable, "E-posta sunucusu yapılandırılmamış")
		case errors.Is(err, apperr.ErrStoreFailure), errors.Is(err, apperr.ErrNotFound):
			return apperr.ToFiber(err)
		default:
			logger.FromCtx(c).Error("Rapor e-postası gönderilemedi", zap.String("kind", string(kind)), zap.Error(err))
			return fiber.NewError(fiber.StatusBadGateway, "Rapor e-postası gönderilemedi")
		}
	}
}
