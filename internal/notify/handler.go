package notify

import (
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/auth"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type DeviceTokenRequest struct {
	Token string `json:"device_token"`
}

type SendRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type NotificationResponse struct {
	ID         uint   `json:"id"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Recipients int    `json:"recipients"`
	Failed     int    `json:"failed"`
	SentAt     string `json:"sent_at"`
}

func toResponse(n *models.NotificationLog) NotificationResponse {
	return NotificationResponse{
		ID:         n.ID,
		Title:      n.Title,
		Message:    n.Message,
		Recipients: n.Recipients,
		Failed:     n.Failed,
		SentAt:     n.SentAt.In(time.Local).Format("2006-01-02 15:04:05"),
	}
}

// POST /api/device-token
func SaveDeviceTokenHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body DeviceTokenRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if _, err := SaveToken(c.UserContext(), database.DB, userID, body.Token); err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"message": "Cihaz token'ı kaydedildi"})
	}
}

// GET /api/notifications?limit=50
func HistoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := History(c.UserContext(), database.DB, c.QueryInt("limit", 100))
		if err != nil {
			return apperr.ToFiber(err)
		}
		res := make([]NotificationResponse, 0, len(list))
		for i := range list {
			res = append(res, toResponse(&list[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/admin/notifications
func SendHandler(p Pusher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SendRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		entry, err := Broadcast(c.UserContext(), database.DB, p, body.Title, body.Message)
		if err != nil {
			if entry != nil {
				// kayıt oluştu ama gönderim yarım kaldı
				return c.Status(fiber.StatusBadGateway).JSON(toResponse(entry))
			}
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(toResponse(entry))
	}
}

// DELETE /api/admin/notifications/:id
func DeleteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ID")
		}
		if err := Delete(c.UserContext(), database.DB, uint(id)); err != nil {
			return apperr.ToFiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
