package inventory

import (
	"fmt"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/audit"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/auth"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ProductResponse struct {
	ID          uint   `json:"id"`
	PartCode    string `json:"part_code"`
	Name        string `json:"name"`
	Cabinet     string `json:"cabinet"`
	Shelf       string `json:"shelf"`
	Quantity    int    `json:"quantity"`
	MinLimit    int    `json:"min_limit"`
	OrderPlaced bool   `json:"order_placed"`
	IsCritical  bool   `json:"is_critical"`
}

func toProductResponse(p *models.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		PartCode:    p.PartCode,
		Name:        p.Name,
		Cabinet:     p.Cabinet,
		Shelf:       p.Shelf,
		Quantity:    p.Quantity,
		MinLimit:    p.MinLimit,
		OrderPlaced: p.OrderPlaced,
		IsCritical:  p.IsCritical(),
	}
}

func toProductResponses(products []models.Product) []ProductResponse {
	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res
}

type AddStockRequest struct {
	PartCode string `json:"part_code"`
	Name     string `json:"name"`
	Cabinet  string `json:"cabinet"`
	Shelf    string `json:"shelf"`
	MinLimit *int   `json:"min_limit"`
	Quantity int    `json:"quantity"`
}

type UpdateProductRequest struct {
	Name     *string `json:"name"`
	Cabinet  *string `json:"cabinet"`
	Shelf    *string `json:"shelf"`
	Quantity *int    `json:"quantity"`
	MinLimit *int    `json:"min_limit"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

type MinLimitRequest struct {
	MinLimit int `json:"min_limit"`
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz ID")
	}
	return uint(id), nil
}

// GET /api/products?search=abc
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		products, err := SearchProducts(c.UserContext(), database.DB, c.Query("search"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toProductResponses(products))
	}
}

// GET /api/products/:id
func GetProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		p, err := GetProduct(c.UserContext(), database.DB, id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toProductResponse(p))
	}
}

// GET /api/products/critical
func CriticalProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		products, err := CriticalProducts(c.UserContext(), database.DB)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toProductResponses(products))
	}
}

// POST /api/admin/products/add
func AdminAddStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AddStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		actorID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		rec, err := NewLedger(database.DB).AdminAdd(c.UserContext(), actorID, AddStockInput{
			PartCode: body.PartCode,
			Name:     body.Name,
			Cabinet:  body.Cabinet,
			Shelf:    body.Shelf,
			MinLimit: body.MinLimit,
			Quantity: body.Quantity,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(toTransactionResponse(rec))
	}
}

// PUT /api/admin/products/:id
func AdminUpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		actorID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		p, _, err := NewLedger(database.DB).AdminUpdateStock(c.UserContext(), actorID, id, UpdateProductInput{
			Name:     body.Name,
			Cabinet:  body.Cabinet,
			Shelf:    body.Shelf,
			Quantity: body.Quantity,
			MinLimit: body.MinLimit,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toProductResponse(p))
	}
}

// POST /api/admin/products/:id/adjust
func AdminAdjustProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body QuantityRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		actorID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		rec, err := NewLedger(database.DB).AdminAdjust(c.UserContext(), actorID, id, body.Quantity)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toTransactionResponse(rec))
	}
}

// PATCH /api/admin/products/:id/min-limit
func AdminUpdateMinLimitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body MinLimitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		p, err := NewLedger(database.DB).AdminUpdateMinLimit(c.UserContext(), id, body.MinLimit)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toProductResponse(p))
	}
}

// POST /api/admin/products/:id/toggle-order
func ToggleOrderPlacedHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		p, err := NewLedger(database.DB).ToggleOrderPlaced(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toProductResponse(p))
	}
}

// DELETE /api/admin/products/:id
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		actorID, actorName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		p, err := NewLedger(database.DB).DeleteProduct(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}

		if err := audit.WriteLog(audit.LogOptions{
			UserID:      &actorID,
			UserName:    actorName,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Ürün silindi: %s", p.PartCode),
			Before:      p,
		}); err != nil {
			logger.FromCtx(c).Warn("Audit log yazılamadı", zap.Error(err))
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
