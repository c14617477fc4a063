package inventory

import (
	"strings"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/auth"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type TransactionResponse struct {
	ID                      uint                   `json:"id"`
	TransactionType         models.TransactionType `json:"transaction_type"`
	ProductID               *uint                  `json:"product_id"`
	PartCode                string                 `json:"part_code"`
	ProductName             string                 `json:"product_name"`
	Quantity                int                    `json:"quantity"`
	UserID                  *uint                  `json:"user_id"`
	TargetUserID            *uint                  `json:"target_user_id"`
	Timestamp               string                 `json:"timestamp"`
	Description             string                 `json:"description"`
	CurrentQuantity         *int                   `json:"current_quantity"`
	CurrentUserQuantity     *int                   `json:"current_user_quantity"`
	CurrentReceiverQuantity *int                   `json:"current_receiver_quantity"`
}

func toTransactionResponse(t *models.StockTransaction) TransactionResponse {
	r := TransactionResponse{
		ID:                      t.ID,
		TransactionType:         t.Type,
		ProductID:               t.ProductID,
		PartCode:                t.PartCode,
		Quantity:                t.Quantity,
		UserID:                  t.UserID,
		TargetUserID:            t.TargetUserID,
		Timestamp:               t.Timestamp.Format("2006-01-02 15:04:05"),
		Description:             t.Description,
		CurrentQuantity:         t.CurrentQuantity,
		CurrentUserQuantity:     t.CurrentUserQuantity,
		CurrentReceiverQuantity: t.CurrentReceiverQuantity,
	}
	if t.Product != nil {
		r.ProductName = t.Product.Name
	}
	return r
}

func toTransactionResponses(txs []models.StockTransaction) []TransactionResponse {
	res := make([]TransactionResponse, 0, len(txs))
	for i := range txs {
		res = append(res, toTransactionResponse(&txs[i]))
	}
	return res
}

type UserStockResponse struct {
	ID        uint   `json:"id"`
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	ProductID uint   `json:"product_id"`
	PartCode  string `json:"part_code"`
	Name      string `json:"name"`
	Cabinet   string `json:"cabinet"`
	Shelf     string `json:"shelf"`
	Quantity  int    `json:"quantity"`
}

type TransferRequest struct {
	TargetUserID uint `json:"target_user_id"`
	Quantity     int  `json:"quantity"`
	Direct       bool `json:"direct"` // O_TRANSFER olarak kaydedilir
}

type AdjustUserStockRequest struct {
	UserID    uint `json:"user_id"`
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type PartUsageRequest struct {
	DeviceID  uint `json:"device_id"`
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type PartUsageResponse struct {
	ID        uint   `json:"id"`
	DeviceID  uint   `json:"device_id"`
	ProductID uint   `json:"product_id"`
	PartCode  string `json:"part_code"`
	Name      string `json:"name"`
	UserID    *uint  `json:"user_id"`
	Username  string `json:"username"`
	Quantity  int    `json:"quantity"`
	UsedAt    string `json:"used_at"`
}

func quantityAction(fn func(c *fiber.Ctx, userID, productID uint, qty int) (*models.StockTransaction, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		productID, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body QuantityRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		rec, err := fn(c, userID, productID, body.Quantity)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toTransactionResponse(rec))
	}
}

// POST /api/products/:id/take
func TakeHandler() fiber.Handler {
	return quantityAction(func(c *fiber.Ctx, userID, productID uint, qty int) (*models.StockTransaction, error) {
		return NewLedger(database.DB).Take(c.UserContext(), userID, productID, qty)
	})
}

// POST /api/products/:id/return
func ReturnHandler() fiber.Handler {
	return quantityAction(func(c *fiber.Ctx, userID, productID uint, qty int) (*models.StockTransaction, error) {
		return NewLedger(database.DB).Return(c.UserContext(), userID, productID, qty)
	})
}

// POST /api/products/:id/transfer
func TransferHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		productID, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body TransferRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.TargetUserID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "target_user_id zorunlu")
		}
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		rec, err := NewLedger(database.DB).Transfer(c.UserContext(), userID, body.TargetUserID, productID, body.Quantity, body.Direct)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toTransactionResponse(rec))
	}
}

func toUserStockResponses(stocks []models.UserStock) []UserStockResponse {
	res := make([]UserStockResponse, 0, len(stocks))
	for _, s := range stocks {
		res = append(res, UserStockResponse{
			ID:        s.ID,
			UserID:    s.UserID,
			Username:  s.User.Username,
			ProductID: s.ProductID,
			PartCode:  s.Product.PartCode,
			Name:      s.Product.Name,
			Cabinet:   s.Product.Cabinet,
			Shelf:     s.Product.Shelf,
			Quantity:  s.Quantity,
		})
	}
	return res
}

// GET /api/my-stock
func MyStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		stocks, err := UserStocks(c.UserContext(), database.DB, &userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toUserStockResponses(stocks))
	}
}

// GET /api/admin/user-stocks?user_id=3
func ListUserStocksHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var userID *uint
		if uid := c.QueryInt("user_id", 0); uid > 0 {
			u := uint(uid)
			userID = &u
		}
		stocks, err := UserStocks(c.UserContext(), database.DB, userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toUserStockResponses(stocks))
	}
}

// POST /api/admin/user-stocks/adjust
func AdminAdjustUserStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AdjustUserStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.UserID == 0 || body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "user_id ve product_id zorunlu")
		}
		actorID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		rec, err := NewLedger(database.DB).AdminAdjustUserStock(c.UserContext(), actorID, body.UserID, body.ProductID, body.Quantity)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toTransactionResponse(rec))
	}
}

// GET /api/stock-movements
// Sadece TAKE/RETURN hareketleri, tüm kullanıcılar görebilir.
func StockMovementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		txs, err := StockMovements(c.UserContext(), database.DB, c.QueryInt("limit", 500))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"transactions": toTransactionResponses(txs)})
	}
}

// GET /api/admin/transactions?type=TAKE,RETURN&user_id=1&product_id=2&from=2024-01-01&to=2024-02-01
func ListTransactionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := parseTransactionFilter(c)
		if err != nil {
			return err
		}
		txs, err := ListTransactions(c.UserContext(), database.DB, f)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toTransactionResponses(txs))
	}
}

func parseTransactionFilter(c *fiber.Ctx) (TransactionFilter, error) {
	f := TransactionFilter{Limit: c.QueryInt("limit", 0)}

	if types := c.Query("type"); types != "" {
		for _, t := range strings.Split(types, ",") {
			f.Types = append(f.Types, models.TransactionType(strings.ToUpper(strings.TrimSpace(t))))
		}
	}
	if uid := c.QueryInt("user_id", 0); uid > 0 {
		u := uint(uid)
		f.UserID = &u
	}
	if pid := c.QueryInt("product_id", 0); pid > 0 {
		p := uint(pid)
		f.ProductID = &p
	}
	for key, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		v := c.Query(key)
		if v == "" {
			continue
		}
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, fiber.NewError(fiber.StatusBadRequest, "Tarih formatı 'YYYY-MM-DD' olmalı")
		}
		*dst = &d
	}
	return f, nil
}

// GET /api/device-part-usage?device=5
func ListPartUsageHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		deviceID := c.QueryInt("device", 0)
		if deviceID <= 0 {
			return c.JSON([]PartUsageResponse{})
		}
		usages, err := DevicePartUsages(c.UserContext(), database.DB, uint(deviceID))
		if err != nil {
			return apperr.ToFiber(err)
		}

		res := make([]PartUsageResponse, 0, len(usages))
		for i := range usages {
			res = append(res, toPartUsageResponse(&usages[i]))
		}
		return c.JSON(res)
	}
}

func toPartUsageResponse(u *models.DevicePartUsage) PartUsageResponse {
	r := PartUsageResponse{
		ID:        u.ID,
		DeviceID:  u.DeviceID,
		ProductID: u.ProductID,
		PartCode:  u.Product.PartCode,
		Name:      u.Product.Name,
		UserID:    u.UserID,
		Quantity:  u.Quantity,
		UsedAt:    u.UsedAt.Format("2006-01-02 15:04:05"),
	}
	if u.User != nil {
		r.Username = u.User.Username
	}
	return r
}

// GET /api/device-part-usage/:id
func GetPartUsageHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		usage, err := GetPartUsage(c.UserContext(), database.DB, id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toPartUsageResponse(usage))
	}
}

// POST /api/device-part-usage
func CreatePartUsageHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PartUsageRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.DeviceID == 0 || body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "device_id ve product_id zorunlu")
		}
		userID, username, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		usage, rec, err := NewLedger(database.DB).ConsumeForDevice(c.UserContext(), userID, body.DeviceID, body.ProductID, body.Quantity)
		if err != nil {
			return apperr.ToFiber(err)
		}

		return c.Status(fiber.StatusCreated).JSON(PartUsageResponse{
			ID:        usage.ID,
			DeviceID:  usage.DeviceID,
			ProductID: usage.ProductID,
			PartCode:  rec.PartCode,
			UserID:    usage.UserID,
			Username:  username,
			Quantity:  usage.Quantity,
			UsedAt:    usage.UsedAt.Format("2006-01-02 15:04:05"),
		})
	}
}
