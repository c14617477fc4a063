package inventory

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/auth"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(userID uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, userID)
		c.Locals(auth.CtxUsernameKey, "bob")
		return c.Next()
	})
	app.Get("/products/critical", CriticalProductsHandler())
	app.Post("/products/:id/take", TakeHandler())
	app.Post("/products/:id/return", ReturnHandler())
	app.Post("/products/:id/transfer", TransferHandler())
	app.Get("/my-stock", MyStockHandler())
	app.Get("/stock-movements", StockMovementsHandler())
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func TestTakeHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	bob, _ := testutil.CreateTestUsers(t, db)
	x1 := testutil.CreateProduct(t, db, "X1", 10, 2)
	app := newTestApp(bob.ID)

	status, body := postJSON(t, app, fmt.Sprintf("/products/%d/take", x1.ID), `{"quantity":3}`)
	require.Equal(t, 200, status, string(body))

	var resp TransactionResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "TAKE", string(resp.TransactionType))
	assert.Equal(t, 7, *resp.CurrentQuantity)
	assert.Equal(t, 3, *resp.CurrentUserQuantity)

	resp2, err := app.Test(httptest.NewRequest("GET", "/my-stock", nil))
	require.NoError(t, err)
	var stocks []UserStockResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&stocks))
	require.Len(t, stocks, 1)
	assert.Equal(t, "X1", stocks[0].PartCode)
	assert.Equal(t, 3, stocks[0].Quantity)
}

func TestTakeHandlerInsufficientStockReturnsConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	bob, _ := testutil.CreateTestUsers(t, db)
	x1 := testutil.CreateProduct(t, db, "X1", 1, 0)
	app := newTestApp(bob.ID)

	status, _ := postJSON(t, app, fmt.Sprintf("/products/%d/take", x1.ID), `{"quantity":5}`)
	assert.Equal(t, 409, status)

	status, _ = postJSON(t, app, "/products/999/take", `{"quantity":1}`)
	assert.Equal(t, 404, status)

	status, _ = postJSON(t, app, "/products/abc/take", `{"quantity":1}`)
	assert.Equal(t, 400, status)
}

func TestTransferHandlerAndMovements(t *testing.T) {
	db := testutil.SetupTestDB(t)
	bob, alice := testutil.CreateTestUsers(t, db)
	x1 := testutil.CreateProduct(t, db, "X1", 10, 0)
	app := newTestApp(bob.ID)

	status, _ := postJSON(t, app, fmt.Sprintf("/products/%d/take", x1.ID), `{"quantity":4}`)
	require.Equal(t, 200, status)

	status, body := postJSON(t, app, fmt.Sprintf("/products/%d/transfer", x1.ID),
		fmt.Sprintf(`{"target_user_id":%d,"quantity":4}`, alice.ID))
	require.Equal(t, 200, status, string(body))

	var resp TransactionResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, 0, *resp.CurrentUserQuantity)
	assert.Equal(t, 4, *resp.CurrentReceiverQuantity)

	r, err := app.Test(httptest.NewRequest("GET", "/stock-movements", nil))
	require.NoError(t, err)
	var feed struct {
		Transactions []TransactionResponse `json:"transactions"`
	}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&feed))
	require.Len(t, feed.Transactions, 1)
	assert.Equal(t, "TAKE", string(feed.Transactions[0].TransactionType))
}
