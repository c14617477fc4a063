package settings

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/auth"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var def = Defaults{CriticalStockEmail: "kritik@example.com", ExportStockEmail: "export@example.com"}

func TestGetCreatesSingleRowWithDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	s, err := Get(ctx, db, def)
	require.NoError(t, err)
	assert.Equal(t, "kritik@example.com", s.CriticalStockEmail)

	_, err = Get(ctx, db, Defaults{CriticalStockEmail: "baska@example.com"})
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.Model(&models.AppSettings{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestSaveValidatesAddresses(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	bad := "kritik-at-example"
	_, _, err := Save(ctx, db, def, Update{CriticalStockEmail: &bad})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	named := "Depo <depo@example.com>"
	_, _, err = Save(ctx, db, def, Update{ExportStockEmail: &named})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	good := " Depo@Example.com "
	before, after, err := Save(ctx, db, def, Update{ExportStockEmail: &good})
	require.NoError(t, err)
	assert.Equal(t, "export@example.com", before.ExportStockEmail)
	assert.Equal(t, "depo@example.com", after.ExportStockEmail)
	assert.Equal(t, "kritik@example.com", after.CriticalStockEmail)

	s, err := Get(ctx, db, def)
	require.NoError(t, err)
	assert.Equal(t, "depo@example.com", s.ExportStockEmail)
}

func TestUpdateHandlerWritesAudit(t *testing.T) {
	db := testutil.SetupTestDB(t)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, uint(1))
		c.Locals(auth.CtxUsernameKey, "admin")
		return c.Next()
	})
	app.Get("/settings", GetHandler(def))
	app.Put("/settings", UpdateHandler(def))

	req := httptest.NewRequest("PUT", "/settings", strings.NewReader(`{"critical_stock_email":"satinalma@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/settings", nil))
	require.NoError(t, err)
	var s models.AppSettings
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, "satinalma@example.com", s.CriticalStockEmail)

	var logs int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("entity_type = ?", "app_settings").Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
}
