package fleet

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/auth"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallationHandlersAndHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	bob, _ := testutil.CreateTestUsers(t, db)
	f := setupFleet(t, db)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, bob.ID)
		c.Locals(auth.CtxUsernameKey, bob.Username)
		return c.Next()
	})
	app.Post("/installations", CreateInstallationHandler())
	app.Get("/device-records/:id", GetDeviceHandler())
	app.Get("/device-records/:id/history", DeviceHistoryHandler())

	body := fmt.Sprintf(`{"device_id":%d,"institution_id":%d,"install_date":"2024-01-01","connected_core_id":%d}`,
		f.d1.ID, f.hospitalA.ID, f.core.ID)
	req := httptest.NewRequest("POST", "/installations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	var inst InstallationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&inst))
	assert.Equal(t, "D1", inst.SerialNumber)
	assert.Equal(t, "C1", inst.ConnectedCoreSerial)
	assert.True(t, inst.IsOpen)

	resp, err = app.Test(httptest.NewRequest("GET", fmt.Sprintf("/device-records/%d", f.d1.ID), nil))
	require.NoError(t, err)
	var device DeviceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&device))
	require.NotNil(t, device.Current)
	assert.Equal(t, "Ankara Şehir", device.InstitutionName)

	resp, err = app.Test(httptest.NewRequest("GET", fmt.Sprintf("/device-records/%d/history", f.d1.ID), nil))
	require.NoError(t, err)
	var history HistoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	assert.Len(t, history.Installations, 1)

	var logs int64
	db.Model(&models.AuditLog{}).Where("entity_type = ?", "installation").Count(&logs)
	assert.Equal(t, int64(1), logs)
}

func TestCreateInstallationHandlerRejectsBadDate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := setupFleet(t, db)

	app := fiber.New()
	app.Post("/installations", CreateInstallationHandler())

	body := fmt.Sprintf(`{"device_id":%d,"institution_id":%d,"install_date":"yarın"}`, f.core.ID, f.hospitalA.ID)
	req := httptest.NewRequest("POST", "/installations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestDuplicateMaintenanceAndNoteReturnConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	bob, _ := testutil.CreateTestUsers(t, db)
	f := setupFleet(t, db)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, bob.ID)
		c.Locals(auth.CtxUsernameKey, bob.Username)
		return c.Next()
	})
	app.Post("/maintenance", CreateMaintenanceHandler())
	app.Post("/institutions/:id/notes", CreateNoteHandler())

	post := func(url, body string) int {
		req := httptest.NewRequest("POST", url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	body := fmt.Sprintf(`{"device_id":%d,"date":"2024-02-01","personnel":"Ali","notes":"filtre"}`, f.d1.ID)
	assert.Equal(t, 201, post("/maintenance", body))
	assert.Equal(t, 409, post("/maintenance", body))

	noteURL := fmt.Sprintf("/institutions/%d/notes", f.hospitalA.ID)
	note := `{"note_date":"2024-04-01","text":"Sözleşme yenilendi"}`
	assert.Equal(t, 201, post(noteURL, note))
	assert.Equal(t, 409, post(noteURL, note))

	var n int64
	db.Model(&models.Maintenance{}).Count(&n)
	assert.Equal(t, int64(1), n)
}
