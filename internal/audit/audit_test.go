package audit

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLogAndFilter(t *testing.T) {
	testutil.SetupTestDB(t)
	uid := uint(3)

	require.NoError(t, WriteLog(LogOptions{
		UserID:     &uid,
		UserName:   "bob",
		EntityType: "installation",
		EntityID:   7,
		Action:     models.AuditActionUpdate,
		Before:     map[string]any{"uninstall_date": nil},
		After:      map[string]any{"uninstall_date": "2024-03-01"},
	}))
	require.NoError(t, WriteLog(LogOptions{EntityType: "institution", EntityID: 1, Action: models.AuditActionCreate}))

	app := fiber.New()
	app.Get("/audit-logs", ListAuditLogsHandler())

	resp, err := app.Test(httptest.NewRequest("GET", "/audit-logs?entity_type=installation&entity_id=7", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var logs []AuditLogResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "bob", logs[0].UserName)
	assert.JSONEq(t, `{"uninstall_date":"2024-03-01"}`, string(logs[0].AfterData))

	resp, err = app.Test(httptest.NewRequest("GET", "/audit-logs", nil))
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&logs))
	assert.Len(t, logs, 2)
	assert.Equal(t, "institution", logs[0].EntityType)
}
