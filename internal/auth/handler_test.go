package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/config"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Post("/auth/register", RegisterHandler())
	app.Post("/auth/bootstrap-admin", BootstrapAdminHandler())
	app.Post("/auth/login", LoginHandler(cfg))

	protected := app.Group("", JWTMiddleware(cfg))
	protected.Get("/auth/me", MeHandler())
	protected.Post("/admin/access-code", RequireAdmin(), GenerateAccessCodeHandler())
	return app
}

func do(t *testing.T, app *fiber.App, method, path, token, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func login(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()
	status, body := do(t, app, "POST", "/auth/login", "", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, fiber.StatusOK, status, string(body))

	var resp struct {
		Token string       `json:"token"`
		User  UserResponse `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestBootstrapLoginAndAccessCodeFlow(t *testing.T) {
	testutil.SetupTestDB(t)
	cfg := &config.Config{JWTSecret: strings.Repeat("s", 32), JWTTTL: time.Hour}
	app := newTestApp(cfg)

	status, _ := do(t, app, "POST", "/auth/bootstrap-admin", "", `{"username":"admin","password":"gizli123"}`)
	require.Equal(t, fiber.StatusCreated, status)

	// ikinci admin bu yoldan açılamaz
	status, _ = do(t, app, "POST", "/auth/bootstrap-admin", "", `{"username":"admin2","password":"gizli123"}`)
	assert.Equal(t, fiber.StatusForbidden, status)

	adminToken := login(t, app, "admin", "gizli123")

	status, body := do(t, app, "GET", "/auth/me", adminToken, "")
	require.Equal(t, fiber.StatusOK, status)
	var me UserResponse
	require.NoError(t, json.Unmarshal(body, &me))
	assert.True(t, me.IsAdmin)

	// kod olmadan kayıt reddedilir
	status, _ = do(t, app, "POST", "/auth/register", "", `{"username":"bob","password":"123456","access_code":"X"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = do(t, app, "POST", "/admin/access-code", adminToken, "")
	require.Equal(t, fiber.StatusCreated, status, string(body))
	var code struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(body, &code))
	assert.Len(t, code.Code, accessCodeLength)

	status, body = do(t, app, "POST", "/auth/register", "",
		`{"username":"bob","password":"123456","access_code":"`+strings.ToLower(code.Code)+`"}`)
	require.Equal(t, fiber.StatusCreated, status, string(body))

	status, _ = do(t, app, "POST", "/auth/register", "",
		`{"username":"bob","password":"123456","access_code":"`+code.Code+`"}`)
	assert.Equal(t, fiber.StatusConflict, status)

	bobToken := login(t, app, "bob", "123456")
	status, _ = do(t, app, "POST", "/admin/access-code", bobToken, "")
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	testutil.SetupTestDB(t)
	cfg := &config.Config{JWTSecret: strings.Repeat("s", 32), JWTTTL: time.Hour}
	app := newTestApp(cfg)

	status, _ := do(t, app, "POST", "/auth/bootstrap-admin", "", `{"username":"admin","password":"gizli123"}`)
	require.Equal(t, fiber.StatusCreated, status)

	status, _ = do(t, app, "POST", "/auth/login", "", `{"username":"admin","password":"yanlis"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, _ = do(t, app, "POST", "/auth/login", "", `{"username":"yok","password":"gizli123"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestJWTMiddlewareRejectsBadTokens(t *testing.T) {
	testutil.SetupTestDB(t)
	cfg := &config.Config{JWTSecret: strings.Repeat("s", 32), JWTTTL: time.Hour}
	app := newTestApp(cfg)

	status, _ := do(t, app, "GET", "/auth/me", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = do(t, app, "GET", "/auth/me", "bozuk.token.deger", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	other, err := GenerateToken(strings.Repeat("z", 32), time.Hour, &testUser)
	require.NoError(t, err)
	status, _ = do(t, app, "GET", "/auth/me", other, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	expired, err := GenerateToken(cfg.JWTSecret, -time.Minute, &testUser)
	require.NoError(t, err)
	status, _ = do(t, app, "GET", "/auth/me", expired, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAccessCodeRegenerationReplacesToday(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	first, err := GenerateAccessCode(ctx, db)
	require.NoError(t, err)
	second, err := GenerateAccessCode(ctx, db)
	require.NoError(t, err)

	assert.Error(t, CheckAccessCode(ctx, db, first.Code))
	assert.NoError(t, CheckAccessCode(ctx, db, second.Code))
}

var testUser = models.User{ID: 1, Username: "bob"}
