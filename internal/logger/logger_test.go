package logger

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMiddlewareLogsRequestWithID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := log
	log = zap.New(core)
	t.Cleanup(func() { log = prev })

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(Middleware())
	app.Get("/ping", func(c *fiber.Ctx) error {
		FromCtx(c).Info("işleniyor")
		return c.SendString("pong")
	})
	app.Get("/bad", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusConflict, "çakışma")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	entries := logs.FilterMessage("HTTP isteği").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/ping", fields["path"])
	assert.EqualValues(t, 200, fields["status"])
	assert.NotEmpty(t, fields["request_id"])

	// handler içinde kullanılan logger aynı istek kimliğini taşır
	inner := logs.FilterMessage("işleniyor").All()
	require.Len(t, inner, 1)
	assert.Equal(t, fields["request_id"], inner[0].ContextMap()["request_id"])

	_, err = app.Test(httptest.NewRequest("GET", "/bad", nil))
	require.NoError(t, err)
	bad := logs.FilterMessage("HTTP isteği").FilterField(zap.String("path", "/bad")).All()
	require.Len(t, bad, 1)
	assert.EqualValues(t, fiber.StatusConflict, bad[0].ContextMap()["status"])
}

func TestInitLevels(t *testing.T) {
	prev := log
	t.Cleanup(func() { log = prev })

	require.NoError(t, Init("warn", "production"))
	assert.False(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Get().Core().Enabled(zapcore.WarnLevel))

	require.NoError(t, Init("debug", "development"))
	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))
}
