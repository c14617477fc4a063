package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLabelsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/products/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "0" {
			return fiber.NewError(fiber.StatusNotFound, "yok")
		}
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/metrics", Handler())

	before := testutil.ToFloat64(APIErrorCounter.WithLabelValues("GET", "/products/:id", "404"))

	_, err := app.Test(httptest.NewRequest("GET", "/products/5", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest("GET", "/products/0", nil))
	require.NoError(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(APIErrorCounter.WithLabelValues("GET", "/products/:id", "404")))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `inventory_http_request_duration_seconds_count{method="GET",path="/products/:id",status="200"}`)
}

func TestObserveLedger(t *testing.T) {
	ok := testutil.ToFloat64(LedgerOperationCounter.WithLabelValues("TAKE", "ok"))
	failed := testutil.ToFloat64(LedgerOperationCounter.WithLabelValues("TAKE", "error"))

	ObserveLedger("TAKE", nil)
	ObserveLedger("TAKE", errors.New("yetersiz"))

	assert.Equal(t, ok+1, testutil.ToFloat64(LedgerOperationCounter.WithLabelValues("TAKE", "ok")))
	assert.Equal(t, failed+1, testutil.ToFloat64(LedgerOperationCounter.WithLabelValues("TAKE", "error")))
}
