package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
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

type fakePusher struct {
	results []Result
	err     error
	got     []string
}

func (f *fakePusher) Push(_ context.Context, tokens []string, _, _ string) ([]Result, error) {
	f.got = tokens
	return f.results, f.err
}

func TestSaveTokenMovesBetweenUsers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	bob, alice := testutil.CreateTestUsers(t, db)
	ctx := context.Background()

	_, err := SaveToken(ctx, db, bob.ID, "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = SaveToken(ctx, db, bob.ID, "ExponentPushToken[abc]")
	require.NoError(t, err)
	_, err = SaveToken(ctx, db, alice.ID, "ExponentPushToken[abc]")
	require.NoError(t, err)

	var tokens []models.DeviceToken
	require.NoError(t, db.Find(&tokens).Error)
	require.Len(t, tokens, 1)
	assert.Equal(t, alice.ID, tokens[0].UserID)
}

func TestBroadcastLogsAndDropsUnregisteredTokens(t *testing.T) {
	db := testutil.SetupTestDB(t)
	bob, alice := testutil.CreateTestUsers(t, db)
	ctx := context.Background()
	_, err := SaveToken(ctx, db, bob.ID, "t1")
	require.NoError(t, err)
	_, err = SaveToken(ctx, db, alice.ID, "t2")
	require.NoError(t, err)

	p := &fakePusher{results: []Result{{Token: "t1", OK: true}, {Token: "t2", Unregistered: true}}}
	entry, err := Broadcast(ctx, db, p, "Sayım", "Cuma günü depo sayımı var")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, p.got)
	assert.Equal(t, 1, entry.Recipients)
	assert.Equal(t, 1, entry.Failed)

	var left []string
	require.NoError(t, db.Model(&models.DeviceToken{}).Pluck("token", &left).Error)
	assert.Equal(t, []string{"t1"}, left)

	_, err = Broadcast(ctx, db, p, "", "boş başlık")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestBroadcastKeepsLogWhenPushFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	bob, _ := testutil.CreateTestUsers(t, db)
	_, err := SaveToken(context.Background(), db, bob.ID, "t1")
	require.NoError(t, err)

	entry, err := Broadcast(context.Background(), db, &fakePusher{err: errors.New("timeout")}, "Başlık", "Mesaj")
	assert.ErrorIs(t, err, apperr.ErrStoreFailure)
	require.NotNil(t, entry)
	assert.Equal(t, 1, entry.Failed)

	list, err := History(context.Background(), db, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestExpoPusherParsesTickets(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var msgs []expoMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msgs))
		data := make([]map[string]any, len(msgs))
		for i, m := range msgs {
			if m.To == "dead" {
				data[i] = map[string]any{"status": "error", "message": "not registered", "details": map[string]any{"error": "DeviceNotRegistered"}}
				continue
			}
			data[i] = map[string]any{"status": "ok", "id": fmt.Sprint(i)}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	tokens := make([]string, 0, 150)
	for i := 0; i < 149; i++ {
		tokens = append(tokens, fmt.Sprintf("t%d", i))
	}
	tokens = append(tokens, "dead")

	results, err := NewExpoPusher(srv.URL).Push(context.Background(), tokens, "Başlık", "Mesaj")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, results, 150)
	assert.True(t, results[0].OK)
	assert.True(t, results[149].Unregistered)
}

func TestExpoPusherRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bakımda", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewExpoPusher(srv.URL).Push(context.Background(), []string{"t1"}, "a", "b")
	assert.Error(t, err)
}

func TestNotificationHandlers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	bob, _ := testutil.CreateTestUsers(t, db)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, bob.ID)
		c.Locals(auth.CtxUsernameKey, bob.Username)
		return c.Next()
	})
	p := &fakePusher{results: []Result{{Token: "t1", OK: true}}}
	app.Post("/device-token", SaveDeviceTokenHandler())
	app.Get("/notifications", HistoryHandler())
	app.Post("/admin/notifications", SendHandler(p))
	app.Delete("/admin/notifications/:id", DeleteHandler())

	post := func(url, body string) *http.Response {
		req := httptest.NewRequest("POST", url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, 200, post("/device-token", `{"device_token":"t1"}`).StatusCode)

	resp := post("/admin/notifications", `{"title":"Sayım","message":"Cuma sayım var"}`)
	require.Equal(t, 201, resp.StatusCode)
	var sent NotificationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sent))
	assert.Equal(t, 1, sent.Recipients)

	resp, err := app.Test(httptest.NewRequest("GET", "/notifications", nil))
	require.NoError(t, err)
	var list []NotificationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "Sayım", list[0].Title)

	resp, err = app.Test(httptest.NewRequest("DELETE", fmt.Sprintf("/admin/notifications/%d", sent.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", fmt.Sprintf("/admin/notifications/%d", sent.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
