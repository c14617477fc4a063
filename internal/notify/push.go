// Package notify mobil cihazlara push bildirimi gönderir ve bildirim geçmişini tutar.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/config"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"

	"go.uber.org/zap"
)

// Expo push API tek istekte en fazla 100 mesaj kabul ediyor.
const pushChunkSize = 100

type Result struct {
	Token        string
	OK           bool
	Unregistered bool // token artık geçersiz, silinmeli
	Error        string
}

type Pusher interface {
	Push(ctx context.Context, tokens []string, title, body string) ([]Result, error)
}

func NewPusher(cfg *config.Config) Pusher {
	if !cfg.PushEnabled || cfg.PushAPIURL == "" {
		return disabled{}
	}
	return NewExpoPusher(cfg.PushAPIURL)
}

type ExpoPusher struct {
	client *http.Client
	url    string
}

func NewExpoPusher(url string) *ExpoPusher {
	return &ExpoPusher{
		client: &http.Client{Timeout: 15 * time.Second},
		url:    url,
	}
}

type expoMessage struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

type expoResponse struct {
	Data []struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Details struct {
			Error string `json:"error"`
		} `json:"details"`
	} `json:"data"`
}

func (p *ExpoPusher) Push(ctx context.Context, tokens []string, title, body string) ([]Result, error) {
	results := make([]Result, 0, len(tokens))
	for start := 0; start < len(tokens); start += pushChunkSize {
		chunk := tokens[start:min(start+pushChunkSize, len(tokens))]
		res, err := p.send(ctx, chunk, title, body)
		if err != nil {
			return results, err
		}
		results = append(results, res...)
	}
	return results, nil
}

func (p *ExpoPusher) send(ctx context.Context, tokens []string, title, body string) ([]Result, error) {
	msgs := make([]expoMessage, len(tokens))
	for i, t := range tokens {
		msgs[i] = expoMessage{To: t, Title: title, Body: body, Sound: "default"}
	}
	payload, err := json.Marshal(msgs)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push servisine ulaşılamadı: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("push servisi %d döndü: %s", resp.StatusCode, string(raw))
	}

	var parsed expoResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("push yanıtı çözülemedi: %w", err)
	}
	if len(parsed.Data) != len(tokens) {
		return nil, fmt.Errorf("push yanıtında %d sonuç var, %d bekleniyordu", len(parsed.Data), len(tokens))
	}

	results := make([]Result, len(tokens))
	for i, d := range parsed.Data {
		results[i] = Result{
			Token:        tokens[i],
			OK:           d.Status == "ok",
			Unregistered: d.Details.Error == "DeviceNotRegistered",
			Error:        d.Message,
		}
	}
	return results, nil
}

type disabled struct{}

func (disabled) Push(_ context.Context, tokens []string, title, _ string) ([]Result, error) {
	logger.Get().Info("Push kapalı, bildirim sadece kaydedildi", zap.String("title", title), zap.Int("tokens", len(tokens)))
	return nil, nil
}
