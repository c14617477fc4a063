// Package report stok raporlarını xlsx olarak üretir ve ayarlardaki adrese e-postalar.
package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/importer"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/inventory"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/mailer"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/settings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Kind string

const (
	Critical  Kind = "critical" // kritik seviyedeki ürünler
	FullStock Kind = "stock"    // tüm ürünler, products içe aktarma formatında
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Critical, FullStock:
		return Kind(s), nil
	}
	return "", apperr.NotFound("bilinmeyen rapor: %s", s)
}

type File struct {
	Kind Kind
	Name string
	Rows int
	Data []byte
}

var criticalHeader = []string{"part_code", "name", "cabinet", "shelf", "quantity", "min_limit", "order_placed"}

// Build raporu xlsx dosyası olarak üretir.
func Build(ctx context.Context, db *gorm.DB, kind Kind, now time.Time) (*File, error) {
	var (
		sheet  string
		header []string
		rows   [][]any
		prefix string
	)

	switch kind {
	case Critical:
		products, err := inventory.CriticalProducts(ctx, db)
		if err != nil {
			return nil, err
		}
		sheet, header, prefix = "kritik-stok", criticalHeader, "kritik_stok"
		rows = make([][]any, 0, len(products))
		for _, p := range products {
			rows = append(rows, []any{p.PartCode, p.Name, p.Cabinet, p.Shelf, p.Quantity, p.MinLimit, p.OrderPlaced})
		}
	case FullStock:
		coll, err := importer.Lookup("products")
		if err != nil {
			return nil, err
		}
		if rows, err = coll.Export(ctx, db); err != nil {
			return nil, err
		}
		sheet, header, prefix = coll.Name(), coll.Header(), "tum_stok"
	default:
		return nil, apperr.NotFound("bilinmeyen rapor: %s", kind)
	}

	var buf bytes.Buffer
	if err := importer.WriteTable(&buf, importer.FormatXLSX, sheet, header, rows); err != nil {
		return nil, fmt.Errorf("rapor dosyası oluşturulamadı: %w", err)
	}
	return &File{
		Kind: kind,
		Name: fmt.Sprintf("%s_%s.xlsx", prefix, now.Format("20060102")),
		Rows: len(rows),
		Data: buf.Bytes(),
	}, nil
}

type Sent struct {
	Kind Kind   `json:"kind"`
	To   string `json:"to"`
	File string `json:"file"`
	Rows int    `json:"rows"`
}

// Sender raporu ayarlarda tanımlı alıcıya gönderir.
type Sender struct {
	DB       *gorm.DB
	Mailer   mailer.Mailer
	Defaults settings.Defaults
}

func (s *Sender) Send(ctx context.Context, kind Kind) (*Sent, error) {
	cfg, err := settings.Get(ctx, s.DB, s.Defaults)
	if err != nil {
		return nil, err
	}
	to := cfg.ExportStockEmail
	subject := "Tüm stok raporu"
	if kind == Critical {
		to = cfg.CriticalStockEmail
		subject = "Kritik stok raporu"
	}

	now := time.Now()
	f, err := Build(ctx, s.DB, kind, now)
	if err != nil {
		return nil, err
	}

	body := fmt.Sprintf("%s ekte (%d ürün, %s).", subject, f.Rows, now.Format("2006-01-02 15:04"))
	if kind == Critical && f.Rows == 0 {
		body = "Kritik seviyede ürün yok."
	}
	err = s.Mailer.Send(ctx, mailer.Message{
		To:          []string{to},
		Subject:     subject,
		Body:        body,
		Attachments: []mailer.Attachment{{Name: f.Name, ContentType: xlsxMIME, Data: f.Data}},
	})
	if err != nil {
		return nil, fmt.Errorf("rapor e-postası gönderilemedi: %w", err)
	}

	logger.Get().Info("Rapor gönderildi", zap.String("kind", string(kind)), zap.String("to", to), zap.Int("rows", f.Rows))
	return &Sent{Kind: kind, To: to, File: f.Name, Rows: f.Rows}, nil
}
