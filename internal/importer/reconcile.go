// Package importer tablo dosyalarından koleksiyon bazında tam senkronizasyon yapar:
// dosyada olmayan kayıtlar silinir, değişenler güncellenir, yeniler eklenir.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/audit"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/metrics"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultBatchSize = 1000

type Options struct {
	BatchSize    int
	SyncRowLimit int // 0 ise sınır yok (arka plan işleri ve CLI)
	UserID       *uint
	UserName     string
	Mode         string // "sync" | "async" | "cli"
}

// Summary içe aktarma sonucu.
type Summary struct {
	Collection string `json:"collection"`
	TotalRows  int    `json:"total_rows"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Unchanged  int    `json:"unchanged"`
	Deleted    int    `json:"deleted"`
}

// Prepared ayrıştırılmış ve doğrulanmış, veritabanına yazılmaya hazır satırlar.
type Prepared interface {
	Len() int
	apply(tx *gorm.DB, opts Options, sum *Summary) error
}

// Prepare tabloyu koleksiyon şemasına göre ayrıştırır; hiçbir veritabanı erişimi yapmaz.
func Prepare(c Collection, table [][]string, opts Options) (Prepared, error) {
	p, err := c.parse(table)
	if err != nil {
		return nil, err
	}
	if p.Len() == 0 {
		return nil, apperr.Guard("%s: dosyada geçerli satır yok, mevcut kayıtlar silinmedi", c.Name())
	}
	if opts.SyncRowLimit > 0 && p.Len() > opts.SyncRowLimit {
		return nil, apperr.Oversized("%d satır senkron içe aktarma sınırını (%d) aşıyor; ?async=true ile arka planda çalıştırın",
			p.Len(), opts.SyncRowLimit)
	}
	return p, nil
}

// Run tabloyu tek transaction içinde koleksiyona uygular. Hata olursa hiçbir değişiklik kalmaz.
// Senkron istekler ve arka plan işçileri aynı fonksiyonu çağırır.
func Run(ctx context.Context, db *gorm.DB, c Collection, table [][]string, opts Options) (*Summary, error) {
	p, err := Prepare(c, table, opts)
	if err != nil {
		metrics.ImportRunCounter.WithLabelValues(c.Name(), opts.Mode, "rejected").Inc()
		return nil, err
	}
	return Apply(ctx, db, c, p, opts)
}

// Apply önceden hazırlanmış satırları uygular.
func Apply(ctx context.Context, db *gorm.DB, c Collection, p Prepared, opts Options) (*Summary, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	start := time.Now()
	sum := &Summary{Collection: c.Name(), TotalRows: p.Len()}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := p.apply(tx, opts, sum); err != nil {
			return err
		}
		return audit.WriteLogTx(tx, audit.LogOptions{
			UserID:      opts.UserID,
			UserName:    opts.UserName,
			EntityType:  c.Name(),
			Action:      models.AuditActionImport,
			Description: fmt.Sprintf("İçe aktarma: %d eklendi, %d güncellendi, %d silindi", sum.Created, sum.Updated, sum.Deleted),
			After:       sum,
		})
	})

	metrics.ImportDurationHistogram.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ImportRunCounter.WithLabelValues(c.Name(), opts.Mode, "failed").Inc()
		logger.Get().Warn("İçe aktarma geri alındı", zap.String("collection", c.Name()), zap.Error(err))
		return nil, apperr.Store("içe aktarma kaydedilemedi", err)
	}

	metrics.ImportRunCounter.WithLabelValues(c.Name(), opts.Mode, "succeeded").Inc()
	metrics.ImportRowsCounter.WithLabelValues(c.Name(), "created").Add(float64(sum.Created))
	metrics.ImportRowsCounter.WithLabelValues(c.Name(), "updated").Add(float64(sum.Updated))
	metrics.ImportRowsCounter.WithLabelValues(c.Name(), "deleted").Add(float64(sum.Deleted))
	logger.Get().Info("İçe aktarma tamamlandı",
		zap.String("collection", c.Name()),
		zap.Int("rows", sum.TotalRows),
		zap.Int("created", sum.Created),
		zap.Int("updated", sum.Updated),
		zap.Int("deleted", sum.Deleted),
		zap.Duration("took", time.Since(start)),
	)
	return sum, nil
}

type change[M any] struct {
	old *M
	new *M
}

// diff bir koleksiyonun mevcut hali ile hedef hali arasındaki fark.
type diff[M any] struct {
	creates   []M
	updates   []change[M]
	deletes   []uint
	unchanged int
}

// table bir modelin reconcile için gereken erişimcileri.
type table[M any] struct {
	key     func(*M) string
	id      func(*M) uint
	setID   func(*M, uint)
	same    func(a, b *M) bool
	columns []string // güncellemede yazılan kolonlar
}

// computeDiff anahtarları Go tarafında karşılaştırır; veritabanı karşılaştırmasına güvenilmez.
// Mevcut kayıtlarda aynı anahtar iki kez varsa tam eşitleme yapılamaz, hata döner.
func computeDiff[M any](t table[M], current []M, wanted []M) (*diff[M], error) {
	byKey := make(map[string]*M, len(current))
	for i := range current {
		k := t.key(&current[i])
		if prev, dup := byKey[k]; dup {
			return nil, apperr.Conflict("veritabanında %q anahtarı tekrarlanıyor (id %d ve %d); önce tekrar eden kaydı düzeltin",
				k, t.id(prev), t.id(&current[i]))
		}
		byKey[k] = &current[i]
	}

	d := &diff[M]{}
	seen := make(map[string]bool, len(wanted))
	for i := range wanted {
		w := &wanted[i]
		k := t.key(w)
		seen[k] = true

		old, ok := byKey[k]
		if !ok {
			d.creates = append(d.creates, *w)
			continue
		}
		t.setID(w, t.id(old))
		if t.same(old, w) {
			d.unchanged++
			continue
		}
		d.updates = append(d.updates, change[M]{old: old, new: w})
	}

	for k, m := range byKey {
		if !seen[k] {
			d.deletes = append(d.deletes, t.id(m))
		}
	}
	return d, nil
}

// applyDiff önce silme, sonra güncelleme, en son ekleme yapar.
func applyDiff[M any](tx *gorm.DB, t table[M], d *diff[M], batch int, sum *Summary) error {
	for start := 0; start < len(d.deletes); start += batch {
		end := min(start+batch, len(d.deletes))
		if err := tx.Where("id IN ?", d.deletes[start:end]).Delete(new(M)).Error; err != nil {
			return err
		}
	}
	sum.Deleted = len(d.deletes)

	for _, u := range d.updates {
		if err := tx.Model(u.new).Select(t.columns).Updates(u.new).Error; err != nil {
			return err
		}
	}
	sum.Updated = len(d.updates)
	sum.Unchanged = d.unchanged

	if len(d.creates) > 0 {
		if err := tx.Omit(clause.Associations).CreateInBatches(&d.creates, batch).Error; err != nil {
			return err
		}
	}
	sum.Created = len(d.creates)
	return nil
}
