// Package scheduler periyodik bakım işlerini cron ile çalıştırır.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/config"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/importer"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/inventory"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/metrics"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/notify"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/report"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Deps zamanlanmış işlerin dış servisleri. Boş alanlar ilgili adımı kapatır.
type Deps struct {
	Pusher  notify.Pusher
	Reports *report.Sender
}

const jobTimeout = 5 * time.Minute

func Jobs(cfg *config.Config, db *gorm.DB, deps Deps) []Job {
	scanner := NewCriticalScanner(db, deps.Pusher)
	jobs := []Job{
		{
			Name:     "critical-stock-scan",
			Schedule: cfg.CriticalStockSchedule,
			Run: func(ctx context.Context) error {
				_, err := scanner.Scan(ctx)
				return err
			},
		},
		{
			Name:     "import-job-retention",
			Schedule: "@daily",
			Run: func(ctx context.Context) error {
				n, err := importer.PurgeJobs(ctx, db, cfg.ImportJobRetention)
				if err == nil && n > 0 {
					logger.Get().Info("Eski içe aktarma işleri silindi", zap.Int64("count", n))
				}
				return err
			},
		},
	}
	if cfg.CriticalReportSchedule != "" && deps.Reports != nil {
		jobs = append(jobs, Job{
			Name:     "critical-stock-report",
			Schedule: cfg.CriticalReportSchedule,
			Run: func(ctx context.Context) error {
				sent, err := deps.Reports.Send(ctx, report.Critical)
				if err != nil {
					return err
				}
				logger.Get().Info("Kritik stok raporu gönderildi", zap.String("to", sent.To), zap.Int("rows", sent.Rows))
				return nil
			},
		})
	}
	return jobs
}

// Start işleri kaydeder ve zamanlayıcıyı başlatır. Durdurmak için Stop çağrılmalı.
func Start(ctx context.Context, jobs []Job) (*cron.Cron, error) {
	c := cron.New()
	for _, j := range jobs {
		job := j
		_, err := c.AddFunc(job.Schedule, func() {
			runCtx, cancel := context.WithTimeout(ctx, jobTimeout)
			defer cancel()

			start := time.Now()
			if err := job.Run(runCtx); err != nil {
				logger.Get().Error("Zamanlanmış iş başarısız", zap.String("job", job.Name), zap.Error(err))
				return
			}
			logger.Get().Debug("Zamanlanmış iş tamamlandı", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
		})
		if err != nil {
			return nil, err
		}
	}
	c.Start()
	logger.Get().Info("Zamanlayıcı başlatıldı", zap.Int("jobs", len(jobs)))
	return c, nil
}

// CriticalScanner kritik ürünleri tarar ve yalnızca yeni kritik seviyeye düşen,
// siparişi verilmemiş ürünler için uyarır. Seviyesi düzelen ürün kümeden çıkar,
// tekrar düşerse yeniden uyarılır.
type CriticalScanner struct {
	db     *gorm.DB
	pusher notify.Pusher

	mu   sync.Mutex
	seen map[uint]bool
}

func NewCriticalScanner(db *gorm.DB, p notify.Pusher) *CriticalScanner {
	return &CriticalScanner{db: db, pusher: p, seen: map[uint]bool{}}
}

type ScanResult struct {
	Critical int
	Fresh    []models.Product
}

func (s *CriticalScanner) Scan(ctx context.Context) (*ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := inventory.CriticalProducts(ctx, s.db)
	if err != nil {
		return nil, err
	}
	metrics.CriticalProductsGauge.Set(float64(len(products)))

	res := &ScanResult{Critical: len(products)}
	now := make(map[uint]bool, len(products))
	for _, p := range products {
		if p.OrderPlaced {
			continue
		}
		now[p.ID] = true
		if s.seen[p.ID] {
			continue
		}
		res.Fresh = append(res.Fresh, p)
		logger.Get().Warn("Kritik stok, sipariş verilmedi",
			zap.String("part_code", p.PartCode),
			zap.Int("quantity", p.Quantity),
			zap.Int("min_limit", p.MinLimit),
		)
	}
	s.seen = now

	if len(res.Fresh) > 0 && s.pusher != nil {
		codes := make([]string, len(res.Fresh))
		for i, p := range res.Fresh {
			codes[i] = p.PartCode
		}
		msg := fmt.Sprintf("Kritik seviyeye düşen parçalar: %s", strings.Join(codes, ", "))
		// push hatası taramayı bozmaz, Broadcast kendi logunu yazar
		_, _ = notify.Broadcast(ctx, s.db, s.pusher, "Kritik stok", msg)
	}
	return res, nil
}
