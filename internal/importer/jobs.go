package importer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type task struct {
	jobID string
	coll  Collection
	rows  Prepared
	opts  Options
}

// Runner büyük içe aktarmaları sabit sayıda işçiyle arka planda çalıştırır.
type Runner struct {
	db      *gorm.DB
	workers int
	queue   chan task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(db *gorm.DB, workers int) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		db:      db,
		workers: workers,
		queue:   make(chan task, workers*4),
	}
}

func (r *Runner) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work(i)
	}
	logger.Get().Info("İçe aktarma işçileri başlatıldı", zap.Int("workers", r.workers))
}

// Stop yeni iş kabulünü durdurur ve kuyruktaki işlerin bitmesini bekler.
func (r *Runner) Stop() {
	close(r.queue)
	r.wg.Wait()
	if r.cancel != nil {
		r.cancel()
	}
}

// Submit satırları doğrulanmış bir içe aktarmayı kuyruğa alır ve iş kaydını döner.
func (r *Runner) Submit(ctx context.Context, c Collection, rows Prepared, fileName string, opts Options) (*models.ImportJob, error) {
	opts.Mode = "async"
	opts.SyncRowLimit = 0

	job := &models.ImportJob{
		ID:         uuid.NewString(),
		Collection: c.Name(),
		FileName:   fileName,
		RowCount:   rows.Len(),
		Status:     models.ImportJobPending,
		Summary:    datatypes.JSON("null"),
		UserID:     opts.UserID,
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, apperr.Store("içe aktarma işi oluşturulamadı", err)
	}

	select {
	case r.queue <- task{jobID: job.ID, coll: c, rows: rows, opts: opts}:
		return job, nil
	default:
		r.finish(job.ID, nil, errors.New("içe aktarma kuyruğu dolu"))
		return nil, apperr.Conflict("içe aktarma kuyruğu dolu, daha sonra tekrar deneyin")
	}
}

func (r *Runner) work(n int) {
	defer r.wg.Done()
	for t := range r.queue {
		if err := r.markRunning(t.jobID); err != nil {
			logger.Get().Error("İçe aktarma işi güncellenemedi", zap.String("job_id", t.jobID), zap.Error(err))
		}

		sum, err := Apply(r.ctx, r.db, t.coll, t.rows, t.opts)
		r.finish(t.jobID, sum, err)
		logger.Get().Debug("İçe aktarma işi bitti", zap.Int("worker", n), zap.String("job_id", t.jobID), zap.Error(err))
	}
}

func (r *Runner) markRunning(jobID string) error {
	return r.db.Model(&models.ImportJob{}).Where("id = ?", jobID).
		Updates(map[string]any{"status": models.ImportJobRunning, "started_at": time.Now().UTC()}).Error
}

func (r *Runner) finish(jobID string, sum *Summary, runErr error) {
	updates := map[string]any{
		"status":      models.ImportJobSucceeded,
		"finished_at": time.Now().UTC(),
	}
	if runErr != nil {
		updates["status"] = models.ImportJobFailed
		updates["error"] = runErr.Error()
	} else if b, err := json.Marshal(sum); err == nil {
		updates["summary"] = datatypes.JSON(b)
	}

	if err := r.db.Model(&models.ImportJob{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		logger.Get().Error("İçe aktarma işi güncellenemedi", zap.String("job_id", jobID), zap.Error(err))
	}
}

func GetJob(ctx context.Context, db *gorm.DB, id string) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("içe aktarma işi bulunamadı")
		}
		return nil, apperr.Store("içe aktarma işi okunamadı", err)
	}
	return &job, nil
}

// PurgeJobs bitmiş ve saklama süresini aşmış iş kayıtlarını siler.
func PurgeJobs(ctx context.Context, db *gorm.DB, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	res := db.WithContext(ctx).
		Where("status IN ? AND finished_at < ?", []models.ImportJobStatus{models.ImportJobSucceeded, models.ImportJobFailed}, cutoff).
		Delete(&models.ImportJob{})
	return res.RowsAffected, res.Error
}
