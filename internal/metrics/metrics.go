package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inventory"

var (
	// HTTP
	RequestDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP istek süreleri",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	APIErrorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "Hata ile dönen istek sayısı",
		},
		[]string{"method", "path", "status"},
	)

	// Stok hareketleri
	LedgerOperationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Stok hareketi işlemleri (tip ve sonuca göre)",
		},
		[]string{"type", "outcome"},
	)

	CriticalProductsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "critical_products",
		Help:      "Miktarı min_limit altına düşmüş ürün sayısı",
	})

	// İçe aktarma
	ImportRunCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_runs_total",
			Help:      "İçe aktarma çalıştırmaları",
		},
		[]string{"collection", "mode", "outcome"},
	)

	ImportDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "İçe aktarma süresi",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"collection"},
	)

	ImportRowsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "İçe aktarmada işlenen satırlar (işleme göre)",
		},
		[]string{"collection", "action"},
	)
)

// ObserveLedger bir stok işleminin sonucunu sayar.
func ObserveLedger(txType string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	LedgerOperationCounter.WithLabelValues(txType, outcome).Inc()
}

// Middleware route şablonu üzerinden istek metriklerini toplar.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		path := c.Route().Path
		code := strconv.Itoa(status)
		RequestDurationHistogram.WithLabelValues(c.Method(), path, code).Observe(time.Since(start).Seconds())
		if status >= 400 {
			APIErrorCounter.WithLabelValues(c.Method(), path, code).Inc()
		}
		return err
	}
}

// Handler /metrics endpoint'i.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
