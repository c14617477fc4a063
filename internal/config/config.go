package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort    string
	Env         string
	DBDriver    string // postgres | sqlite
	DatabaseDSN string
	JWTSecret   string
	JWTTTL      time.Duration
	CORSOrigins string
	LogLevel    string

	ImportBatchSize    int   // Toplu içe aktarmada tek seferde yazılan satır sayısı
	ImportSyncRowLimit int   // Bu sayının üstündeki yüklemeler arka plana itilir
	ImportWorkers      int   // Arka plan içe aktarma işçi sayısı
	ImportMaxUploadMB  int   // Fiber body limiti
	ImportJobRetention time.Duration

	CriticalStockSchedule  string
	CriticalReportSchedule string // boşsa kritik stok raporu otomatik gönderilmez

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	PushEnabled bool // kapalıysa bildirimler gönderilmez, sadece kayıt tutulur
	PushAPIURL  string

	DefaultCriticalStockEmail string
	DefaultExportStockEmail   string
}

const defaultDSN = "host=localhost user=postgres password=postgres dbname=stok port=5432 sslmode=disable"

// Load .env dosyası varsa onu, yoksa ortam değişkenlerini okur.
func Load() (*Config, error) {
	cfg, err := LoadWithoutAuth()
	if err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET tanımlanmamış")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET en az 32 karakter olmalı")
	}
	return cfg, nil
}

// LoadWithoutAuth JWT ayarlarını doğrulamaz; token üretmeyen CLI komutları için.
func LoadWithoutAuth() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		Env:         getEnv("APP_ENV", "development"),
		DBDriver:    getEnv("DB_DRIVER", "postgres"),
		DatabaseDSN: getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTTTL:      time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		ImportBatchSize:    getEnvAsInt("IMPORT_BATCH_SIZE", 1000),
		ImportSyncRowLimit: getEnvAsInt("IMPORT_SYNC_ROW_LIMIT", 4000),
		ImportWorkers:      getEnvAsInt("IMPORT_WORKERS", 2),
		ImportMaxUploadMB:  getEnvAsInt("IMPORT_MAX_UPLOAD_MB", 32),
		ImportJobRetention: getEnvAsDuration("IMPORT_JOB_RETENTION", 30*24*time.Hour),

		CriticalStockSchedule:  getEnv("CRITICAL_STOCK_SCHEDULE", "@every 15m"),
		CriticalReportSchedule: getEnv("CRITICAL_REPORT_SCHEDULE", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "stok@localhost"),

		PushEnabled: getEnv("PUSH_ENABLED", "true") == "true",
		PushAPIURL:  getEnv("PUSH_API_URL", "https://exp.host/--/api/v2/push/send"),

		DefaultCriticalStockEmail: getEnv("CRITICAL_STOCK_EMAIL", "kritik@example.com"),
		DefaultExportStockEmail:   getEnv("EXPORT_STOCK_EMAIL", "export@example.com"),
	}

	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, fmt.Errorf("desteklenmeyen DB_DRIVER: %s", cfg.DBDriver)
	}
	if cfg.ImportBatchSize <= 0 {
		cfg.ImportBatchSize = 1000
	}
	if cfg.ImportWorkers <= 0 {
		cfg.ImportWorkers = 1
	}

	return cfg, nil
}

// DefaultDSN kullanıcı kendi bağlantısını tanımlamamışsa true döner.
func (c *Config) DefaultDSN() bool {
	return c.DatabaseDSN == defaultDSN
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return def
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return def
}
