package database

import (
	"fmt"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/config"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open yapılandırmadaki sürücüyle bağlantı açar.
func Open(driver, dsn string) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), gcfg)
	case "sqlite":
		// SQLite'ta foreign key desteği bağlantı başına açılmalı
		return gorm.Open(sqlite.Open(dsn+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), gcfg)
	default:
		return nil, fmt.Errorf("desteklenmeyen veritabanı sürücüsü: %s", driver)
	}
}

// Init global DB'yi açar ve şemayı günceller.
func Init(cfg *config.Config) error {
	db, err := Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("veritabanına bağlanılamadı: %w", err)
	}
	if err := Migrate(db); err != nil {
		return err
	}
	DB = db
	logger.Get().Info("Veritabanı hazır", zap.String("driver", cfg.DBDriver))
	return nil
}

// Migrate tabloları oluşturur. Cihaz başına tek açık kurulum kısmi unique index ile korunur.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.DailyAccessCode{},
		&models.Product{},
		&models.ExternalProduct{},
		&models.UserStock{},
		&models.StockTransaction{},
		&models.Institution{},
		&models.DeviceType{},
		&models.DeviceRecord{},
		&models.Installation{},
		&models.Maintenance{},
		&models.Fault{},
		&models.InstitutionNote{},
		&models.DevicePartUsage{},
		&models.ImportJob{},
		&models.AuditLog{},
		&models.DeviceToken{},
		&models.NotificationLog{},
		&models.AppSettings{},
	); err != nil {
		return fmt.Errorf("migration başarısız: %w", err)
	}

	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_installations_open_device ON installations (device_id) WHERE uninstall_date IS NULL",
	).Error; err != nil {
		return fmt.Errorf("açık kurulum index'i oluşturulamadı: %w", err)
	}
	return nil
}
