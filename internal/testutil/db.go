// Package testutil paketler arası ortak test yardımcıları.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB geçici dizinde foreign key açık bir SQLite veritabanı kurar
// ve database.DB'ye atar.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateTestUsers iki normal kullanıcı oluşturur.
func CreateTestUsers(t *testing.T, db *gorm.DB) (models.User, models.User) {
	t.Helper()

	u1 := models.User{Username: "bob", Email: "bob@test.com", PasswordHash: "hash1"}
	u2 := models.User{Username: "alice", Email: "alice@test.com", PasswordHash: "hash2"}
	require.NoError(t, db.Create(&u1).Error)
	require.NoError(t, db.Create(&u2).Error)
	return u1, u2
}

func CreateProduct(t *testing.T, db *gorm.DB, partCode string, qty, minLimit int) models.Product {
	t.Helper()

	p := models.Product{PartCode: partCode, Name: partCode + " parça", Quantity: qty, MinLimit: minLimit}
	require.NoError(t, db.Create(&p).Error)
	return p
}
