package db

import (
	"crypto/rand"
	"encoding/hex"
	"log"

	"github.com/glebarez/sqlite"
	"github.com/pysugar/cde-nexus/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const apiKeySetting = "api_key"

// InitDB initializes the SQLite database connection and runs migrations.
func InitDB(dbPath string) (*gorm.DB, error) {
	// Warn level only: Info would echo the serialized token table into the log.
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	// Ensure API key exists (generate on first run)
	ensureAPIKey(db)

	return db, nil
}

// Migrate creates or updates all tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Setting{}, &models.Report{})
}

// ensureAPIKey generates API key if not exists
func ensureAPIKey(db *gorm.DB) {
	var setting models.Setting
	if err := db.Where("key = ?", apiKeySetting).First(&setting).Error; err == nil {
		return
	}

	apiKey := newAPIKey()
	db.Create(&models.Setting{Key: apiKeySetting, Value: apiKey})
	log.Printf("🔑 Generated new API key: %s", apiKey)
}

// GetAPIKey retrieves the API key from database
func GetAPIKey(db *gorm.DB) string {
	var setting models.Setting
	db.Where("key = ?", apiKeySetting).First(&setting)
	return setting.Value
}

// RegenerateAPIKey creates a new API key
func RegenerateAPIKey(db *gorm.DB) string {
	apiKey := newAPIKey()
	db.Model(&models.Setting{}).Where("key = ?", apiKeySetting).Update("value", apiKey)
	log.Printf("🔑 Regenerated API key: %s", apiKey)
	return apiKey
}

// newAPIKey returns sk-<32 hex chars>
func newAPIKey() string {
	keyBytes := make([]byte, 16)
	rand.Read(keyBytes)
	return "sk-" + hex.EncodeToString(keyBytes)
}
