package db

import (
	"errors"

	"github.com/pysugar/cde-nexus/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsSlot is a string-valued key-value store backed by the settings table.
type SettingsSlot struct {
	db *gorm.DB
}

// NewSettingsSlot wraps db as a key-value slot.
func NewSettingsSlot(db *gorm.DB) *SettingsSlot {
	return &SettingsSlot{db: db}
}

// Get returns the value stored under key. ok is false when the key was never written.
func (s *SettingsSlot) Get(key string) (string, bool, error) {
	var setting models.Setting
	err := s.db.Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return setting.Value, true, nil
}

// Set replaces the value stored under key in a single statement.
func (s *SettingsSlot) Set(key, value string) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.Setting{Key: key, Value: value}).Error
}
