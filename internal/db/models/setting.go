package models

import "time"

// Setting is one durable key-value slot (API key, serialized token table, ...).
type Setting struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
