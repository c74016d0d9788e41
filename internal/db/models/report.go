package models

import "time"

// Report formats
const (
	ReportFormatNarrative = "narrative" // Markdown text owned by the rich-text editor
	ReportFormatTabular   = "tabular"   // JSON-encoded grid
)

// Report is a project report. For tabular reports Content holds the serialized grid.
type Report struct {
	ID        string    `gorm:"primaryKey" json:"id"` // UUID
	ProjectID string    `gorm:"index" json:"project_id"`
	Title     string    `json:"title"`
	Format    string    `gorm:"not null;default:'narrative'" json:"format"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
