// Package report stores project reports and applies tabular edits to them.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/pysugar/cde-nexus/internal/db/models"
	"github.com/pysugar/cde-nexus/internal/logging"
	"github.com/pysugar/cde-nexus/internal/report/grid"
	"github.com/yuin/goldmark"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("report not found")
	ErrInvalidFormat = errors.New("invalid report format")
	ErrNotTabular    = errors.New("report is not tabular")
	ErrNotNarrative  = errors.New("report is not narrative")
)

// NewReport is the input for Create.
type NewReport struct {
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Format    string `json:"format"`
	Content   string `json:"content"`
}

// Service manages reports in the database.
type Service struct {
	db       *gorm.DB
	markdown goldmark.Markdown
}

// NewService creates a report service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, markdown: goldmark.New()}
}

// Create stores a new report. A tabular report without content starts from the
// default grid; tabular content that is not a serialized grid is rejected.
func (s *Service) Create(ctx context.Context, in NewReport) (*models.Report, error) {
	format := strings.ToLower(strings.TrimSpace(in.Format))
	if format == "" {
		format = models.ReportFormatNarrative
	}

	content := in.Content
	switch format {
	case models.ReportFormatNarrative:
	case models.ReportFormatTabular:
		if strings.TrimSpace(content) == "" {
			serialized, err := grid.New().Serialize()
			if err != nil {
				return nil, err
			}
			content = serialized
		} else {
			canonical, err := canonicalGrid(content)
			if err != nil {
				return nil, err
			}
			content = canonical
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, in.Format)
	}

	rep := &models.Report{
		ID:        uuid.New().String(),
		ProjectID: strings.TrimSpace(in.ProjectID),
		Title:     strings.TrimSpace(in.Title),
		Format:    format,
		Content:   content,
	}
	if err := s.db.WithContext(ctx).Create(rep).Error; err != nil {
		return nil, err
	}
	log.Printf("📝 Created %s report %s (%s)", rep.Format, rep.ID, rep.Title)
	return rep, nil
}

// Get returns a report by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Report, error) {
	var rep models.Report
	err := s.db.WithContext(ctx).First(&rep, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// List returns reports, newest first, optionally limited to one project.
func (s *Service) List(ctx context.Context, projectID string) ([]models.Report, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	var reports []models.Report
	if err := q.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// UpdateContent replaces a report's title (when non-empty) and content.
// Tabular content must be a serialized grid.
func (s *Service) UpdateContent(ctx context.Context, id, title, content string) (*models.Report, error) {
	rep, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.Format == models.ReportFormatTabular {
		canonical, err := canonicalGrid(content)
		if err != nil {
			return nil, err
		}
		content = canonical
	}
	if t := strings.TrimSpace(title); t != "" {
		rep.Title = t
	}
	rep.Content = content
	if err := s.db.WithContext(ctx).Save(rep).Error; err != nil {
		return nil, err
	}
	return rep, nil
}

// Delete removes a report.
func (s *Service) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Report{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Grid returns the grid of a tabular report. Unreadable content yields the default grid.
func (s *Service) Grid(ctx context.Context, id string) (*grid.Grid, error) {
	rep, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.Format != models.ReportFormatTabular {
		return nil, ErrNotTabular
	}
	return grid.ParseOrDefault(rep.Content), nil
}

// ApplyGridOp applies one edit to a tabular report and saves it if anything changed.
func (s *Service) ApplyGridOp(ctx context.Context, id string, op grid.Op) (*grid.Grid, grid.Result, error) {
	rep, err := s.Get(ctx, id)
	if err != nil {
		return nil, grid.Result{}, err
	}
	if rep.Format != models.ReportFormatTabular {
		return nil, grid.Result{}, ErrNotTabular
	}

	g := grid.ParseOrDefault(rep.Content)
	res, err := g.Apply(op)
	if err != nil {
		return nil, grid.Result{}, err
	}
	if !res.Changed {
		return g, res, nil
	}

	content, err := g.Serialize()
	if err != nil {
		return nil, grid.Result{}, err
	}
	rep.Content = content
	if err := s.db.WithContext(ctx).Save(rep).Error; err != nil {
		return nil, grid.Result{}, err
	}
	rows, cols := g.Shape()
	logging.Printf(ctx, "📝 Applied %s to report %s (now %dx%d)", op.Op, rep.ID, rows, cols)
	return g, res, nil
}

// RenderHTML converts a narrative report's Markdown content to HTML.
func (s *Service) RenderHTML(ctx context.Context, id string) (string, error) {
	rep, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if rep.Format != models.ReportFormatNarrative {
		return "", ErrNotNarrative
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(rep.Content), &buf); err != nil {
		return "", fmt.Errorf("render report %s: %w", id, err)
	}
	return buf.String(), nil
}

// canonicalGrid validates tabular content and re-encodes it in the stored array form.
func canonicalGrid(content string) (string, error) {
	g, err := grid.Deserialize(content)
	if err != nil {
		return "", err
	}
	return g.Serialize()
}
