package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tmc-tutoring/match-api/internal/models"
	appErrors "github.com/tmc-tutoring/match-api/pkg/errors"
	"github.com/tmc-tutoring/match-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type matchSnapshotReader interface {
	ListAll(ctx context.Context) ([]models.MatchDetail, error)
}

type renderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	ContentType() string
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders the persisted matches as downloadable documents.
type ExportService struct {
	matches   matchSnapshotReader
	renderers map[string]renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the
// default CSV and PDF exporters.
func NewExportService(matches matchSnapshotReader, logger *zap.Logger, csv, pdf renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		matches:   matches,
		renderers: map[string]renderer{ExportFormatCSV: csv, ExportFormatPDF: pdf},
		logger:    logger,
		now:       time.Now,
	}
}

// ExportMatches renders every persisted match in the requested format.
func (s *ExportService) ExportMatches(ctx context.Context, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	render, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	matches, err := s.matches.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load matches")
	}

	payload, err := render.Render(matchDataset(matches), "Tutor Matches")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("matches exported", zap.String("format", format), zap.Int("rows", len(matches)))
	return &ExportFile{
		Filename:    fmt.Sprintf("matches_%s.%s", s.now().UTC().Format("20060102_150405"), format),
		ContentType: render.ContentType(),
		Data:        payload,
		Rows:        len(matches),
	}, nil
}

var matchExportHeaders = []string{
	"Tutor", "Tutor Email", "Student", "Parent", "Parent Email", "Instrument", "Day", "Start", "End", "Score",
}

func matchDataset(matches []models.MatchDetail) export.Dataset {
	rows := make([][]string, 0, len(matches))
	for _, match := range matches {
		view := toMatchView(match)
		rows = append(rows, []string{
			view.TutorName,
			view.TutorEmail,
			view.StudentName,
			view.ParentName,
			view.ParentEmail,
			view.Instrument,
			view.Day,
			view.Start,
			view.End,
			strconv.Itoa(view.Score),
		})
	}
	return export.Dataset{Headers: matchExportHeaders, Rows: rows}
}
