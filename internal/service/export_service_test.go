package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tmc-tutoring/match-api/internal/dto"
	"github.com/tmc-tutoring/match-api/internal/models"
	appErrors "github.com/tmc-tutoring/match-api/pkg/errors"
)

type matchReaderStub struct {
	rows       []models.MatchDetail
	err        error
	lastFilter models.MatchFilter
}

func (s *matchReaderStub) ListAll(ctx context.Context) ([]models.MatchDetail, error) {
	return s.rows, s.err
}

func (s *matchReaderStub) List(ctx context.Context, filter models.MatchFilter) ([]models.MatchDetail, int, error) {
	s.lastFilter = filter
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.rows, len(s.rows), nil
}

func sampleMatchDetails() []models.MatchDetail {
	return []models.MatchDetail{
		{
			Match: models.Match{
				ID: "m1", RunID: "run-1", TutorID: "t1", StudentID: "s1", Instrument: "Piano",
				DayOfWeek: 1, StartMinute: 15 * 60, EndMinute: 16*60 + 30, Score: 2,
			},
			TutorName: "Ada Tutor", TutorEmail: "ada@example.com",
			StudentName: "Sam", ParentName: "Pat", ParentEmail: "pat@example.com",
		},
	}
}

func TestExportMatchesCSV(t *testing.T) {
	svc := NewExportService(&matchReaderStub{rows: sampleMatchDetails()}, zap.NewNop(), nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	file, err := svc.ExportMatches(context.Background(), "CSV")
	require.NoError(t, err)
	assert.Equal(t, "matches_20240506_070809.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, 1, file.Rows)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Ada Tutor,ada@example.com,Sam,Pat,pat@example.com,Piano,Monday,15:00,16:30,2", lines[1])
}

func TestExportMatchesPDF(t *testing.T) {
	svc := NewExportService(&matchReaderStub{rows: sampleMatchDetails()}, nil, nil, nil)
	file, err := svc.ExportMatches(context.Background(), "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportMatchesErrors(t *testing.T) {
	svc := NewExportService(&matchReaderStub{}, nil, nil, nil)
	_, err := svc.ExportMatches(context.Background(), "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	svc = NewExportService(&matchReaderStub{err: errors.New("db down")}, nil, nil, nil)
	_, err = svc.ExportMatches(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestMatchQueryList(t *testing.T) {
	reader := &matchReaderStub{rows: sampleMatchDetails()}
	svc := NewMatchQueryService(reader, nil)

	views, pagination, err := svc.List(context.Background(), dto.MatchQuery{TutorID: "t1"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Monday", views[0].Day)
	assert.Equal(t, "16:30", views[0].End)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, defaultMatchPageSize, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, "t1", reader.lastFilter.TutorID)

	_, _, err = svc.List(context.Background(), dto.MatchQuery{PageSize: 1000})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
