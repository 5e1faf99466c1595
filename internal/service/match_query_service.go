package service

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/tmc-tutoring/match-api/internal/dto"
	"github.com/tmc-tutoring/match-api/internal/matching"
	"github.com/tmc-tutoring/match-api/internal/models"
	appErrors "github.com/tmc-tutoring/match-api/pkg/errors"
)

const defaultMatchPageSize = 50

type matchPageReader interface {
	List(ctx context.Context, filter models.MatchFilter) ([]models.MatchDetail, int, error)
}

// MatchQueryService lists persisted matches.
type MatchQueryService struct {
	matches   matchPageReader
	validator *validator.Validate
}

// NewMatchQueryService constructs a MatchQueryService.
func NewMatchQueryService(matches matchPageReader, validate *validator.Validate) *MatchQueryService {
	if validate == nil {
		validate = validator.New()
	}
	return &MatchQueryService{matches: matches, validator: validate}
}

// List returns one page of matches ordered by tutor and student.
func (s *MatchQueryService) List(ctx context.Context, query dto.MatchQuery) ([]dto.MatchView, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters")
	}
	if query.Page == 0 {
		query.Page = 1
	}
	if query.PageSize == 0 {
		query.PageSize = defaultMatchPageSize
	}

	rows, total, err := s.matches.List(ctx, models.MatchFilter{TutorID: query.TutorID, Page: query.Page, PageSize: query.PageSize})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list matches")
	}

	views := make([]dto.MatchView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toMatchView(row))
	}
	return views, &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: total}, nil
}

func toMatchView(match models.MatchDetail) dto.MatchView {
	return dto.MatchView{
		ID:          match.ID,
		RunID:       match.RunID,
		TutorID:     match.TutorID,
		TutorName:   match.TutorName,
		TutorEmail:  match.TutorEmail,
		StudentID:   match.StudentID,
		StudentName: match.StudentName,
		ParentName:  match.ParentName,
		ParentEmail: match.ParentEmail,
		Instrument:  match.Instrument,
		Day:         matching.DayName(match.DayOfWeek),
		Start:       matching.FormatClock(match.StartMinute),
		End:         matching.FormatClock(match.EndMinute),
		Score:       match.Score,
	}
}
