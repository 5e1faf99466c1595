package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tmc-tutoring/match-api/internal/models"
)

const matchDetailSelect = `SELECT m.id, m.run_id, m.tutor_id, m.student_id, m.instrument, m.day_of_week, m.start_minute, m.end_minute, m.score, m.created_at,
t.full_name AS tutor_name, t.email AS tutor_email, s.student_name, s.parent_name, s.parent_email
FROM matches m
JOIN tutors t ON t.id = m.tutor_id
JOIN students s ON s.id = m.student_id`

// MatchRepository persists generated matches.
type MatchRepository struct {
	db *sqlx.DB
}

// NewMatchRepository constructs a MatchRepository.
func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// PersistBatch writes matches in one transaction. Each row runs under its own
// savepoint: a row that fails is rolled back alone and reported in Failed,
// a row whose (tutor_id, student_id) pair already exists is left untouched and
// reported in Existing. The returned error is non-nil only when the batch as a
// whole could not be written, in which case nothing was committed.
func (r *MatchRepository) PersistBatch(ctx context.Context, matches []models.Match) (result *models.MatchWriteResult, err error) {
	result = &models.MatchWriteResult{}
	if len(matches) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin match batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO matches (id, run_id, tutor_id, student_id, instrument, day_of_week, start_minute, end_minute, score, created_at)
VALUES (:id, :run_id, :tutor_id, :student_id, :instrument, :day_of_week, :start_minute, :end_minute, :score, :created_at)
ON CONFLICT (tutor_id, student_id) DO NOTHING`

	now := time.Now().UTC()
	for i := range matches {
		match := matches[i]
		if match.ID == "" {
			match.ID = uuid.NewString()
		}
		if match.CreatedAt.IsZero() {
			match.CreatedAt = now
		}

		if _, err = tx.ExecContext(ctx, "SAVEPOINT match_write"); err != nil {
			return nil, fmt.Errorf("savepoint match write: %w", err)
		}
		res, execErr := tx.NamedExecContext(ctx, insertQuery, match)
		if execErr != nil {
			if _, err = tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT match_write"); err != nil {
				return nil, fmt.Errorf("rollback match write: %w", err)
			}
			result.Failed = append(result.Failed, models.MatchWriteFailure{Match: match, Err: fmt.Errorf("insert match: %w", execErr)})
			continue
		}
		if _, err = tx.ExecContext(ctx, "RELEASE SAVEPOINT match_write"); err != nil {
			return nil, fmt.Errorf("release match write: %w", err)
		}

		affected, rowsErr := res.RowsAffected()
		if rowsErr == nil && affected == 0 {
			result.Existing = append(result.Existing, match)
			continue
		}
		result.Created = append(result.Created, match)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit match batch: %w", err)
	}
	return result, nil
}

// List returns matches with participant names, paginated and ordered by tutor and student.
func (r *MatchRepository) List(ctx context.Context, filter models.MatchFilter) ([]models.MatchDetail, int, error) {
	var conditions []string
	var args []interface{}
	if filter.TutorID != "" {
		conditions = append(conditions, fmt.Sprintf("m.tutor_id = $%d", len(args)+1))
		args = append(args, filter.TutorID)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY m.tutor_id ASC, m.student_id ASC LIMIT %d OFFSET %d", matchDetailSelect, where, size, offset)
	var matches []models.MatchDetail
	if err := r.db.SelectContext(ctx, &matches, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list matches: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM matches m%s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count matches: %w", err)
	}
	return matches, total, nil
}

// ListAll returns every match with participant names, ordered by tutor and student.
func (r *MatchRepository) ListAll(ctx context.Context) ([]models.MatchDetail, error) {
	query := matchDetailSelect + " ORDER BY m.tutor_id ASC, m.student_id ASC"
	var matches []models.MatchDetail
	if err := r.db.SelectContext(ctx, &matches, query); err != nil {
		return nil, fmt.Errorf("list all matches: %w", err)
	}
	return matches, nil
}

// ListPairs returns every persisted match row without participant details.
func (r *MatchRepository) ListPairs(ctx context.Context) ([]models.Match, error) {
	const query = `SELECT id, run_id, tutor_id, student_id, instrument, day_of_week, start_minute, end_minute, score, created_at
FROM matches ORDER BY tutor_id ASC, student_id ASC`
	var matches []models.Match
	if err := r.db.SelectContext(ctx, &matches, query); err != nil {
		return nil, fmt.Errorf("list match pairs: %w", err)
	}
	return matches, nil
}
