package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tmc-tutoring/match-api/internal/models"
)

// ResetRepository clears participant and match data.
type ResetRepository struct {
	db *sqlx.DB
}

// NewResetRepository constructs a ResetRepository.
func NewResetRepository(db *sqlx.DB) *ResetRepository {
	return &ResetRepository{db: db}
}

// ResetAll deletes every match, student and tutor in one transaction.
// Admin settings are kept.
func (r *ResetRepository) ResetAll(ctx context.Context) (result models.ResetResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.ResetResult{}, fmt.Errorf("begin reset: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	steps := []struct {
		table string
		count *int64
	}{
		{"matches", &result.Matches},
		{"students", &result.Students},
		{"tutors", &result.Tutors},
	}
	for _, step := range steps {
		res, execErr := tx.ExecContext(ctx, "DELETE FROM "+step.table)
		if execErr != nil {
			err = fmt.Errorf("delete %s: %w", step.table, execErr)
			return models.ResetResult{}, err
		}
		if affected, rowsErr := res.RowsAffected(); rowsErr == nil {
			*step.count = affected
		}
	}

	if err = tx.Commit(); err != nil {
		return models.ResetResult{}, fmt.Errorf("commit reset: %w", err)
	}
	return result, nil
}
