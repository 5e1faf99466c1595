package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tmc-tutoring/match-api/internal/models"
)

const tutorColumns = "id, full_name, email, max_students, instruments, availability, created_at, updated_at"

// TutorRepository manages persistence for tutors.
type TutorRepository struct {
	db *sqlx.DB
}

// NewTutorRepository constructs a TutorRepository.
func NewTutorRepository(db *sqlx.DB) *TutorRepository {
	return &TutorRepository{db: db}
}

// ListAll returns every tutor ordered by id.
func (r *TutorRepository) ListAll(ctx context.Context) ([]models.Tutor, error) {
	query := fmt.Sprintf("SELECT %s FROM tutors ORDER BY id ASC", tutorColumns)
	var tutors []models.Tutor
	if err := r.db.SelectContext(ctx, &tutors, query); err != nil {
		return nil, fmt.Errorf("list tutors: %w", err)
	}
	return tutors, nil
}

// FindByID fetches a tutor by ID.
func (r *TutorRepository) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	query := fmt.Sprintf("SELECT %s FROM tutors WHERE id = $1", tutorColumns)
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, id); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// ExistsByEmail checks whether a tutor already registered with the email.
func (r *TutorRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = "SELECT 1 FROM tutors WHERE LOWER(email) = LOWER($1) LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check tutor email: %w", err)
	}
	return true, nil
}

// Create inserts a new tutor record.
func (r *TutorRepository) Create(ctx context.Context, tutor *models.Tutor) error {
	if tutor.ID == "" {
		tutor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tutor.CreatedAt.IsZero() {
		tutor.CreatedAt = now
	}
	tutor.UpdatedAt = now

	const query = `INSERT INTO tutors (id, full_name, email, max_students, instruments, availability, created_at, updated_at)
		VALUES (:id, :full_name, :email, :max_students, :instruments, :availability, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tutor); err != nil {
		return fmt.Errorf("create tutor: %w", err)
	}
	return nil
}
