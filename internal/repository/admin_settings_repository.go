package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tmc-tutoring/match-api/internal/models"
)

// AdminSettingsRepository stores the administrator settings row.
type AdminSettingsRepository struct {
	db *sqlx.DB
}

// NewAdminSettingsRepository constructs an AdminSettingsRepository.
func NewAdminSettingsRepository(db *sqlx.DB) *AdminSettingsRepository {
	return &AdminSettingsRepository{db: db}
}

// Latest returns the most recently updated settings row. sql.ErrNoRows is
// returned unwrapped when none exists.
func (r *AdminSettingsRepository) Latest(ctx context.Context) (*models.AdminSettings, error) {
	const query = `SELECT id, form_open, password_hash, email, session_id, last_updated FROM admin_settings ORDER BY last_updated DESC LIMIT 1`
	var settings models.AdminSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Create inserts a settings row.
func (r *AdminSettingsRepository) Create(ctx context.Context, settings *models.AdminSettings) error {
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	settings.LastUpdated = time.Now().UTC()
	const query = `INSERT INTO admin_settings (id, form_open, password_hash, email, session_id, last_updated)
		VALUES (:id, :form_open, :password_hash, :email, :session_id, :last_updated)`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("create admin settings: %w", err)
	}
	return nil
}

// Update overwrites the settings row.
func (r *AdminSettingsRepository) Update(ctx context.Context, settings *models.AdminSettings) error {
	settings.LastUpdated = time.Now().UTC()
	const query = `UPDATE admin_settings SET form_open = :form_open, password_hash = :password_hash, email = :email, session_id = :session_id, last_updated = :last_updated WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("update admin settings: %w", err)
	}
	return nil
}
