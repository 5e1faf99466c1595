package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Tutor is a volunteer who teaches one or more instruments.
type Tutor struct {
	ID           string         `db:"id" json:"id"`
	FullName     string         `db:"full_name" json:"full_name"`
	Email        string         `db:"email" json:"email"`
	MaxStudents  *int           `db:"max_students" json:"max_students,omitempty"`
	Instruments  types.JSONText `db:"instruments" json:"instruments"`
	Availability types.JSONText `db:"availability" json:"availability"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
