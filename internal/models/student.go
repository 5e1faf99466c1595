package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Student is a learner registered by a parent through the intake form.
type Student struct {
	ID           string         `db:"id" json:"id"`
	StudentName  string         `db:"student_name" json:"student_name"`
	ParentName   string         `db:"parent_name" json:"parent_name"`
	ParentEmail  string         `db:"parent_email" json:"parent_email"`
	Instruments  types.JSONText `db:"instruments" json:"instruments"`
	Availability types.JSONText `db:"availability" json:"availability"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
