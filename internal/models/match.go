package models

import "time"

// GenerationState is the lifecycle phase of the match generator.
type GenerationState string

const (
	GenerationStateIdle       GenerationState = "IDLE"
	GenerationStateBuilding   GenerationState = "BUILDING"
	GenerationStateSelecting  GenerationState = "SELECTING"
	GenerationStatePersisting GenerationState = "PERSISTING"
	GenerationStateDone       GenerationState = "DONE"
	GenerationStateFailed     GenerationState = "FAILED"
)

// Match is a persisted tutor/student pairing with the agreed instrument and window.
type Match struct {
	ID          string    `db:"id" json:"id"`
	RunID       string    `db:"run_id" json:"run_id"`
	TutorID     string    `db:"tutor_id" json:"tutor_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	Instrument  string    `db:"instrument" json:"instrument"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartMinute int       `db:"start_minute" json:"start_minute"`
	EndMinute   int       `db:"end_minute" json:"end_minute"`
	Score       int       `db:"score" json:"score"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// MatchDetail joins a match with participant names for display and export.
type MatchDetail struct {
	Match
	TutorName   string `db:"tutor_name" json:"tutor_name"`
	TutorEmail  string `db:"tutor_email" json:"tutor_email"`
	StudentName string `db:"student_name" json:"student_name"`
	ParentName  string `db:"parent_name" json:"parent_name"`
	ParentEmail string `db:"parent_email" json:"parent_email"`
}

// MatchFilter narrows match listings.
type MatchFilter struct {
	TutorID  string
	Page     int
	PageSize int
}

// MatchWriteFailure records a match row that could not be written.
type MatchWriteFailure struct {
	Match Match
	Err   error
}

// MatchWriteResult splits a persisted batch by outcome.
type MatchWriteResult struct {
	Created  []Match
	Existing []Match
	Failed   []MatchWriteFailure
}
