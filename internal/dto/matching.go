package dto

import (
	"time"

	"github.com/tmc-tutoring/match-api/internal/models"
)

// ExcludedParticipant is a participant left out of a generation run.
type ExcludedParticipant struct {
	ID     string `json:"id"`
	Role   string `json:"role"`
	Reason string `json:"reason"`
}

// FailedPair is a chosen pairing whose match row could not be written.
type FailedPair struct {
	TutorID   string `json:"tutor_id"`
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// GenerationSummary reports the outcome of one generation run.
type GenerationSummary struct {
	RunID                string                 `json:"run_id"`
	State                models.GenerationState `json:"state"`
	MatchedCount         int                    `json:"matched_count"`
	CreatedCount         int                    `json:"created_count"`
	ExistingCount        int                    `json:"existing_count"`
	UnmatchedStudents    []string               `json:"unmatched_students"`
	UnmatchedTutors      []string               `json:"unmatched_tutors"`
	ExcludedParticipants []ExcludedParticipant  `json:"excluded_participants"`
	FailedPairs          []FailedPair           `json:"failed_pairs,omitempty"`
	StartedAt            time.Time              `json:"started_at"`
	FinishedAt           time.Time              `json:"finished_at"`
}

// GenerationStatus describes the generator state and the last finished run.
type GenerationStatus struct {
	State     models.GenerationState `json:"state"`
	Running   bool                   `json:"running"`
	LastRunID string                 `json:"last_run_id,omitempty"`
	LastRunAt *time.Time             `json:"last_run_at,omitempty"`
}

// MatchQuery filters the persisted match listing.
type MatchQuery struct {
	TutorID  string `form:"tutor_id"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=500"`
}

// MatchView is a persisted match rendered for display.
type MatchView struct {
	ID          string `json:"id"`
	RunID       string `json:"run_id"`
	TutorID     string `json:"tutor_id"`
	TutorName   string `json:"tutor_name"`
	TutorEmail  string `json:"tutor_email"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	ParentName  string `json:"parent_name"`
	ParentEmail string `json:"parent_email"`
	Instrument  string `json:"instrument"`
	Day         string `json:"day"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Score       int    `json:"score"`
}
