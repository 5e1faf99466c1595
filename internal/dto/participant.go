package dto

import (
	"github.com/tmc-tutoring/match-api/internal/forms"
	"github.com/tmc-tutoring/match-api/internal/matching"
)

// InstrumentEntry is one submitted instrument row.
type InstrumentEntry struct {
	Value string `json:"value" yaml:"value" validate:"required"`
	Other string `json:"other,omitempty" yaml:"other,omitempty" validate:"max=100"`
}

// AvailabilityEntry is one submitted time-slot row.
type AvailabilityEntry struct {
	Day   string `json:"day" yaml:"day" validate:"required"`
	Start string `json:"start" yaml:"start" validate:"required"`
	End   string `json:"end" yaml:"end" validate:"required"`
}

// RegisterTutorRequest is the tutor intake form.
type RegisterTutorRequest struct {
	FullName     string              `json:"full_name" yaml:"full_name" validate:"required,max=200"`
	Email        string              `json:"email" yaml:"email" validate:"required,email"`
	MaxStudents  *int                `json:"max_students,omitempty" yaml:"max_students,omitempty" validate:"omitempty,min=1,max=50"`
	Instruments  []InstrumentEntry   `json:"instruments" yaml:"instruments" validate:"required,min=1,dive"`
	Availability []AvailabilityEntry `json:"availability" yaml:"availability" validate:"required,min=1,dive"`
}

// RegisterParentRequest is the parent intake form registering one student.
type RegisterParentRequest struct {
	ParentName   string              `json:"parent_name" yaml:"parent_name" validate:"required,max=200"`
	ParentEmail  string              `json:"parent_email" yaml:"parent_email" validate:"required,email"`
	StudentName  string              `json:"student_name" yaml:"student_name" validate:"required,max=200"`
	Instruments  []InstrumentEntry   `json:"instruments" yaml:"instruments" validate:"required,min=1,dive"`
	Availability []AvailabilityEntry `json:"availability" yaml:"availability" validate:"required,min=1,dive"`
}

// RegistrationResponse acknowledges an intake submission.
type RegistrationResponse struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// FormCommandRequest applies one control interaction to a client-held form.
type FormCommandRequest struct {
	State   *forms.State  `json:"state"`
	Command forms.Command `json:"command"`
}

// FormCommandResponse returns the updated form.
type FormCommandResponse struct {
	Form forms.View `json:"form"`
}

// InstrumentCatalogResponse lists the selectable instruments.
type InstrumentCatalogResponse struct {
	Instruments []string `json:"instruments"`
	Other       string   `json:"other"`
}

// ParticipantPool is a bulk import document.
type ParticipantPool struct {
	Tutors  []RegisterTutorRequest  `json:"tutors" yaml:"tutors"`
	Parents []RegisterParentRequest `json:"parents" yaml:"parents"`
}

// ImportResult reports a bulk import.
type ImportResult struct {
	TutorsCreated   int      `json:"tutors_created"`
	StudentsCreated int      `json:"students_created"`
	Rejected        []string `json:"rejected,omitempty"`
}

// RawInstruments converts submitted rows for the matching engine.
func RawInstruments(entries []InstrumentEntry) []matching.RawInstrument {
	raw := make([]matching.RawInstrument, 0, len(entries))
	for _, entry := range entries {
		raw = append(raw, matching.RawInstrument{Value: entry.Value, Other: entry.Other})
	}
	return raw
}

// RawWindows converts submitted rows for the matching engine.
func RawWindows(entries []AvailabilityEntry) []matching.RawWindow {
	raw := make([]matching.RawWindow, 0, len(entries))
	for _, entry := range entries {
		raw = append(raw, matching.RawWindow{Day: entry.Day, Start: entry.Start, End: entry.End})
	}
	return raw
}
