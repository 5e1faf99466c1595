package service

import (
	"encoding/json"

	"github.com/jmoiron/sqlx/types"

	"github.com/tmc-tutoring/match-api/internal/matching"
	"github.com/tmc-tutoring/match-api/internal/models"
)

func decodeJSONColumn(text types.JSONText, dest interface{}) error {
	if len(text) == 0 || string(text) == "null" {
		return nil
	}
	return json.Unmarshal(text, dest)
}

func decodeRecord(id string, role matching.Role, capacity int, instruments, availability types.JSONText) (matching.RawParticipant, *matching.Exclusion) {
	raw := matching.RawParticipant{ID: id, Role: role, Capacity: capacity}
	fields := []struct {
		name string
		text types.JSONText
		dest interface{}
	}{
		{"instruments", instruments, &raw.Instruments},
		{"availability", availability, &raw.Availability},
	}
	for _, field := range fields {
		if err := decodeJSONColumn(field.text, field.dest); err != nil {
			inputErr := &matching.InputDataError{ParticipantID: id, Role: role, Field: field.name, Index: -1, Reason: err.Error()}
			return matching.RawParticipant{}, &matching.Exclusion{ID: id, Role: role, Reason: inputErr.Error(), Err: inputErr}
		}
	}
	return raw, nil
}

func decodeTutors(rows []models.Tutor) ([]matching.RawParticipant, []matching.Exclusion) {
	raws := make([]matching.RawParticipant, 0, len(rows))
	var excluded []matching.Exclusion
	for _, row := range rows {
		capacity := 0
		if row.MaxStudents != nil {
			capacity = *row.MaxStudents
		}
		raw, exclusion := decodeRecord(row.ID, matching.RoleTutor, capacity, row.Instruments, row.Availability)
		if exclusion != nil {
			excluded = append(excluded, *exclusion)
			continue
		}
		raws = append(raws, raw)
	}
	return raws, excluded
}

func decodeStudents(rows []models.Student) ([]matching.RawParticipant, []matching.Exclusion) {
	raws := make([]matching.RawParticipant, 0, len(rows))
	var excluded []matching.Exclusion
	for _, row := range rows {
		raw, exclusion := decodeRecord(row.ID, matching.RoleStudent, 0, row.Instruments, row.Availability)
		if exclusion != nil {
			excluded = append(excluded, *exclusion)
			continue
		}
		raws = append(raws, raw)
	}
	return raws, excluded
}
