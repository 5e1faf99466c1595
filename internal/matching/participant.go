// Package matching computes tutor/student pairings from declared instruments and
// weekly availability. Everything here is pure, in-memory computation.
package matching

import (
	"fmt"
	"sort"
	"strings"
)

// Role distinguishes the two sides of a pairing.
type Role string

const (
	RoleTutor   Role = "tutor"
	RoleStudent Role = "student"
)

// RawInstrument is one instrument row as submitted by a form.
type RawInstrument struct {
	Value string `json:"value" yaml:"value"`
	Other string `json:"other,omitempty" yaml:"other,omitempty"`
}

// RawWindow is one availability row as submitted by a form.
type RawWindow struct {
	Day   string `json:"day" yaml:"day"`
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

func (w RawWindow) blank() bool {
	return strings.TrimSpace(w.Day) == "" && strings.TrimSpace(w.Start) == "" && strings.TrimSpace(w.End) == ""
}

// RawParticipant is an unvalidated tutor or student record.
type RawParticipant struct {
	ID           string
	Role         Role
	Capacity     int
	Instruments  []RawInstrument
	Availability []RawWindow
}

// Participant is a normalized record ready for candidate generation.
type Participant struct {
	ID          string
	Role        Role
	Capacity    int
	Instruments []Instrument
	Windows     []Window
	Eligible    bool
}

// Teaches reports whether the participant declared the instrument with the given key.
func (p Participant) Teaches(key string) bool {
	for _, instrument := range p.Instruments {
		if instrument.Key() == key {
			return true
		}
	}
	return false
}

// IneligibleReason explains why an ineligible participant is left out, or "" when eligible.
func (p Participant) IneligibleReason() string {
	switch {
	case p.Eligible:
		return ""
	case len(p.Instruments) == 0 && len(p.Windows) == 0:
		return "no instruments and no availability"
	case len(p.Instruments) == 0:
		return "no instruments"
	default:
		return "no availability"
	}
}

// InputDataError reports a malformed participant record. The participant is
// excluded from the run; other participants are unaffected. Index is -1 when
// the whole field is unreadable.
type InputDataError struct {
	ParticipantID string
	Role          Role
	Field         string
	Index         int
	Reason        string
}

func (e *InputDataError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s %s: %s", e.Role, e.ParticipantID, e.Reason)
	}
	if e.Index < 0 {
		return fmt.Sprintf("%s %s: %s: %s", e.Role, e.ParticipantID, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %s: %s[%d]: %s", e.Role, e.ParticipantID, e.Field, e.Index, e.Reason)
}

// Normalize converts a raw record into a Participant. Instruments are trimmed,
// case-folded and de-duplicated in declaration order; windows are validated and
// merged. A participant left with no instruments or no windows is returned with
// Eligible=false and a nil error.
func Normalize(raw RawParticipant) (Participant, error) {
	p := Participant{ID: raw.ID, Role: raw.Role, Capacity: raw.Capacity}
	if p.Capacity < 0 {
		p.Capacity = 0
	}

	seen := make(map[string]struct{}, len(raw.Instruments))
	for _, entry := range raw.Instruments {
		instrument, ok := ParseInstrument(entry.Value, entry.Other)
		if !ok {
			continue
		}
		if _, dup := seen[instrument.Key()]; dup {
			continue
		}
		seen[instrument.Key()] = struct{}{}
		p.Instruments = append(p.Instruments, instrument)
	}

	windows := make([]Window, 0, len(raw.Availability))
	for idx, entry := range raw.Availability {
		if entry.blank() {
			continue
		}
		window, err := ParseWindow(entry)
		if err != nil {
			return Participant{}, &InputDataError{
				ParticipantID: raw.ID,
				Role:          raw.Role,
				Field:         "availability",
				Index:         idx,
				Reason:        err.Error(),
			}
		}
		windows = append(windows, window)
	}
	p.Windows = MergeWindows(windows)
	p.Eligible = len(p.Instruments) > 0 && len(p.Windows) > 0
	return p, nil
}

// Exclusion records a participant that will not take part in candidate generation.
type Exclusion struct {
	ID     string
	Role   Role
	Reason string
	Err    error
}

// NormalizeAll normalizes a batch, splitting it into eligible participants
// (sorted by ID) and exclusions (malformed or ineligible records, sorted by ID).
func NormalizeAll(raws []RawParticipant) ([]Participant, []Exclusion) {
	eligible := make([]Participant, 0, len(raws))
	var excluded []Exclusion
	for _, raw := range raws {
		p, err := Normalize(raw)
		if err != nil {
			excluded = append(excluded, Exclusion{ID: raw.ID, Role: raw.Role, Reason: err.Error(), Err: err})
			continue
		}
		if !p.Eligible {
			excluded = append(excluded, Exclusion{ID: raw.ID, Role: raw.Role, Reason: p.IneligibleReason()})
			continue
		}
		eligible = append(eligible, p)
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	sort.Slice(excluded, func(i, j int) bool { return excluded[i].ID < excluded[j].ID })
	return eligible, excluded
}
