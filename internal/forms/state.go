// Package forms manages the state of the tutor and parent intake forms: the
// repeatable time-slot and instrument rows and the "Other" free-text field.
package forms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tmc-tutoring/match-api/internal/matching"
)

// ErrIndexOutOfRange is returned when a command addresses a row that does not exist.
var ErrIndexOutOfRange = errors.New("row index out of range")

// State holds the editable rows of one intake form. There is always at least
// one time-slot row and one instrument row.
type State struct {
	TimeSlots   []matching.RawWindow     `json:"time_slots"`
	Instruments []matching.RawInstrument `json:"instruments"`
}

// NewState returns a form with one empty row of each kind.
func NewState() *State {
	return &State{
		TimeSlots:   []matching.RawWindow{{}},
		Instruments: []matching.RawInstrument{{}},
	}
}

// ensureRows restores the one-row minimum on states decoded from clients.
func (s *State) ensureRows() {
	if len(s.TimeSlots) == 0 {
		s.TimeSlots = []matching.RawWindow{{}}
	}
	if len(s.Instruments) == 0 {
		s.Instruments = []matching.RawInstrument{{}}
	}
}

// AddTimeSlot appends an empty time-slot row.
func (s *State) AddTimeSlot() {
	s.ensureRows()
	s.TimeSlots = append(s.TimeSlots, matching.RawWindow{})
}

// RemoveTimeSlot drops the last time-slot row. The final row is never removed.
func (s *State) RemoveTimeSlot() bool {
	s.ensureRows()
	if len(s.TimeSlots) <= 1 {
		return false
	}
	s.TimeSlots = s.TimeSlots[:len(s.TimeSlots)-1]
	return true
}

// CanRemoveTimeSlot reports whether the remove-time control should be shown.
func (s *State) CanRemoveTimeSlot() bool {
	return len(s.TimeSlots) > 1
}

// SetTimeSlot replaces the time-slot row at index.
func (s *State) SetTimeSlot(index int, slot matching.RawWindow) error {
	s.ensureRows()
	if index < 0 || index >= len(s.TimeSlots) {
		return fmt.Errorf("time slot %d: %w", index, ErrIndexOutOfRange)
	}
	s.TimeSlots[index] = slot
	return nil
}

// AddInstrument appends an empty instrument row. A new row never inherits an
// "Other" selection or its free text.
func (s *State) AddInstrument() {
	s.ensureRows()
	s.Instruments = append(s.Instruments, matching.RawInstrument{})
}

// RemoveInstrument drops the last instrument row. The final row is never removed.
func (s *State) RemoveInstrument() bool {
	s.ensureRows()
	if len(s.Instruments) <= 1 {
		return false
	}
	s.Instruments = s.Instruments[:len(s.Instruments)-1]
	return true
}

// CanRemoveInstrument reports whether the remove-instrument control should be shown.
func (s *State) CanRemoveInstrument() bool {
	return len(s.Instruments) > 1
}

// SelectInstrument sets the selector value of the instrument row at index.
// Leaving "Other" clears the free text so it cannot leak into the record.
func (s *State) SelectInstrument(index int, value string) error {
	s.ensureRows()
	if index < 0 || index >= len(s.Instruments) {
		return fmt.Errorf("instrument %d: %w", index, ErrIndexOutOfRange)
	}
	s.Instruments[index].Value = value
	if !isOther(value) {
		s.Instruments[index].Other = ""
	}
	return nil
}

// SetOther sets the free-text field of the instrument row at index.
func (s *State) SetOther(index int, text string) error {
	s.ensureRows()
	if index < 0 || index >= len(s.Instruments) {
		return fmt.Errorf("instrument %d: %w", index, ErrIndexOutOfRange)
	}
	s.Instruments[index].Other = text
	return nil
}

// OtherVisible reports whether the free-text field of row index is shown.
func (s *State) OtherVisible(index int) bool {
	if index < 0 || index >= len(s.Instruments) {
		return false
	}
	return isOther(s.Instruments[index].Value)
}

// Record converts the form into a raw participant for the matching engine.
func (s *State) Record(id string, role matching.Role) matching.RawParticipant {
	s.ensureRows()
	record := matching.RawParticipant{ID: id, Role: role}
	record.Availability = append(record.Availability, s.TimeSlots...)
	for i, entry := range s.Instruments {
		if !s.OtherVisible(i) {
			entry.Other = ""
		}
		record.Instruments = append(record.Instruments, entry)
	}
	return record
}

// View is the rendered state returned to clients.
type View struct {
	State
	CanRemoveTimeSlot   bool   `json:"can_remove_time_slot"`
	CanRemoveInstrument bool   `json:"can_remove_instrument"`
	OtherVisible        []bool `json:"other_visible"`
}

// View renders the state with its derived control flags.
func (s *State) View() View {
	s.ensureRows()
	view := View{
		State:               *s,
		CanRemoveTimeSlot:   s.CanRemoveTimeSlot(),
		CanRemoveInstrument: s.CanRemoveInstrument(),
		OtherVisible:        make([]bool, len(s.Instruments)),
	}
	for i := range s.Instruments {
		view.OtherVisible[i] = s.OtherVisible(i)
	}
	return view
}

func isOther(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), matching.OtherInstrument)
}
