package forms

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tmc-tutoring/match-api/internal/matching"
)

// ErrUnknownCommand is returned by Dispatch when no binding matches.
var ErrUnknownCommand = errors.New("unknown form command")

// Control targets of the intake forms.
const (
	TargetAddTime            = "add_time"
	TargetRemoveTime         = "rem_time"
	TargetTimeSlot           = "time-holder"
	TargetAddInstrument      = "add_instr"
	TargetRemoveInstrument   = "rem_instr"
	TargetInstrumentSelector = "instrument-selector"
	TargetInstrumentOther    = "instr-other"
)

// Control events.
const (
	EventClick  = "click"
	EventChange = "change"
	EventInput  = "input"
)

// Command is one user interaction with a form control.
type Command struct {
	Target string              `json:"target"`
	Event  string              `json:"event"`
	Index  int                 `json:"index"`
	Value  string              `json:"value,omitempty"`
	Slot   *matching.RawWindow `json:"slot,omitempty"`
}

// Binding attaches a handler to a (target, event) pair. Tab is the form tab
// the control lives on.
type Binding struct {
	Tab    int
	Target string
	Event  string
	Apply  func(*State, Command) error
}

func (b Binding) key() string {
	return b.Target + "/" + b.Event
}

// Registry resolves commands to bindings. It is immutable once built.
type Registry struct {
	bindings map[string]Binding
}

// NewRegistry builds a registry, rejecting duplicate (target, event) bindings.
func NewRegistry(bindings ...Binding) (*Registry, error) {
	registry := &Registry{bindings: make(map[string]Binding, len(bindings))}
	for _, binding := range bindings {
		if binding.Apply == nil {
			return nil, fmt.Errorf("binding %s has no handler", binding.key())
		}
		if _, exists := registry.bindings[binding.key()]; exists {
			return nil, fmt.Errorf("duplicate binding %s", binding.key())
		}
		registry.bindings[binding.key()] = binding
	}
	return registry, nil
}

var defaultRegistry = func() *Registry {
	registry, err := NewRegistry(DefaultBindings()...)
	if err != nil {
		panic(err)
	}
	return registry
}()

// DefaultRegistry returns the registry of the standard intake form controls.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// DefaultBindings lists the standard intake form controls.
func DefaultBindings() []Binding {
	return []Binding{
		{Tab: 0, Target: TargetAddTime, Event: EventClick, Apply: func(s *State, _ Command) error {
			s.AddTimeSlot()
			return nil
		}},
		{Tab: 0, Target: TargetRemoveTime, Event: EventClick, Apply: func(s *State, _ Command) error {
			s.RemoveTimeSlot()
			return nil
		}},
		{Tab: 0, Target: TargetTimeSlot, Event: EventChange, Apply: func(s *State, cmd Command) error {
			if cmd.Slot == nil {
				return fmt.Errorf("time slot %d: missing slot", cmd.Index)
			}
			return s.SetTimeSlot(cmd.Index, *cmd.Slot)
		}},
		{Tab: 1, Target: TargetAddInstrument, Event: EventClick, Apply: func(s *State, _ Command) error {
			s.AddInstrument()
			return nil
		}},
		{Tab: 1, Target: TargetRemoveInstrument, Event: EventClick, Apply: func(s *State, _ Command) error {
			s.RemoveInstrument()
			return nil
		}},
		{Tab: 1, Target: TargetInstrumentSelector, Event: EventChange, Apply: func(s *State, cmd Command) error {
			return s.SelectInstrument(cmd.Index, cmd.Value)
		}},
		{Tab: 1, Target: TargetInstrumentOther, Event: EventInput, Apply: func(s *State, cmd Command) error {
			return s.SetOther(cmd.Index, cmd.Value)
		}},
	}
}

// Dispatch applies cmd to state through its binding.
func (r *Registry) Dispatch(state *State, cmd Command) error {
	binding, ok := r.bindings[Binding{Target: cmd.Target, Event: cmd.Event}.key()]
	if !ok {
		return fmt.Errorf("%s/%s: %w", cmd.Target, cmd.Event, ErrUnknownCommand)
	}
	state.ensureRows()
	return binding.Apply(state, cmd)
}

// Bindings returns the registered bindings ordered by tab and target.
func (r *Registry) Bindings() []Binding {
	list := make([]Binding, 0, len(r.bindings))
	for _, binding := range r.bindings {
		list = append(list, binding)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Tab != list[j].Tab {
			return list[i].Tab < list[j].Tab
		}
		return list[i].key() < list[j].key()
	})
	return list
}
