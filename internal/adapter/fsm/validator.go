package fsm

import (
	"context"
	"errors"
	"slices"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/roomlist/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// Validator implements domain.TransitionValidator using looplab/fsm.
// A short-lived machine is created per call, seeded with the room's stored
// status, because looplab/fsm keeps its current state internally.
type Validator struct {
	events []loopfsm.EventDesc
	order  []domain.Event
}

// New creates a validator for domain.Transitions.
func New() *Validator {
	return NewFromTable(domain.Transitions)
}

// NewFromTable creates a validator for an explicit transition table.
func NewFromTable(table []domain.Transition) *Validator {
	events, order := buildEvents(table)
	return &Validator{events: events, order: order}
}

// buildEvents groups rows sharing an event and destination into one EventDesc
// with several sources (reject is legal from every moderated state).
func buildEvents(table []domain.Transition) ([]loopfsm.EventDesc, []domain.Event) {
	type key struct {
		event domain.Event
		dst   domain.Status
	}
	grouped := make(map[key][]string)
	keys := make([]key, 0)
	var order []domain.Event

	for _, t := range table {
		k := key{event: t.Event, dst: t.Dst}
		if _, exists := grouped[k]; !exists {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], string(t.Src))
		if !slices.Contains(order, t.Event) {
			order = append(order, t.Event)
		}
	}

	out := make([]loopfsm.EventDesc, 0, len(keys))
	for _, k := range keys {
		out = append(out, loopfsm.EventDesc{
			Name: string(k.event),
			Src:  grouped[k],
			Dst:  string(k.dst),
		})
	}
	return out, order
}

// Apply checks if the given event is valid from the current status and
// returns the destination status, which equals current for self-loops. Returns a domain.TransitionError if
// the transition is not allowed.
func (v *Validator) Apply(ctx context.Context, current domain.Status, event domain.Event) (domain.Status, error) {
	machine := loopfsm.NewFSM(string(current), v.events, nil)

	if err := machine.Event(ctx, string(event)); err != nil {
		// looplab/fsm reports a legal self-loop (available -> available) as
		// NoTransitionError; the room stays where it is.
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &noTransition) && noTransition.Err == nil {
			return current, nil
		}
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) {
			return "", &domain.TransitionError{
				Event:   event,
				Current: current,
			}
		}
		return "", err
	}

	return domain.Status(machine.Current()), nil
}

// Available lists the events legal from current.
func (v *Validator) Available(current domain.Status) []domain.Event {
	machine := loopfsm.NewFSM(string(current), v.events, nil)

	var out []domain.Event
	for _, ev := range v.order {
		if machine.Can(string(ev)) {
			out = append(out, ev)
		}
	}
	return out
}
