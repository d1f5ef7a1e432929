package domain

import (
	"strings"
	"time"
)

// Event represents an action that triggers a state transition.
type Event string

const (
	EventSubmit         Event = "submit"
	EventApprove        Event = "approve"
	EventReject         Event = "reject"
	EventRequestChanges Event = "request_changes"
	EventMarkAvailable  Event = "mark_available"
	EventMarkRented     Event = "mark_rented"
	EventRevise         Event = "revise"
)

// Transition defines a valid state change: an event moves a room from Src to Dst
// when triggered by an actor holding Role.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
	Role  Role
}

// moderated are the states an admin can reject or send back for changes.
var moderated = []Status{StatusPending, StatusApproved, StatusAvailable, StatusRented, StatusReserved}

// live are the published states an owner can toggle between available and rented.
var live = []Status{StatusApproved, StatusAvailable, StatusRented, StatusReserved}

// Transitions defines all valid state changes in the room lifecycle.
// This is domain knowledge consumed by the FSM adapter; creation has no
// source state and always yields StatusDraft.
var Transitions = buildTransitions()

func buildTransitions() []Transition {
	out := []Transition{
		{Event: EventSubmit, Src: StatusDraft, Dst: StatusPending, Role: RoleOwner},
		{Event: EventApprove, Src: StatusPending, Dst: StatusApproved, Role: RoleAdmin},
		{Event: EventRevise, Src: StatusRejected, Dst: StatusDraft, Role: RoleOwner},
		{Event: EventRevise, Src: StatusNeedsChanges, Dst: StatusDraft, Role: RoleOwner},
	}
	for _, src := range moderated {
		out = append(out,
			Transition{Event: EventReject, Src: src, Dst: StatusRejected, Role: RoleAdmin},
			Transition{Event: EventRequestChanges, Src: src, Dst: StatusNeedsChanges, Role: RoleAdmin},
		)
	}
	for _, src := range live {
		out = append(out,
			Transition{Event: EventMarkAvailable, Src: src, Dst: StatusAvailable, Role: RoleOwner},
			Transition{Event: EventMarkRented, Src: src, Dst: StatusRented, Role: RoleOwner},
		)
	}
	return out
}

// EventRole returns the role allowed to trigger event.
func EventRole(event Event) (Role, bool) {
	for _, t := range Transitions {
		if t.Event == event {
			return t.Role, true
		}
	}
	return "", false
}

// Authorize checks that actor may trigger event on room.
// Owner events require ownership; admin events require the admin role.
func Authorize(actor Actor, event Event, room Room) error {
	role, ok := EventRole(event)
	if !ok {
		return &AuthorizationError{ActorID: actor.ID, Action: string(event)}
	}
	switch role {
	case RoleAdmin:
		if !actor.IsAdmin() {
			return &AuthorizationError{ActorID: actor.ID, Action: string(event)}
		}
	case RoleOwner:
		if !actor.Owns(room) {
			return &AuthorizationError{ActorID: actor.ID, Action: string(event)}
		}
	}
	return nil
}

// OwnerStatusEvent maps a status an owner asks for to its event.
// Only available and rented are owner-settable.
func OwnerStatusEvent(s Status) (Event, error) {
	switch s {
	case StatusAvailable:
		return EventMarkAvailable, nil
	case StatusRented:
		return EventMarkRented, nil
	default:
		return "", invalid("status", "owners may only set status to %q or %q", StatusAvailable, StatusRented)
	}
}

// ModerationRequest is an admin decision on a listing.
type ModerationRequest struct {
	Status Status
	Note   string
}

// Event maps the requested status to its moderation event and checks the note rule.
func (m ModerationRequest) Event() (Event, error) {
	note := strings.TrimSpace(m.Note)
	switch m.Status {
	case StatusApproved:
		return EventApprove, nil
	case StatusRejected:
		if note == "" {
			return "", invalid("note", "a rejection reason is required")
		}
		return EventReject, nil
	case StatusNeedsChanges:
		if note == "" {
			return "", invalid("note", "a note describing the requested changes is required")
		}
		return EventRequestChanges, nil
	default:
		return "", invalid("status", "unsupported moderation status %q", m.Status)
	}
}

// ApplyModeration stamps the audit fields that accompany a moderation event.
// dst must already be the validated destination status.
func (r *Room) ApplyModeration(event Event, dst Status, actor Actor, note string, now time.Time) {
	now = now.UTC()
	r.Status = dst
	switch event {
	case EventApprove:
		r.ApprovedAt = &now
		r.ApprovedBy = actor.ID
		r.AdminNote = ""
	case EventReject:
		r.RejectedAt = &now
		r.RejectedBy = actor.ID
		r.AdminNote = strings.TrimSpace(note)
	case EventRequestChanges:
		r.AdminNote = strings.TrimSpace(note)
		r.ApprovedAt = nil
		r.ApprovedBy = ""
		r.RejectedAt = nil
		r.RejectedBy = ""
	}
}

// NotifiesOwner reports whether entering s must inform the owner.
func (s Status) NotifiesOwner() bool {
	return s == StatusRejected || s == StatusNeedsChanges
}

// ApplyContent replaces the editable fields. Callers must have checked Editable.
func (r *Room) ApplyContent(c Content) {
	r.apply(c)
}
