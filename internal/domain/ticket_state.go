package domain

import (
	"time"

	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

// Transition names a lifecycle operation.
type Transition string

const (
	TransitionClaim     Transition = "claim"
	TransitionUnclaim   Transition = "unclaim"
	TransitionClose     Transition = "close"
	TransitionResolve   Transition = "resolve"
	TransitionReopen    Transition = "reopen"
	TransitionArchive   Transition = "archive"
	TransitionUnarchive Transition = "unarchive"
	TransitionDelete    Transition = "delete"
)

// Mark records who performed a one-shot action and when.
type Mark struct {
	By string
	At time.Time
}

// TicketState is the closed set of lifecycle states. Only the types in this
// file implement it, so invalid flag combinations cannot be built.
type TicketState interface {
	Label() string
	isTicketState()
}

// OpenState is an unclaimed, active ticket.
type OpenState struct{}

// ClaimedState is an active ticket owned by a moderator.
type ClaimedState struct {
	Claim Mark
}

// ClosedState is a ticket closed as CLOSED or RESOLVED. Claim keeps the
// moderator that owned it at close time, if any.
type ClosedState struct {
	Status TicketStatus
	Close  Mark
	Reason *string
	Claim  *Mark
}

// ArchivedState is a closed ticket whose channel was moved out of view.
type ArchivedState struct {
	From    ClosedState
	Archive Mark
}

// DeletedState is a soft-deleted ticket. From is the state it was deleted in.
type DeletedState struct {
	From     TicketState
	Deletion Mark
}

func (OpenState) isTicketState()     {}
func (ClaimedState) isTicketState()  {}
func (ClosedState) isTicketState()   {}
func (ArchivedState) isTicketState() {}
func (DeletedState) isTicketState()  {}

func (OpenState) Label() string    { return "open" }
func (ClaimedState) Label() string { return "claimed" }
func (s ClosedState) Label() string {
	if s.Status == TicketStatusResolved {
		return "resolved"
	}
	return "closed"
}
func (ArchivedState) Label() string { return "archived" }
func (DeletedState) Label() string  { return "deleted" }

func refuse(s TicketState, t Transition) error {
	return apperrors.NewInvalidTransition(s.Label(), string(t))
}

// Claim moves an open ticket to claimed.
func Claim(s TicketState, by string, at time.Time) (TicketState, error) {
	if _, ok := s.(OpenState); !ok {
		return nil, refuse(s, TransitionClaim)
	}
	return ClaimedState{Claim: Mark{By: by, At: at}}, nil
}

// Unclaim releases a claimed ticket back to open.
func Unclaim(s TicketState) (TicketState, error) {
	if _, ok := s.(ClaimedState); !ok {
		return nil, refuse(s, TransitionUnclaim)
	}
	return OpenState{}, nil
}

// Close ends an open or claimed ticket. status selects CLOSED or RESOLVED.
func Close(s TicketState, status TicketStatus, by string, at time.Time, reason *string) (TicketState, error) {
	requested := TransitionClose
	if status == TicketStatusResolved {
		requested = TransitionResolve
	}
	if !status.IsTerminal() {
		return nil, refuse(s, requested)
	}
	closed := ClosedState{Status: status, Close: Mark{By: by, At: at}, Reason: reason}
	switch current := s.(type) {
	case OpenState:
		return closed, nil
	case ClaimedState:
		claim := current.Claim
		closed.Claim = &claim
		return closed, nil
	default:
		return nil, refuse(s, requested)
	}
}

// Reopen returns a closed ticket to open. The previous claim is dropped.
func Reopen(s TicketState) (TicketState, error) {
	if _, ok := s.(ClosedState); !ok {
		return nil, refuse(s, TransitionReopen)
	}
	return OpenState{}, nil
}

// Archive hides a closed ticket.
func Archive(s TicketState, by string, at time.Time) (TicketState, error) {
	closed, ok := s.(ClosedState)
	if !ok {
		return nil, refuse(s, TransitionArchive)
	}
	return ArchivedState{From: closed, Archive: Mark{By: by, At: at}}, nil
}

// Unarchive restores the closed state an archived ticket came from.
func Unarchive(s TicketState) (TicketState, error) {
	archived, ok := s.(ArchivedState)
	if !ok {
		return nil, refuse(s, TransitionUnarchive)
	}
	return archived.From, nil
}

// SoftDelete marks any non-deleted ticket as deleted. It is one-way.
func SoftDelete(s TicketState, by string, at time.Time) (TicketState, error) {
	if _, ok := s.(DeletedState); ok {
		return nil, refuse(s, TransitionDelete)
	}
	return DeletedState{From: s, Deletion: Mark{By: by, At: at}}, nil
}

// State projects the stored columns of t into the lifecycle sum type.
func (t *Ticket) State() TicketState {
	var state TicketState
	switch t.Status {
	case TicketStatusClaimed:
		state = ClaimedState{Claim: markOf(t.ClaimedByID, t.ClaimedAt)}
	case TicketStatusClosed, TicketStatusResolved:
		closed := ClosedState{
			Status: t.Status,
			Close:  markOf(t.ClosedByID, t.ClosedAt),
			Reason: t.CloseReason,
		}
		if t.ClaimedByID != nil {
			claim := markOf(t.ClaimedByID, t.ClaimedAt)
			closed.Claim = &claim
		}
		state = closed
		if t.Archived {
			state = ArchivedState{From: closed, Archive: markOf(t.ArchivedByID, t.ArchivedAt)}
		}
	default:
		state = OpenState{}
	}
	if t.DeletedAt != nil {
		state = DeletedState{From: state, Deletion: markOf(t.DeletedByID, t.DeletedAt)}
	}
	return state
}

// ApplyState writes s back onto the stored columns of t, keeping every
// by/at pair set or cleared together.
func (t *Ticket) ApplyState(s TicketState) {
	if deleted, ok := s.(DeletedState); ok {
		t.ApplyState(deleted.From)
		t.DeletedByID, t.DeletedAt = markFields(&deleted.Deletion)
		return
	}
	t.DeletedByID, t.DeletedAt = nil, nil
	t.Archived = false
	t.ArchivedByID, t.ArchivedAt = nil, nil

	switch state := s.(type) {
	case OpenState:
		t.Status = TicketStatusOpen
		t.ClaimedByID, t.ClaimedAt = nil, nil
		t.ClosedByID, t.ClosedAt = nil, nil
		t.CloseReason = nil
	case ClaimedState:
		t.Status = TicketStatusClaimed
		t.ClaimedByID, t.ClaimedAt = markFields(&state.Claim)
		t.ClosedByID, t.ClosedAt = nil, nil
		t.CloseReason = nil
	case ClosedState:
		t.applyClosed(state)
	case ArchivedState:
		t.applyClosed(state.From)
		t.Archived = true
		t.ArchivedByID, t.ArchivedAt = markFields(&state.Archive)
	}
}

func (t *Ticket) applyClosed(state ClosedState) {
	t.Status = state.Status
	t.ClosedByID, t.ClosedAt = markFields(&state.Close)
	t.CloseReason = state.Reason
	t.ClaimedByID, t.ClaimedAt = markFields(state.Claim)
}

func markOf(by *string, at *time.Time) Mark {
	m := Mark{}
	if by != nil {
		m.By = *by
	}
	if at != nil {
		m.At = *at
	}
	return m
}

func markFields(m *Mark) (*string, *time.Time) {
	if m == nil {
		return nil, nil
	}
	by := m.By
	at := m.At
	return &by, &at
}
