package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StateKind identifies what input we are currently waiting for from an actor.
type StateKind string

const (
	// StateNone means the actor is idle; free text is matched against the menu.
	StateNone                        StateKind = "none"
	StateAwaitingName                StateKind = "awaiting_name"
	StateAwaitingPhone               StateKind = "awaiting_phone"
	StateAwaitingWithdrawalAmount    StateKind = "awaiting_withdrawal_amount"
	StateAwaitingRejectionReason     StateKind = "awaiting_rejection_reason"
	StateAwaitingWithdrawalRejection StateKind = "awaiting_withdrawal_rejection"
)

// ConversationState is the persisted "what are we waiting for" marker.
// Ref carries the subject of a parameterized state (the submission or
// withdrawal id for the admin rejection-reason states), zero otherwise.
type ConversationState struct {
	Kind StateKind
	Ref  int64
}

// StateIdle is the zero-value state spelled out.
var StateIdle = ConversationState{Kind: StateNone}

// String encodes the state for storage as "<kind>" or "<kind>:<ref>".
func (s ConversationState) String() string {
	if s.Ref != 0 {
		return fmt.Sprintf("%s:%d", s.Kind, s.Ref)
	}
	return string(s.Kind)
}

// IsIdle reports whether no transient flow is in progress.
func (s ConversationState) IsIdle() bool {
	return s.Kind == StateNone || s.Kind == ""
}

// ParseState decodes a stored state label. Unknown or malformed labels
// decode to idle so a corrupt row can never wedge an actor.
func ParseState(raw string) ConversationState {
	kind, refStr, hasRef := strings.Cut(raw, ":")
	state := ConversationState{Kind: StateKind(kind)}
	switch state.Kind {
	case StateAwaitingName, StateAwaitingPhone, StateAwaitingWithdrawalAmount:
	case StateAwaitingRejectionReason, StateAwaitingWithdrawalRejection:
		if !hasRef {
			return StateIdle
		}
		ref, err := strconv.ParseInt(refStr, 10, 64)
		if err != nil {
			return StateIdle
		}
		state.Ref = ref
	default:
		return StateIdle
	}
	return state
}

// User represents any participant. Admins are users with IsAdmin set;
// users are never deleted, only deactivated.
type User struct {
	ID         uuid.UUID
	TelegramID int64
	Username   *string
	FullName   *string
	Phone      *string // Encrypted at rest
	IsAdmin    bool
	IsActive   bool
	Registered bool
	State      ConversationState
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
