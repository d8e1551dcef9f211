// internal/engine/errors.go
// Engine-level error kinds (spec.md §7). Generalizes the teacher's
// internal/services sentinel-error block (ErrNoVenues, ErrCapacityExceeded,
// ...) to the structured types the tournament state machine needs.

package engine

import (
	"errors"
	"fmt"

	"tournament-planner/internal/models"
)

// Sentinel errors, teacher-style (services/container.go).
var (
	ErrAlreadyRegistered = errors.New("participant already registered")
	ErrNotRegistered     = errors.New("participant not registered")
	ErrLimitReached       = errors.New("participant limit reached")
	ErrAlreadyStarted     = errors.New("tournament already started on the remote bracket")
	ErrMatchNotFound      = errors.New("match not found")
)

// WrongPhaseError reports an operation invoked outside its allowed
// tournament- or sub-phase set.
type WrongPhaseError struct {
	Operation string
	Current   interface{}
	Allowed   []interface{}
}

func (e *WrongPhaseError) Error() string {
	return fmt.Sprintf("%s: not allowed in phase %v (allowed: %v)", e.Operation, e.Current, e.Allowed)
}

// ConflictingDatesError reports a setup-time event-ordering invariant
// violation; Offenders names the events involved in the violation.
type ConflictingDatesError struct {
	Offenders []models.EventName
	Reason    string
}

func (e *ConflictingDatesError) Error() string {
	return fmt.Sprintf("conflicting dates (%s): %v", e.Reason, e.Offenders)
}

// LostParticipantError reports that restored state references a
// participant no longer resolvable in chat.
type LostParticipantError struct {
	ParticipantID string
}

func (e *LostParticipantError) Error() string {
	return fmt.Sprintf("lost participant %s: no matching chat user on restore", e.ParticipantID)
}
