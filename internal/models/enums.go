// internal/models/enums.go
// Phase and status enumerations shared by the tournament domain models.

package models

// TournamentPhase is the top-level lifecycle state of a Tournament.
// It is monotonic except REGISTER, which may re-enter on a second
// registration opening.
type TournamentPhase string

const (
	TournamentPending  TournamentPhase = "pending"
	TournamentRegister TournamentPhase = "register"
	TournamentAwaiting TournamentPhase = "awaiting"
	TournamentOngoing  TournamentPhase = "ongoing"
	TournamentDone     TournamentPhase = "done"
)

// SubPhase drives the registration and check-in sub-phase machines.
type SubPhase string

const (
	SubPhaseManual  SubPhase = "manual"
	SubPhasePending SubPhase = "pending"
	SubPhaseOngoing SubPhase = "ongoing"
	SubPhaseOnHold  SubPhase = "on_hold"
	SubPhaseDone    SubPhase = "done"
)

// MatchPhase is the lifecycle state of a single Match.
type MatchPhase string

const (
	MatchPending MatchPhase = "pending"
	MatchOnHold  MatchPhase = "on_hold"
	MatchOngoing MatchPhase = "ongoing"
	MatchDone    MatchPhase = "done"
)

// EventName identifies a scheduler-driven transition; used as the key
// for the ignored_events skip set.
type EventName string

const (
	EventRegisterStart       EventName = "register_start"
	EventRegisterSecondStart EventName = "register_second_start"
	EventRegisterStop        EventName = "register_stop"
	EventCheckinStart        EventName = "checkin_start"
	EventCheckinStop         EventName = "checkin_stop"
)

// RemoteMatchState is the vocabulary the bracket provider uses for a
// match's wire state.
type RemoteMatchState string

const (
	RemoteMatchOpen     RemoteMatchState = "open"
	RemoteMatchPending  RemoteMatchState = "pending"
	RemoteMatchComplete RemoteMatchState = "complete"
)

// WarnState is the tagged tri-state of Match.Warned: no warning sent,
// a first warning sent at a recorded instant, or the overtime warning
// already sent (no further timestamp needed).
type WarnState struct {
	Kind WarnKind `json:"kind"`
	At   int64    `json:"at,omitempty"` // epoch seconds, only meaningful when Kind == WarnFirstAt
}

type WarnKind string

const (
	WarnNone     WarnKind = "none"
	WarnFirstAt  WarnKind = "first_at"
	WarnOvertime WarnKind = "overtime"
)
