// internal/models/tournament.go
// Tournament aggregate shape and its configuration surface

package models

// TopEightBounds are the derived round boundaries computed once the
// set of remote bracket rounds is known (spec.md 4.2 "top_8 derivation").
type TopEightBounds struct {
	WinnerTop8 int `json:"winner_top8"`
	WinnerBo5  int `json:"winner_bo5"`
	LoserTop8  int `json:"loser_top8"`
	LoserBo5   int `json:"loser_bo5"`
}

// WarnThresholds is the (first, second) pair of durations, in seconds,
// driving the overtime pass for one match format. Zero disables that
// half of the warn.
type WarnThresholds struct {
	FirstSeconds  int64 `json:"first_seconds"`
	SecondSeconds int64 `json:"second_seconds"`
}

// EngineConfig is the per-tournament configuration surface (spec.md §6).
type EngineConfig struct {
	RegistrationOpeningSeconds       int64 `json:"registration_opening_seconds"`
	RegistrationSecondOpeningSeconds int64 `json:"registration_second_opening_seconds"`
	RegistrationClosingSeconds       int64 `json:"registration_closing_seconds"`

	CheckinOpeningSeconds int64 `json:"checkin_opening_seconds"`
	CheckinClosingSeconds int64 `json:"checkin_closing_seconds"`

	AutostopRegister bool  `json:"autostop_register"`
	StartBo5         int   `json:"start_bo5"`
	DelaySeconds      int64 `json:"delay_seconds"` // AFK threshold, 0 disables auto-DQ

	TimeUntilWarnBo3 WarnThresholds `json:"time_until_warn_bo3"`
	TimeUntilWarnBo5 WarnThresholds `json:"time_until_warn_bo5"`

	RankingLeagueName string `json:"ranking_league_name,omitempty"`
	RankingLeagueID   string `json:"ranking_league_id,omitempty"`

	BanInfo      string `json:"baninfo,omitempty"`
	Stages       string `json:"stages,omitempty"`
	Counterpicks string `json:"counterpicks,omitempty"`

	ParticipantLimit *int `json:"participant_limit,omitempty"`
}

// EventTimings are the derived absolute instants (epoch seconds, plus
// the original UTC offset the wall clock was computed in) for the
// registration/check-in windows.
type EventTimings struct {
	TournamentStart     int64 `json:"tournament_start"`
	TournamentStartTZOff int   `json:"tournament_start_tz_offset"`

	RegisterStart       int64 `json:"register_start"`
	RegisterSecondStart int64 `json:"register_second_start"`
	RegisterStop        int64 `json:"register_stop"`

	CheckinStart int64 `json:"checkin_start"`
	CheckinStop  int64 `json:"checkin_stop"`
}

// CheckinReminder is a scheduled reminder relative to checkin.stop:
// MinutesBefore minutes before close, optionally with a DM follow-up.
type CheckinReminder struct {
	MinutesBefore int  `json:"minutes_before"`
	WithDM        bool `json:"with_dm"`
	Sent          bool `json:"sent"`
}

// Tournament is the serializable shape of the aggregate root. Behavior
// lives in internal/engine.Tournament, which wraps this struct.
type Tournament struct {
	ID     string  `json:"id" db:"remote_id"`
	Name   string  `json:"name" db:"name"`
	Game   string  `json:"game" db:"game"`
	URL    string  `json:"url" db:"url"`
	Limit  *int    `json:"limit,omitempty" db:"participant_limit"`

	Phase         TournamentPhase `json:"phase" db:"phase"`
	RegisterPhase SubPhase        `json:"register_phase" db:"register_phase"`
	CheckinPhase  SubPhase        `json:"checkin_phase" db:"checkin_phase"`

	IgnoredEvents map[EventName]bool `json:"ignored_events"`

	Timings EventTimings `json:"timings"`
	Config  EngineConfig `json:"config"`

	TopEight TopEightBounds `json:"top_8"`

	Participants []Participant `json:"participants"`
	Matches      []Match       `json:"matches"`
	Streamers    []Streamer    `json:"streamers"`

	WinnerCategories []string `json:"winner_categories"`
	LoserCategories  []string `json:"loser_categories"`

	CheckinReminders []CheckinReminder `json:"checkin_reminders"`

	RegisterMessageID *string `json:"register_message_id,omitempty"`

	TaskErrors int `json:"-"`
}
