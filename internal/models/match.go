// internal/models/match.go
// Match (two-player engagement) related models

package models

// ChannelHandle is an opaque reference to a per-match communication
// space provisioned by the notify.Emitter collaborator.
type ChannelHandle string

// Match represents a single two-player engagement within a bracket.
type Match struct {
	ID     string `json:"id" db:"id"`
	Round  int    `json:"round" db:"round"` // signed: positive = winners side, negative = losers side
	Set    int    `json:"set" db:"set_number"`
	Phase  MatchPhase `json:"phase" db:"phase"`
	Player1ID *string `json:"player1_id,omitempty" db:"player1_id"`
	Player2ID *string `json:"player2_id,omitempty" db:"player2_id"`

	Underway bool           `json:"underway" db:"underway"`
	Channel  *ChannelHandle `json:"channel,omitempty" db:"channel"`

	StartTime *int64 `json:"start_time,omitempty" db:"start_time"` // epoch seconds
	EndTime   *int64 `json:"end_time,omitempty" db:"end_time"`

	Warned WarnState `json:"warned" db:"warned"`

	StreamerID *string `json:"streamer_id,omitempty" db:"streamer_id"`

	// Derived, recomputed whenever top_8 bounds or round changes.
	IsTop8    bool   `json:"is_top8" db:"-"`
	IsBo5     bool   `json:"is_bo5" db:"-"`
	RoundName string `json:"round_name" db:"-"`
	CheckedDQ bool   `json:"checked_dq" db:"checked_dq"`

	Score1   *int    `json:"score1,omitempty" db:"score1"`
	Score2   *int    `json:"score2,omitempty" db:"score2"`
	WinnerID *string `json:"winner_id,omitempty" db:"winner_id"`
}

// Bracket reports which side of the bracket this match belongs to.
func (m *Match) Bracket() string {
	if m.Round > 0 {
		return "winner"
	}
	return "loser"
}

// Duration returns the number of seconds the match has been running,
// given the current time. Zero if it has not started.
func (m *Match) Duration(nowEpoch int64) int64 {
	if m.StartTime == nil {
		return 0
	}
	return nowEpoch - *m.StartTime
}
