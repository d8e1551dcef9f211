// internal/provider/client.go
// ProviderClient abstracts the remote bracket host (Challonge-shaped).
// Transport, auth, and retries below the single-retry boundary are the
// adapter's responsibility; the engine only ever sees this interface.

package provider

import "context"

// RemoteStatus is the provider's own tournament-level status string,
// passed through to the engine uninterpreted except for the
// "already underway" check in Tournament.Setup.
type RemoteStatus string

const (
	RemoteStatusPending  RemoteStatus = "pending"
	RemoteStatusUnderway RemoteStatus = "underway"
	RemoteStatusComplete RemoteStatus = "complete"
)

// TournamentInfo is the remote tournament metadata returned by ShowTournament.
type TournamentInfo struct {
	ID      string
	Name    string
	Game    string
	URL     string
	Limit   *int
	Status  RemoteStatus
	StartAt int64 // epoch seconds
}

// RemoteParticipant is one entry from ListParticipants.
type RemoteParticipant struct {
	ID     string
	Name   string
	Active bool
}

// MatchState is the provider's wire vocabulary for a match.
type MatchState string

const (
	MatchStateOpen     MatchState = "open"
	MatchStatePending   MatchState = "pending"
	MatchStateComplete MatchState = "complete"
)

// RemoteMatch is one entry from ListMatches.
type RemoteMatch struct {
	ID          string
	Round       int
	Set         int
	State       MatchState
	Player1ID   *string
	Player2ID   *string
	UnderwayAt  *int64
	ScoresCSV   string // "winner-score-first" convention, e.g. "2-1"
	WinnerID    *string
}

// Client is the interface the engine consumes to talk to the remote
// bracket provider. Implementations are expected to apply the
// retry-once-on-5xx policy described in spec.md §7 themselves (see
// HTTPClient for the reference implementation).
type Client interface {
	ShowTournament(ctx context.Context, ref string) (*TournamentInfo, error)
	StartTournament(ctx context.Context) error
	FinalizeTournament(ctx context.Context) error
	ResetTournament(ctx context.Context) error

	ListParticipants(ctx context.Context) ([]RemoteParticipant, error)
	CreateParticipant(ctx context.Context, name string, seed int) (string, error)
	DestroyParticipant(ctx context.Context, id string) error

	ListMatches(ctx context.Context) ([]RemoteMatch, error)
	UpdateMatch(ctx context.Context, id string, scoresCSV string, winnerID string) error
	MarkMatchUnderway(ctx context.Context, id string) error
	UnmarkMatchUnderway(ctx context.Context, id string) error
}
