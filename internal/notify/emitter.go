// internal/notify/emitter.go
// Emitter is the narrow interface the engine calls into for everything
// user- or operator-visible (spec.md §6). The engine formats no text
// itself; it names a kind and hands over a payload.

package notify

import (
	"context"

	"tournament-planner/internal/models"
)

// Kind identifies the shape/intent of a notification.
type Kind string

const (
	KindRegistrationOpen    Kind = "registration-open"
	KindRegistrationClosed  Kind = "registration-closed"
	KindCheckinOpen         Kind = "check-in-open"
	KindCheckinReminder     Kind = "check-in-reminder"
	KindTournamentStart     Kind = "tournament-start"
	KindTournamentEnd       Kind = "tournament-end"
	KindBracketChange       Kind = "bracket-change"
	KindParticipantDropped  Kind = "participant-dropped"
	KindMatchLaunched       Kind = "match-launched"
	KindMatchEnded          Kind = "match-ended"
	KindMatchForceEnded     Kind = "match-force-ended"
	KindMatchDisqualified   Kind = "match-disqualified"
	KindMatchWarnFirst      Kind = "match-warn-first"
	KindMatchWarnOvertime   Kind = "match-warn-overtime"
	KindStreamStart         Kind = "stream-start"
	KindTaskErrorBudget     Kind = "task-error-budget-exceeded"
	KindConfigurationError  Kind = "configuration-error"
)

// Emitter is implemented by the presentation-layer collaborator. All
// methods are best-effort from the engine's point of view except the
// channel provisioning calls, whose errors degrade the match into a
// channel-less mode rather than failing the operation.
type Emitter interface {
	NotifyAnnouncement(ctx context.Context, tournamentID string, kind Kind, payload map[string]interface{})
	NotifyTO(ctx context.Context, tournamentID string, kind Kind, payload map[string]interface{})
	NotifyMatch(ctx context.Context, match *models.Match, kind Kind, payload map[string]interface{})
	NotifyUser(ctx context.Context, user models.UserRef, kind Kind, payload map[string]interface{})

	CreateCategory(ctx context.Context, tournamentID, name string) (string, error)
	CreateMatchChannel(ctx context.Context, category string, match *models.Match, allowedUsers []models.UserRef) (models.ChannelHandle, error)
	DeleteChannel(ctx context.Context, handle models.ChannelHandle) error

	ResolveUserByName(ctx context.Context, tournamentID, name string) (*models.UserRef, bool)
}
