// internal/engine/participant.go
// Participant registration, check-in, and removal (spec.md §4.2,
// registerParticipant / unregisterParticipant / endCheckin).

package engine

import (
	"context"

	"tournament-planner/internal/models"
	"tournament-planner/internal/notify"
)

// RegisterParticipant appends a new participant bound to user. Takes
// the tournament lock.
func (t *Tournament) RegisterParticipant(ctx context.Context, user models.UserRef, sendNotify bool) (*models.Participant, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Limit != nil && len(t.state.Participants) >= *t.state.Limit {
		return nil, ErrLimitReached
	}
	if _, ok := t.participantIndexByUserID(user.ID); ok {
		return nil, ErrAlreadyRegistered
	}

	p := models.Participant{
		ID:   newEntityID(),
		User: user,
	}
	switch t.state.CheckinPhase {
	case models.SubPhaseOngoing, models.SubPhaseOnHold, models.SubPhaseDone:
		p.CheckedIn = true
	}

	incrementalUpload := len(t.state.Participants) > 0 &&
		t.state.Participants[len(t.state.Participants)-1].Uploaded()

	t.state.Participants = append(t.state.Participants, p)
	added := &t.state.Participants[len(t.state.Participants)-1]

	if incrementalUpload {
		seed := len(t.state.Participants)
		playerID, err := t.provider.CreateParticipant(ctx, user.DisplayName, seed)
		if err != nil {
			t.logger.Printf("registerParticipant: incremental upload failed for %s: %v", user.ID, err)
		} else {
			added.PlayerID = &playerID
		}
	}

	if sendNotify {
		t.emitter.NotifyUser(ctx, user, notify.KindRegistrationOpen, map[string]interface{}{"registered": true})
	}

	if t.state.Config.AutostopRegister &&
		t.state.RegisterPhase == models.SubPhaseOngoing &&
		t.state.Limit != nil && len(t.state.Participants) == *t.state.Limit {
		if err := t.EndRegistration(ctx); err != nil {
			t.logger.Printf("registerParticipant: autostop endRegistration failed: %v", err)
		}
	}

	result := *added
	return &result, nil
}

// UnregisterParticipant removes a participant, destroying their remote
// presence and force-ending any in-flight match via disqualification.
func (t *Tournament) UnregisterParticipant(ctx context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.participantIndexByUserID(userID)
	if !ok {
		return ErrNotRegistered
	}
	return t.removeParticipantAt(ctx, idx)
}

// removeParticipantAt implements the unregister/endCheckin/reconciler
// shared teardown path. Caller holds the lock.
func (t *Tournament) removeParticipantAt(ctx context.Context, idx int) error {
	p := t.state.Participants[idx]

	if p.MatchID != nil && p.PlayerID != nil {
		if mi, ok := t.matchIndex(*p.MatchID); ok {
			if err := t.disqualifyParticipant(ctx, mi, *p.PlayerID); err != nil {
				t.logger.Printf("removeParticipant: disqualify failed for %s: %v", p.ID, err)
			}
		}
	}

	if p.PlayerID != nil {
		if err := t.provider.DestroyParticipant(ctx, *p.PlayerID); err != nil {
			t.logger.Printf("removeParticipant: destroyParticipant failed for %s: %v", *p.PlayerID, err)
		}
	}

	t.state.Participants = append(t.state.Participants[:idx], t.state.Participants[idx+1:]...)
	return nil
}

// CheckInParticipant marks a participant present during the check-in
// window. Idempotent.
func (t *Tournament) CheckInParticipant(ctx context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.participantIndexByUserID(userID)
	if !ok {
		return ErrNotRegistered
	}
	t.state.Participants[idx].CheckedIn = true
	return nil
}

// uncheckedParticipants lists participants who have not checked in,
// for the callCheckin reminder.
func (t *Tournament) uncheckedParticipants() []models.Participant {
	var out []models.Participant
	for _, p := range t.state.Participants {
		if !p.CheckedIn {
			out = append(out, p)
		}
	}
	return out
}
