// internal/engine/reconcile.go
// Reconciliation pass: diff local state against the remote bracket
// (spec.md §4.2 updateParticipants / updateMatches), plus the
// timeout and overtime passes.

package engine

import (
	"context"

	"tournament-planner/internal/models"
	"tournament-planner/internal/notify"
	"tournament-planner/internal/provider"
)

// updateParticipants diffs the remote roster against local state: a
// remote entry gone inactive drops its local participant; a new
// active entry is matched by name to a chat user, or destroyed if
// unresolvable.
func (t *Tournament) updateParticipants(ctx context.Context) error {
	remote, err := t.provider.ListParticipants(ctx)
	if err != nil {
		return err
	}

	remoteByID := make(map[string]provider.RemoteParticipant, len(remote))
	for _, rp := range remote {
		remoteByID[rp.ID] = rp
	}

	for i := len(t.state.Participants) - 1; i >= 0; i-- {
		p := t.state.Participants[i]
		if p.PlayerID == nil {
			continue
		}
		rp, ok := remoteByID[*p.PlayerID]
		if ok && !rp.Active {
			if err := t.removeParticipantAt(ctx, i); err != nil {
				t.logger.Printf("updateParticipants: drop inactive %s failed: %v", *p.PlayerID, err)
			}
		}
	}

	for _, rp := range remote {
		if !rp.Active {
			continue
		}
		if _, ok := t.participantIndexByPlayerID(rp.ID); ok {
			continue
		}

		user, matched := t.emitter.ResolveUserByName(ctx, t.state.ID, rp.Name)
		if !matched {
			if err := t.provider.DestroyParticipant(ctx, rp.ID); err != nil {
				t.logger.Printf("updateParticipants: destroy unmatched %s failed: %v", rp.ID, err)
			}
			t.emitter.NotifyTO(ctx, t.state.ID, notify.KindParticipantDropped, map[string]interface{}{
				"remote_name": rp.Name,
			})
			continue
		}

		playerID := rp.ID
		t.state.Participants = append(t.state.Participants, models.Participant{
			ID:        newEntityID(),
			User:      *user,
			PlayerID:  &playerID,
			CheckedIn: true,
		})
	}
	return nil
}

// updateMatches diffs the remote bracket's matches against local
// state in both directions, emitting one aggregate notification
// naming every affected set.
func (t *Tournament) updateMatches(ctx context.Context) error {
	remote, err := t.provider.ListMatches(ctx)
	if err != nil {
		return err
	}

	var affectedSets []int

	remoteByID := make(map[string]provider.RemoteMatch, len(remote))
	for _, rm := range remote {
		remoteByID[rm.ID] = rm
	}

	for _, rm := range remote {
		if rm.State != provider.MatchStateOpen {
			continue
		}
		if _, ok := t.matchIndex(rm.ID); ok {
			continue
		}
		if t.createMatchFromRemote(ctx, rm) {
			affectedSets = append(affectedSets, rm.Set)
		}
	}

	for i := 0; i < len(t.state.Matches); i++ {
		m := &t.state.Matches[i]
		rm, ok := remoteByID[m.ID]
		if !ok {
			continue
		}

		switch {
		case m.Phase == models.MatchOngoing && rm.State == provider.MatchStateComplete:
			player1Won := rm.WinnerID != nil && m.Player1ID != nil && *rm.WinnerID == *m.Player1ID
			s1, s2, perr := parseScoresCSV(rm.ScoresCSV, player1Won)
			if perr != nil {
				t.logger.Printf("updateMatches: parse scores for set %d: %v", m.Set, perr)
				continue
			}
			if err := t.endMatch(ctx, i, s1, s2, false); err != nil {
				t.logger.Printf("updateMatches: end set %d: %v", m.Set, err)
				continue
			}
			affectedSets = append(affectedSets, m.Set)

		case m.Phase == models.MatchOngoing && rm.State == provider.MatchStatePending:
			if err := t.forceEndMatch(ctx, i); err != nil {
				t.logger.Printf("updateMatches: forceEnd set %d: %v", m.Set, err)
				continue
			}
			affectedSets = append(affectedSets, m.Set)

		case m.Phase == models.MatchDone && rm.State == provider.MatchStateOpen:
			if err := t.relaunchMatch(ctx, i); err != nil {
				t.logger.Printf("updateMatches: relaunch set %d: %v", m.Set, err)
				continue
			}
			affectedSets = append(affectedSets, m.Set)

			// MatchDone + pending is left for time-based cleanup.
		}
	}

	if len(affectedSets) > 0 {
		t.emitter.NotifyAnnouncement(ctx, t.state.ID, notify.KindBracketChange, map[string]interface{}{
			"sets": affectedSets,
		})
	}
	return nil
}

// createMatchFromRemote builds a local Match from a remote open match.
// If one side cannot be resolved locally, it force-scores the remote
// match in the resolvable side's favour instead of creating a local
// match. Returns true if the event is notify-worthy.
func (t *Tournament) createMatchFromRemote(ctx context.Context, rm provider.RemoteMatch) bool {
	p1Idx, p1Ok := -1, false
	p2Idx, p2Ok := -1, false
	if rm.Player1ID != nil {
		p1Idx, p1Ok = t.participantIndexByPlayerID(*rm.Player1ID)
	}
	if rm.Player2ID != nil {
		p2Idx, p2Ok = t.participantIndexByPlayerID(*rm.Player2ID)
	}

	if rm.Player1ID != nil && rm.Player2ID != nil && !p1Ok != !p2Ok {
		var winnerID string
		var scoresCSV string
		if p1Ok {
			winnerID = *rm.Player1ID
			scoresCSV = "0--1"
		} else {
			winnerID = *rm.Player2ID
			scoresCSV = formatScoresCSV(-1, 0)
		}
		if err := t.provider.UpdateMatch(ctx, rm.ID, scoresCSV, winnerID); err != nil {
			t.logger.Printf("createMatchFromRemote: force-score set %d failed: %v", rm.Set, err)
		}
		t.emitter.NotifyTO(ctx, t.state.ID, notify.KindParticipantDropped, map[string]interface{}{
			"set": rm.Set,
		})
		return true
	}

	m := models.Match{
		ID:        rm.ID,
		Round:     rm.Round,
		Set:       rm.Set,
		Phase:     models.MatchPending,
		Player1ID: rm.Player1ID,
		Player2ID: rm.Player2ID,
		Warned:    models.WarnState{Kind: models.WarnNone},
	}
	t.state.Matches = append(t.state.Matches, m)
	idx := len(t.state.Matches) - 1

	if p1Ok {
		t.state.Participants[p1Idx].MatchID = &t.state.Matches[idx].ID
	}
	if p2Ok {
		t.state.Participants[p2Idx].MatchID = &t.state.Matches[idx].ID
	}
	t.refreshMatchDerivedFields()
	return false
}

const afkCleanupDelay = 5 * 60

// timeoutPass disqualifies silent players on matches past the AFK
// threshold and deletes channels of matches long finished.
func (t *Tournament) timeoutPass(ctx context.Context) error {
	now := nowEpoch()

	for i := range t.state.Matches {
		m := &t.state.Matches[i]
		if m.Phase != models.MatchOngoing || m.CheckedDQ || m.StartTime == nil {
			continue
		}
		if t.state.Config.DelaySeconds == 0 || now-*m.StartTime < t.state.Config.DelaySeconds {
			continue
		}

		p1Silent := m.Player1ID != nil && !t.participantSpoke(*m.Player1ID)
		p2Silent := m.Player2ID != nil && !t.participantSpoke(*m.Player2ID)

		switch {
		case p1Silent && p2Silent:
			if err := t.forceEndMatch(ctx, i); err != nil {
				t.logger.Printf("timeoutPass: forceEnd both-silent set %d: %v", m.Set, err)
			}
		case p1Silent && m.Player1ID != nil:
			if err := t.disqualifyParticipant(ctx, i, *m.Player1ID); err != nil {
				t.logger.Printf("timeoutPass: disqualify set %d: %v", m.Set, err)
			}
		case p2Silent && m.Player2ID != nil:
			if err := t.disqualifyParticipant(ctx, i, *m.Player2ID); err != nil {
				t.logger.Printf("timeoutPass: disqualify set %d: %v", m.Set, err)
			}
		}
		m.CheckedDQ = true
	}

	for i := range t.state.Matches {
		m := &t.state.Matches[i]
		if m.Phase != models.MatchDone || m.Channel == nil || m.EndTime == nil {
			continue
		}
		if now-*m.EndTime >= afkCleanupDelay {
			if err := t.emitter.DeleteChannel(ctx, *m.Channel); err != nil {
				t.logger.Printf("timeoutPass: delete channel set %d: %v", m.Set, err)
				continue
			}
			m.Channel = nil
		}
	}
	return nil
}

func (t *Tournament) participantSpoke(playerID string) bool {
	idx, ok := t.participantIndexByPlayerID(playerID)
	if !ok {
		return true // unresolvable participant: do not auto-DQ on our own uncertainty
	}
	return t.state.Participants[idx].Spoke
}

// overtimePass emits the first (player-visible) and second
// (T.O.-visible) warnings for matches running long, skipping any
// match currently assigned to a streamer.
func (t *Tournament) overtimePass(ctx context.Context) error {
	now := nowEpoch()

	for i := range t.state.Matches {
		m := &t.state.Matches[i]
		if m.Phase != models.MatchOngoing || m.StreamerID != nil || m.StartTime == nil {
			continue
		}

		thresholds := t.state.Config.TimeUntilWarnBo3
		if m.IsBo5 {
			thresholds = t.state.Config.TimeUntilWarnBo5
		}
		duration := now - *m.StartTime

		switch m.Warned.Kind {
		case models.WarnNone:
			if thresholds.FirstSeconds != 0 && duration >= thresholds.FirstSeconds {
				m.Warned = models.WarnState{Kind: models.WarnFirstAt, At: now}
				t.emitter.NotifyMatch(ctx, m, notify.KindMatchWarnFirst, nil)
			}
		case models.WarnFirstAt:
			if thresholds.SecondSeconds != 0 && now >= m.Warned.At+thresholds.SecondSeconds {
				m.Warned = models.WarnState{Kind: models.WarnOvertime}
				t.emitter.NotifyTO(ctx, t.state.ID, notify.KindMatchWarnOvertime, map[string]interface{}{
					"set": m.Set,
				})
			}
		}
	}
	return nil
}
