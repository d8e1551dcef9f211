// internal/engine/match.go
// Match state machine (spec.md §4.3). Methods operate on a match by
// slab index rather than a stored pointer; callers already hold the
// tournament lock (either a user operation or one tick of LoopTask).

package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"tournament-planner/internal/models"
	"tournament-planner/internal/notify"
)

const channelCategoryWinner = "winner"
const channelCategoryLoser = "loser"

// launchMatch transitions PENDING -> ONGOING, or PENDING -> ON_HOLD
// when a streamer is already attached and another streamer match is
// already underway. Provisions a channel in degraded mode on failure.
func (t *Tournament) launchMatch(ctx context.Context, idx int) error {
	m := &t.state.Matches[idx]
	if m.Phase != models.MatchPending {
		return &WrongPhaseError{Operation: "launch", Current: m.Phase, Allowed: []interface{}{models.MatchPending}}
	}

	targetPhase := models.MatchOngoing
	if m.StreamerID != nil {
		if si, ok := t.streamerIndex(*m.StreamerID); ok {
			if cur := t.currentMatchForStreamer(si); cur != nil && cur.ID != m.ID {
				targetPhase = models.MatchOnHold
			}
		}
	}

	category, err := t.ensureCategory(ctx, m.Bracket())
	if err != nil {
		t.logger.Printf("launch %s: category provisioning failed: %v", m.ID, err)
	} else {
		allowed := t.matchParticipantRefs(m)
		handle, cerr := t.emitter.CreateMatchChannel(ctx, category, m, allowed)
		if cerr != nil {
			t.logger.Printf("launch %s: channel creation failed, continuing without channel: %v", m.ID, cerr)
			t.emitter.NotifyTO(ctx, t.state.ID, notify.KindMatchLaunched, map[string]interface{}{
				"set": m.Set, "degraded": true,
			})
		} else {
			m.Channel = &handle
		}
	}

	now := nowEpoch()
	m.StartTime = &now
	m.Phase = targetPhase

	if targetPhase == models.MatchOngoing {
		m.Underway = true
		if err := t.provider.MarkMatchUnderway(ctx, m.ID); err != nil {
			t.logger.Printf("launch %s: mark-underway failed, continuing in degraded mode: %v", m.ID, err)
			m.Underway = false
		}
		t.emitter.NotifyMatch(ctx, m, notify.KindMatchLaunched, nil)
	}
	return nil
}

// currentMatchForStreamer returns the streamer's derived current match,
// or nil if none. Defined here (not streamer.go) because it is a read
// launchMatch needs before streamer.go's refreshStreamers has run.
func (t *Tournament) currentMatchForStreamer(streamerIdx int) *models.Match {
	s := &t.state.Streamers[streamerIdx]
	if s.CurrentID == nil {
		return nil
	}
	if mi, ok := t.matchIndex(*s.CurrentID); ok {
		return &t.state.Matches[mi]
	}
	return nil
}

func (t *Tournament) matchParticipantRefs(m *models.Match) []models.UserRef {
	var refs []models.UserRef
	if m.Player1ID != nil {
		if pi, ok := t.participantIndexByPlayerID(*m.Player1ID); ok {
			refs = append(refs, t.state.Participants[pi].User)
		}
	}
	if m.Player2ID != nil {
		if pi, ok := t.participantIndexByPlayerID(*m.Player2ID); ok {
			refs = append(refs, t.state.Participants[pi].User)
		}
	}
	return refs
}

// ensureCategory returns the id of a winner/loser category with room
// for one more channel, creating a new one past the cap (spec.md §4.2
// launch pass).
func (t *Tournament) ensureCategory(ctx context.Context, bracket string) (string, error) {
	list := &t.state.WinnerCategories
	prefix := "Winners"
	if bracket == "loser" {
		list = &t.state.LoserCategories
		prefix = "Losers"
	}

	for _, cat := range *list {
		if t.categoryCapacity[cat] < categoryChannelCap {
			t.categoryCapacity[cat]++
			return cat, nil
		}
	}

	name := fmt.Sprintf("%s %d", prefix, len(*list)+1)
	cat, err := t.emitter.CreateCategory(ctx, t.state.ID, name)
	if err != nil {
		return "", err
	}
	*list = append(*list, cat)
	t.categoryCapacity[cat] = 1
	return cat, nil
}

// startStream transitions ON_HOLD -> ONGOING when a streamer picks
// this match up as its current match.
func (t *Tournament) startStream(ctx context.Context, idx int) error {
	m := &t.state.Matches[idx]
	if m.Phase != models.MatchOnHold {
		return &WrongPhaseError{Operation: "startStream", Current: m.Phase, Allowed: []interface{}{models.MatchOnHold}}
	}
	m.Phase = models.MatchOngoing
	m.CheckedDQ = true
	now := nowEpoch()
	m.StartTime = &now
	m.Underway = true
	if err := t.provider.MarkMatchUnderway(ctx, m.ID); err != nil {
		t.logger.Printf("startStream %s: mark-underway failed: %v", m.ID, err)
		m.Underway = false
	}

	payload := map[string]interface{}{}
	if si, ok := t.streamerIndex(*m.StreamerID); ok {
		s := &t.state.Streamers[si]
		if s.RoomCode != nil {
			payload["room_code"] = *s.RoomCode
		}
		if s.RoomID != nil {
			payload["room_id"] = *s.RoomID
		}
	}
	t.emitter.NotifyMatch(ctx, m, notify.KindStreamStart, payload)
	return nil
}

// streamQueueAdd transitions ONGOING -> ON_HOLD when the streamer
// queue gains a match ahead of this one.
func (t *Tournament) streamQueueAdd(ctx context.Context, idx int) error {
	m := &t.state.Matches[idx]
	if m.Phase != models.MatchOngoing {
		return &WrongPhaseError{Operation: "streamQueueAdd", Current: m.Phase, Allowed: []interface{}{models.MatchOngoing}}
	}
	m.Phase = models.MatchOnHold
	m.CheckedDQ = true
	m.StartTime = nil
	m.Underway = false
	if err := t.provider.UnmarkMatchUnderway(ctx, m.ID); err != nil {
		t.logger.Printf("streamQueueAdd %s: unmark-underway failed: %v", m.ID, err)
	}
	return nil
}

// cancelStream transitions ON_HOLD -> ONGOING when a streamer drops
// the match from its queue; the match clock restarts from now.
// CheckedDQ is left as it was, so a match a streamer has held stays
// exempt from the AFK check.
func (t *Tournament) cancelStream(ctx context.Context, idx int) error {
	m := &t.state.Matches[idx]
	if m.Phase != models.MatchOnHold {
		return &WrongPhaseError{Operation: "cancelStream", Current: m.Phase, Allowed: []interface{}{models.MatchOnHold}}
	}
	m.StreamerID = nil
	m.Phase = models.MatchOngoing
	now := nowEpoch()
	m.StartTime = &now
	m.Underway = true
	if err := t.provider.MarkMatchUnderway(ctx, m.ID); err != nil {
		t.logger.Printf("cancelStream %s: mark-underway failed: %v", m.ID, err)
		m.Underway = false
	}
	return nil
}

// relaunchMatch transitions DONE -> ONGOING when the operator reverts
// a score directly on the bracket; reuses the existing channel.
func (t *Tournament) relaunchMatch(ctx context.Context, idx int) error {
	m := &t.state.Matches[idx]
	if m.Phase != models.MatchDone {
		return &WrongPhaseError{Operation: "relaunch", Current: m.Phase, Allowed: []interface{}{models.MatchDone}}
	}
	m.Phase = models.MatchOngoing
	m.EndTime = nil
	m.Score1, m.Score2, m.WinnerID = nil, nil, nil
	m.Warned = models.WarnState{Kind: models.WarnNone}
	now := nowEpoch()
	m.StartTime = &now
	m.Underway = true
	if err := t.provider.MarkMatchUnderway(ctx, m.ID); err != nil {
		t.logger.Printf("relaunch %s: mark-underway failed: %v", m.ID, err)
		m.Underway = false
	}
	t.emitter.NotifyMatch(ctx, m, notify.KindBracketChange, map[string]interface{}{"relaunched": true})
	return nil
}

// endMatch transitions ONGOING -> DONE; the winner is the arg-max of
// scores, player1 winning ties. If upload, pushes the result upstream.
func (t *Tournament) endMatch(ctx context.Context, idx int, score1, score2 int, upload bool) error {
	m := &t.state.Matches[idx]
	if m.Phase != models.MatchOngoing {
		return &WrongPhaseError{Operation: "end", Current: m.Phase, Allowed: []interface{}{models.MatchOngoing}}
	}

	winnerID := m.Player1ID
	if score2 > score1 {
		winnerID = m.Player2ID
	}

	m.Score1, m.Score2 = &score1, &score2
	m.WinnerID = winnerID
	now := nowEpoch()
	m.EndTime = &now
	m.Phase = models.MatchDone
	m.Underway = false

	if upload && winnerID != nil {
		if err := t.provider.UpdateMatch(ctx, m.ID, formatScoresCSV(score1, score2), *winnerID); err != nil {
			return err
		}
	}

	t.emitter.NotifyMatch(ctx, m, notify.KindMatchEnded, map[string]interface{}{"score1": score1, "score2": score2})
	t.detachParticipantsFromMatch(m)
	return nil
}

// forceEndMatch transitions any phase to DONE without a score,
// deleting the channel and notifying both players. Used when an
// upstream bracket change invalidates a match mid-flight.
func (t *Tournament) forceEndMatch(ctx context.Context, idx int) error {
	m := &t.state.Matches[idx]
	now := nowEpoch()
	m.EndTime = &now
	m.Phase = models.MatchDone
	m.Underway = false

	if m.Channel != nil {
		if err := t.emitter.DeleteChannel(ctx, *m.Channel); err != nil {
			t.logger.Printf("forceEnd %s: channel deletion failed: %v", m.ID, err)
		}
		m.Channel = nil
	}

	t.emitter.NotifyMatch(ctx, m, notify.KindMatchForceEnded, nil)
	t.detachParticipantsFromMatch(m)
	return nil
}

// disqualifyParticipant ends the match with the opponent winning by
// forfeit. The disqualified player may have already left chat; in
// that case they are identified by player_id only.
func (t *Tournament) disqualifyParticipant(ctx context.Context, idx int, participantID string) error {
	m := &t.state.Matches[idx]

	var loserID, winnerID *string
	switch participantID {
	case deref(m.Player1ID):
		loserID, winnerID = m.Player1ID, m.Player2ID
	case deref(m.Player2ID):
		loserID, winnerID = m.Player2ID, m.Player1ID
	default:
		return fmt.Errorf("disqualify: participant %s not in match %s", participantID, m.ID)
	}

	now := nowEpoch()
	m.EndTime = &now
	m.Phase = models.MatchDone
	m.Underway = false
	m.WinnerID = winnerID

	var score1, score2 int
	if loserID == m.Player1ID {
		score1, score2 = -1, 0
	} else {
		score1, score2 = 0, -1
	}
	m.Score1, m.Score2 = &score1, &score2

	if winnerID != nil {
		if err := t.provider.UpdateMatch(ctx, m.ID, formatScoresCSV(score1, score2), *winnerID); err != nil {
			t.logger.Printf("disqualify %s: updateMatch failed: %v", m.ID, err)
		}
	}

	t.emitter.NotifyMatch(ctx, m, notify.KindMatchDisqualified, map[string]interface{}{"disqualified": participantID})
	t.detachParticipantsFromMatch(m)
	return nil
}

// forfeitMatch is a self-reported disqualification: ONGOING -> DONE
// with the forfeiting player scored -1, always uploaded.
func (t *Tournament) forfeitMatch(ctx context.Context, idx int, participantID string) error {
	m := &t.state.Matches[idx]
	if m.Phase != models.MatchOngoing {
		return &WrongPhaseError{Operation: "forfeit", Current: m.Phase, Allowed: []interface{}{models.MatchOngoing}}
	}
	return t.disqualifyParticipant(ctx, idx, participantID)
}

func (t *Tournament) detachParticipantsFromMatch(m *models.Match) {
	if m.Player1ID != nil {
		if pi, ok := t.participantIndexByPlayerID(*m.Player1ID); ok {
			t.state.Participants[pi].MatchID = nil
		}
	}
	if m.Player2ID != nil {
		if pi, ok := t.participantIndexByPlayerID(*m.Player2ID); ok {
			t.state.Participants[pi].MatchID = nil
		}
	}
}

// EndMatchBySet reports a manual score for the match at the given set
// number and, if upload, pushes the result upstream. Takes the lock.
func (t *Tournament) EndMatchBySet(ctx context.Context, set, score1, score2 int, upload bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.matchIndexBySet(set)
	if !ok {
		return ErrMatchNotFound
	}
	return t.endMatch(ctx, idx, score1, score2, upload)
}

// ForceEndMatchBySet ends the match at the given set number without a
// score. Takes the lock.
func (t *Tournament) ForceEndMatchBySet(ctx context.Context, set int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.matchIndexBySet(set)
	if !ok {
		return ErrMatchNotFound
	}
	return t.forceEndMatch(ctx, idx)
}

// RelaunchMatchBySet reopens a DONE match at the given set number.
// Takes the lock.
func (t *Tournament) RelaunchMatchBySet(ctx context.Context, set int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.matchIndexBySet(set)
	if !ok {
		return ErrMatchNotFound
	}
	return t.relaunchMatch(ctx, idx)
}

// DisqualifyParticipantBySet disqualifies a participant from the match
// at the given set number. Takes the lock.
func (t *Tournament) DisqualifyParticipantBySet(ctx context.Context, set int, participantID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.matchIndexBySet(set)
	if !ok {
		return ErrMatchNotFound
	}
	return t.disqualifyParticipant(ctx, idx, participantID)
}

// ForfeitMatchBySet is a self-reported forfeit for the match at the
// given set number. Takes the lock.
func (t *Tournament) ForfeitMatchBySet(ctx context.Context, set int, participantID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.matchIndexBySet(set)
	if !ok {
		return ErrMatchNotFound
	}
	return t.forfeitMatch(ctx, idx, participantID)
}

// CancelStreamBySet drops the streamer assignment from the match at
// the given set number. Takes the lock.
func (t *Tournament) CancelStreamBySet(ctx context.Context, set int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.matchIndexBySet(set)
	if !ok {
		return ErrMatchNotFound
	}
	return t.cancelStream(ctx, idx)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// formatScoresCSV renders a score pair on the wire's
// "winner-score-first" convention.
func formatScoresCSV(score1, score2 int) string {
	if score2 > score1 {
		return fmt.Sprintf("%d-%d", score2, score1)
	}
	return fmt.Sprintf("%d-%d", score1, score2)
}

// parseScoresCSV reorders the provider's winner-first convention back
// into the player1/player2 convention the engine stores.
func parseScoresCSV(csv string, player1Won bool) (score1, score2 int, err error) {
	parts := strings.SplitN(csv, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed scores_csv %q", csv)
	}
	winnerScore, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("malformed scores_csv %q: %w", csv, err)
	}
	loserScore, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("malformed scores_csv %q: %w", csv, err)
	}
	if player1Won {
		return winnerScore, loserScore, nil
	}
	return loserScore, winnerScore, nil
}
