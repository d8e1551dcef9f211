// internal/engine/streamer.go
// Streamer queue management (spec.md §4.4): checkIntegrity, swap,
// insert, remove, end, and the per-tick list refresh.

package engine

import (
	"context"
	"fmt"

	"tournament-planner/internal/models"
)

// AddStreamer creates a new streamer queue for owner, claiming the
// given set numbers.
func (t *Tournament) AddStreamer(ctx context.Context, owner models.UserRef, channel string, sets []int) (*models.Streamer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkIntegrity(-1, sets); err != nil {
		return nil, err
	}

	s := models.Streamer{
		ID:      newEntityID(),
		Owner:   owner,
		Channel: channel,
	}
	for _, set := range sets {
		s.Matches = append(s.Matches, models.StreamQueueItem{Set: set})
	}
	t.state.Streamers = append(t.state.Streamers, s)
	t.claimSetsForStreamer(ctx, len(t.state.Streamers)-1, sets)
	result := t.state.Streamers[len(t.state.Streamers)-1]
	return &result, nil
}

// checkIntegrity validates that none of sets is already claimed by
// another streamer's queue, duplicated within the same queue, or
// already a completed match. excludeStreamerIdx is -1 for a brand new
// streamer.
func (t *Tournament) checkIntegrity(excludeStreamerIdx int, sets []int) error {
	seen := map[int]bool{}
	for _, set := range sets {
		if seen[set] {
			return fmt.Errorf("set %d requested more than once", set)
		}
		seen[set] = true

		for si, s := range t.state.Streamers {
			if si == excludeStreamerIdx {
				continue
			}
			for _, item := range s.Matches {
				if item.Set == set {
					return fmt.Errorf("set %d already claimed by another streamer", set)
				}
			}
		}

		if mi, ok := t.matchIndexBySet(set); ok {
			if t.state.Matches[mi].Phase == models.MatchDone {
				return fmt.Errorf("set %d is already completed", set)
			}
		}
	}
	return nil
}

// claimSetsForStreamer transitions any already-ONGOING match among
// sets to ON_HOLD unless it is the new head of the queue.
func (t *Tournament) claimSetsForStreamer(ctx context.Context, streamerIdx int, sets []int) {
	s := &t.state.Streamers[streamerIdx]
	for i, set := range sets {
		mi, ok := t.matchIndexBySet(set)
		if !ok {
			continue
		}
		m := &t.state.Matches[mi]
		m.StreamerID = &s.ID
		if m.Phase == models.MatchOngoing && i != 0 {
			if err := t.streamQueueAdd(ctx, mi); err != nil {
				t.logger.Printf("addStreamer: streamQueueAdd failed for set %d: %v", set, err)
			}
		}
	}
}

// Swap exchanges the queue positions of two set numbers within the
// same streamer's queue.
func (t *Tournament) Swap(streamerID string, a, b int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	si, ok := t.streamerIndex(streamerID)
	if !ok {
		return fmt.Errorf("streamer %s not found", streamerID)
	}
	s := &t.state.Streamers[si]

	ia, okA := indexOfSet(s.Matches, a)
	ib, okB := indexOfSet(s.Matches, b)
	if !okA || !okB {
		return fmt.Errorf("swap: set not found in queue")
	}
	s.Matches[ia], s.Matches[ib] = s.Matches[ib], s.Matches[ia]
	return nil
}

// Insert removes src from the queue and reinserts it immediately
// before the before set.
func (t *Tournament) Insert(streamerID string, src, before int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	si, ok := t.streamerIndex(streamerID)
	if !ok {
		return fmt.Errorf("streamer %s not found", streamerID)
	}
	s := &t.state.Streamers[si]

	isrc, ok := indexOfSet(s.Matches, src)
	if !ok {
		return fmt.Errorf("insert: set %d not found in queue", src)
	}
	item := s.Matches[isrc]
	s.Matches = append(s.Matches[:isrc], s.Matches[isrc+1:]...)

	ibefore, ok := indexOfSet(s.Matches, before)
	if !ok {
		return fmt.Errorf("insert: set %d not found in queue", before)
	}
	s.Matches = append(s.Matches[:ibefore], append([]models.StreamQueueItem{item}, s.Matches[ibefore:]...)...)
	return nil
}

// Remove drops the named sets from streamerID's queue, cancelling the
// stream for any materialised match among them.
func (t *Tournament) Remove(ctx context.Context, streamerID string, sets ...int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	si, ok := t.streamerIndex(streamerID)
	if !ok {
		return fmt.Errorf("streamer %s not found", streamerID)
	}
	return t.removeSetsFromStreamer(ctx, si, sets)
}

func (t *Tournament) removeSetsFromStreamer(ctx context.Context, si int, sets []int) error {
	s := &t.state.Streamers[si]
	removeSet := map[int]bool{}
	for _, set := range sets {
		removeSet[set] = true
	}

	var kept []models.StreamQueueItem
	for _, item := range s.Matches {
		if !removeSet[item.Set] {
			kept = append(kept, item)
			continue
		}
		if item.MatchID != nil {
			if mi, ok := t.matchIndex(*item.MatchID); ok {
				m := &t.state.Matches[mi]
				m.StreamerID = nil
				if m.Phase == models.MatchOnHold {
					if err := t.cancelStream(ctx, mi); err != nil {
						t.logger.Printf("remove: cancelStream failed for set %d: %v", item.Set, err)
					}
				}
			}
		}
	}
	s.Matches = kept
	return nil
}

// EndStreamer cancels every materialised match's stream and removes
// the streamer from the tournament.
func (t *Tournament) EndStreamer(ctx context.Context, streamerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	si, ok := t.streamerIndex(streamerID)
	if !ok {
		return fmt.Errorf("streamer %s not found", streamerID)
	}
	s := t.state.Streamers[si]
	var sets []int
	for _, item := range s.Matches {
		sets = append(sets, item.Set)
	}
	if err := t.removeSetsFromStreamer(ctx, si, sets); err != nil {
		return err
	}
	t.state.Streamers = append(t.state.Streamers[:si], t.state.Streamers[si+1:]...)
	return nil
}

// refreshStreamers is the per-tick _updateList pass: upgrades
// placeholders to materialised matches, retires DONE matches from
// consideration, and recomputes current_match.
func (t *Tournament) refreshStreamers() {
	for si := range t.state.Streamers {
		s := &t.state.Streamers[si]

		for i, item := range s.Matches {
			if !item.IsPlaceholder() {
				continue
			}
			mi, ok := t.matchIndexBySet(item.Set)
			if !ok {
				continue
			}
			m := &t.state.Matches[mi]
			if m.Phase != models.MatchPending {
				continue
			}
			m.StreamerID = &s.ID
			m.Phase = models.MatchOnHold
			matchID := m.ID
			s.Matches[i].MatchID = &matchID
		}

		s.CurrentID = nil
		for _, item := range s.Matches {
			if item.IsPlaceholder() {
				continue
			}
			mi, ok := t.matchIndex(*item.MatchID)
			if !ok {
				continue
			}
			if t.state.Matches[mi].Phase == models.MatchDone {
				continue
			}
			id := t.state.Matches[mi].ID
			s.CurrentID = &id
			break
		}
	}
}

// streamPass transitions ON_HOLD matches whose streamer's current
// match is now themselves into ONGOING (spec.md §4.2 stream pass).
func (t *Tournament) streamPass(ctx context.Context) {
	t.refreshStreamers()

	for si := range t.state.Streamers {
		s := &t.state.Streamers[si]
		if s.CurrentID == nil {
			continue
		}
		mi, ok := t.matchIndex(*s.CurrentID)
		if !ok {
			continue
		}
		m := &t.state.Matches[mi]
		if m.Phase == models.MatchOnHold {
			if err := t.startStream(ctx, mi); err != nil {
				t.logger.Printf("streamPass: startStream failed for set %d: %v", m.Set, err)
			}
		}
	}
}

func indexOfSet(items []models.StreamQueueItem, set int) (int, bool) {
	for i, item := range items {
		if item.Set == set {
			return i, true
		}
	}
	return 0, false
}
